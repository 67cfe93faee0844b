package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"catalog-service/internal/auth"
	"catalog-service/internal/store"
)

const (
	CatalogServiceName       = "catalog.v1.CatalogService"
	ListCategoriesFullMethod = "/" + CatalogServiceName + "/ListCategories"
)

// CatalogServiceServer is the server API of catalog.v1.CatalogService.
// ListCategories returns {"category": [...]}, the same document as
// GET /api/v1/categories.
type CatalogServiceServer interface {
	ListCategories(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

func listCategoriesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServiceServer).ListCategories(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ListCategoriesFullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServiceServer).ListCategories(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// CatalogServiceDesc describes catalog.v1.CatalogService. The messages are
// protobuf well-known types, so no generated code is needed.
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListCategories",
			Handler:    listCategoriesHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/catalog.proto",
}

// RegisterCatalogServiceServer registers srv on s.
func RegisterCatalogServiceServer(s grpc.ServiceRegistrar, srv CatalogServiceServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

// GRPCHandler implements CatalogServiceServer.
type GRPCHandler struct {
	catalog Catalog
	policy  auth.Policy
	logger  *zap.Logger
}

var _ CatalogServiceServer = (*GRPCHandler)(nil)

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(c Catalog, policy auth.Policy, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{catalog: c, policy: policy, logger: logger}
}

// --- Helper: Error Mapping ---
func (s *GRPCHandler) mapCatalogErrorToGrpcStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrCategoryNotFound), errors.Is(err, store.ErrProductNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error("grpc catalog operation failed", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}

func (s *GRPCHandler) ListCategories(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if !s.policy(auth.IdentityFromContext(ctx)) {
		return nil, status.Error(codes.PermissionDenied, "you do not have permission to perform this action")
	}

	listing, err := s.catalog.ListCategoryListing(ctx)
	if err != nil {
		return nil, s.mapCatalogErrorToGrpcStatus(err)
	}

	data, err := json.Marshal(CategoryListResponse{Category: listing})
	if err != nil {
		return nil, s.mapCatalogErrorToGrpcStatus(err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, s.mapCatalogErrorToGrpcStatus(err)
	}
	return out, nil
}

// UnaryLoggingInterceptor tags each call with a request id (taken from the
// "x-request-id" metadata or generated) and logs its outcome.
func UnaryLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("x-request-id"); len(values) > 0 {
				requestID = values[0]
			}
		}
		if requestID == "" {
			requestID = uuid.New().String()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs("x-request-id", requestID))

		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID),
		}
		if err != nil {
			logger.Warn("grpc request", append(fields, zap.Error(err))...)
		} else {
			logger.Info("grpc request", fields...)
		}
		return resp, err
	}
}
