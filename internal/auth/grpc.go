package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor resolves the caller from the "authorization"
// metadata entry. Calls without it, or whose user no longer exists, run as
// anonymous; invalid tokens fail with Unauthenticated.
func UnaryServerInterceptor(resolver *Resolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				header = values[0]
			}
		}
		identity, err := resolver.Resolve(ctx, header)
		if err != nil {
			if isTokenError(err) {
				return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
			}
			return nil, status.Error(codes.Internal, "internal server error")
		}
		return handler(WithIdentity(ctx, identity), req)
	}
}
