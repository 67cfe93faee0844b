package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"catalog-service/internal/api"
	"catalog-service/internal/auth"
	"catalog-service/internal/cache"
	"catalog-service/internal/catalog"
	"catalog-service/internal/config"
	"catalog-service/internal/logger"
	"catalog-service/internal/metrics"
	"catalog-service/internal/store"
)

const (
	serviceName     = "catalog-service"
	metricsPrefix   = "catalog"
	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: .env file not found, relying on system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Error loading configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.AppEnv,
		ServiceName: serviceName,
		File:        cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("FATAL: Error building logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("service stopped with error", zap.Error(err))
	}
	zl.Info("service shutdown sequence finished")
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			zl.Warn("error closing store", zap.Error(err))
		}
	}()

	opts := []catalog.Option{catalog.WithLogger(zl)}
	if cfg.Redis.Enabled() {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, catalog.WithListingCache(cache.NewRedisListingCache(client, cfg.Redis.ListingTTL, zl)))
		zl.Info("category listing cache enabled", zap.String("addr", cfg.Redis.Addr))
	}
	svc := catalog.NewService(st, opts...)

	// Callers are re-read from the store on every request.
	resolver := auth.NewResolver(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), st)
	httpAPIHandler := api.NewHTTPHandler(svc, resolver, auth.IsStaff, zl)
	grpcAPIHandler := api.NewGRPCHandler(svc, auth.IsStaff, zl)

	// --- HTTP Server ---
	httpMetrics := metrics.NewHTTPMetrics(metricsPrefix)
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, zl, httpMetrics)
	registerHealthCheck(httpRouter, zl, st) // before the authenticated /api/v1 subtree
	httpRouter.Handle("/metrics", httpMetrics.Handler())
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	// --- gRPC Server ---
	grpcServer := setupGRPCServer(zl, resolver, grpcAPIHandler)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("HTTP server listening", zap.String("port", cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		zl.Info("gRPC server listening", zap.String("port", cfg.GrpcServer.Port))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("starting graceful shutdown")
		return shutdown(zl, httpServer, grpcServer)
	})
	return g.Wait()
}

// openStore selects the storage backend named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (store.Storer, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		zl.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	zl.Info("database connection established and schema migrated")
	return store.NewPostgresStore(db), nil
}

func setupBaseMiddleware(router *chi.Mux, zl *zap.Logger, m *metrics.HTTPMetrics) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.RequestLogger(zl))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(m.Middleware)
}

func registerHealthCheck(router *chi.Mux, zl *zap.Logger, st store.Storer) {
	router.Get("/api/v1/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		if err := st.Ping(ctx); err != nil {
			dbStatus = "unhealthy"
			zl.Warn("health check store ping failed", zap.Error(err))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // payload carries the detailed status
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": serviceName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
		})
	})
}

func setupGRPCServer(zl *zap.Logger, resolver *auth.Resolver, handler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		api.UnaryLoggingInterceptor(zl),
		auth.UnaryServerInterceptor(resolver),
	))

	api.RegisterCatalogServiceServer(s, handler)
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	reflection.Register(s)
	return s
}

func shutdown(zl *zap.Logger, httpServer *http.Server, grpcServer *grpc.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		zl.Warn("HTTP server graceful shutdown failed", zap.Error(err))
	}

	select {
	case <-stoppedGrpc:
	case <-shutdownCtx.Done():
		zl.Warn("gRPC server graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}
	return err
}
