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
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"catalog-admin-console/internal/api"
	"catalog-admin-console/internal/auth"
	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/config"
	"catalog-admin-console/internal/i18n"
	"catalog-admin-console/internal/registry"
	"catalog-admin-console/internal/store"
	"catalog-admin-console/internal/ui"
)

const (
	defaultAppName  = "CatalogAdminConsole"
	grpcServiceName = "catalog.admin.Console"
)

type sessionStore interface {
	store.SessionStorer
	Close() error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Error loading configuration: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("FATAL: Error building logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", defaultAppName))
	logger.Info("configuration loaded", zap.String("app_env", cfg.AppEnv), zap.String("log_level", cfg.LogLevel))

	// --- Session storage ---
	var (
		sessions sessionStore
		db       *sql.DB
	)
	if cfg.Postgres.Enabled() {
		db, err = sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		if err := db.PingContext(context.Background()); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		pg := store.NewPostgresStore(db)
		if err := pg.Migrate(context.Background()); err != nil {
			logger.Fatal("failed to migrate session schema", zap.Error(err))
		}
		sessions = pg
		logger.Info("using postgres session store", zap.String("host", cfg.Postgres.Host))
	} else {
		sessions = store.NewMemoryStore()
		logger.Info("using in-memory session store")
	}

	// --- Catalog client and shared registries ---
	tokens := auth.ContextTokens{DefaultLocale: cfg.Catalog.DefaultLocale}
	client := catalog.New(catalog.Options{
		BaseURL:            cfg.Catalog.BaseURL,
		Timeout:            cfg.Catalog.Timeout,
		Tokens:             tokens,
		Locale:             tokens,
		Logger:             logger,
		BreakerMaxFailures: cfg.Catalog.BreakerMaxFailures,
		BreakerOpenFor:     cfg.Catalog.BreakerOpenFor,
	})
	regEnv := registry.Env{
		Notifier: ui.LogNotifier{Logger: logger.Named("registry")},
		Logger:   logger.Named("registry"),
		Locale:   cfg.Catalog.DefaultLocale,
	}

	httpAPIHandler := api.NewHTTPHandler(api.Deps{
		Catalog:        client,
		Auth:           auth.NewService(client, sessions, cfg.Catalog.DefaultLocale, logger),
		Categories:     registry.NewCategories(client, regEnv),
		Colors:         registry.NewColors(client, regEnv),
		Types:          registry.NewTypes(client, regEnv),
		Messages:       i18n.Default(),
		Logger:         logger,
		MediaBaseURL:   cfg.Catalog.MediaBaseURL,
		MaxUploadBytes: cfg.HttpServer.MaxUploadMB << 20,
	})

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger)
	registerHealthCheck(httpRouter, logger, db, client)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe error", zap.Error(err))
		}
		logger.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	healthServer := health.NewServer()
	grpcServer := setupGRPCServer(logger, healthServer)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		logger.Fatal("failed to listen for gRPC", zap.String("port", cfg.GrpcServer.Port), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("port", cfg.GrpcServer.Port))
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatal("gRPC server Serve error", zap.Error(err))
		}
		logger.Info("gRPC server has stopped")
	}()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	go watchUpstream(watchCtx, healthServer, client)

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, grpcServer, healthServer, sessions, stopWatch, shutdownComplete)

	<-shutdownComplete
	logger.Info("service shutdown sequence finished")
}

func setupBaseMiddleware(router *chi.Mux, logger *zap.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger.Named("access")))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func registerHealthCheck(router *chi.Mux, logger *zap.Logger, db *sql.DB, client *catalog.Client) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "disabled"
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			dbStatus = "healthy"
			if err := db.PingContext(ctx); err != nil {
				dbStatus = "unhealthy"
				logger.Warn("health check DB ping failed", zap.Error(err))
			}
		}
		catalogStatus := "healthy"
		if !client.Healthy() {
			catalogStatus = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
			"catalog":     catalogStatus,
		})
	})
}

func setupGRPCServer(logger *zap.Logger, healthServer *health.Server) *grpc.Server {
	s := grpc.NewServer()

	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus(grpcServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	logger.Info("gRPC health check service registered")

	reflection.Register(s)
	logger.Info("gRPC reflection service registered")

	return s
}

// watchUpstream reports NOT_SERVING while the catalog breaker is open.
func watchUpstream(ctx context.Context, healthServer *health.Server, client *catalog.Client) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := grpc_health_v1.HealthCheckResponse_SERVING
			if !client.Healthy() {
				status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			}
			healthServer.SetServingStatus(grpcServiceName, status)
		}
	}
}

func waitForShutdown(
	logger *zap.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	healthServer *health.Server,
	sessions sessionStore,
	stopWatch context.CancelFunc,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Info("starting graceful shutdown", zap.String("signal", receivedSignal.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stopWatch()
	healthServer.Shutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		logger.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		logger.Warn("gRPC server graceful shutdown timed out, forcing stop", zap.Error(shutdownCtx.Err()))
		grpcServer.Stop()
	}

	if err := sessions.Close(); err != nil {
		logger.Warn("error closing session store", zap.Error(err))
	}

	logger.Info("graceful shutdown sequence completed")
}
