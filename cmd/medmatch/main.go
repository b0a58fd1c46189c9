package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/app"
	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/config"
	"github.com/kailas-cloud/medmatch/internal/db"
	logpkg "github.com/kailas-cloud/medmatch/internal/logger"
	"github.com/kailas-cloud/medmatch/internal/metrics"
	"github.com/kailas-cloud/medmatch/internal/repository/rescache"
	chiTransport "github.com/kailas-cloud/medmatch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/medmatch/internal/usecase/health"
	"github.com/kailas-cloud/medmatch/internal/usecase/resolve"
	"github.com/kailas-cloud/medmatch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting medmatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	metrics.RegisterResolveMetrics()

	ctx := context.Background()

	// The database is optional: only the cache and the redis catalog source need it.
	var store db.Store
	if cfg.DatabaseRequired() {
		store, err = app.OpenStore(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		defer store.Close()
		logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs),
		)
	}

	src, err := app.CatalogSource(cfg.Catalog, store)
	if err != nil {
		logger.Fatal("Invalid catalog source", zap.Error(err))
	}

	// Fail-open: a broken catalog leaves the service up with an empty index.
	ix, err := catalog.Load(ctx, src, logger)
	if err != nil {
		logger.Error("Catalog not loaded, serving no matches until reload", zap.Error(err))
	}

	svc := app.NewResolver(ix, cfg.Resolver, logger)

	var resolver chiTransport.Resolver = svc
	if cfg.Cache.Enabled {
		resolver = rescache.New(svc, store, time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.ResolveCacheTotal, logger)
		logger.Info("Resolution cache enabled", zap.Int("ttl_sec", cfg.Cache.TTLSec))
	}

	// Pass nil interface (not typed nil) when no store is configured.
	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(func() healthuc.CatalogReader { return svc.Index() }, pinger)

	server := chiTransport.NewServer(resolver, svc.Index, healthSvc, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// SIGHUP reloads the catalog in place
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go reloadCatalog(ctx, reload, src, svc, logger)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	signal.Stop(reload)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// reloadCatalog swaps in a freshly loaded catalog on every signal.
// A failed reload keeps the previous catalog.
func reloadCatalog(ctx context.Context, sig <-chan os.Signal, src catalog.Source, svc *resolve.Service, logger *zap.Logger) {
	for range sig {
		ix, err := catalog.Load(ctx, src, logger)
		if err != nil {
			logger.Error("Catalog reload failed, keeping previous catalog",
				zap.Int("entries", svc.Index().Len()), zap.Error(err))
			continue
		}
		svc.SwapIndex(ix)
		logger.Info("Catalog reloaded", zap.Int("entries", ix.Len()))
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Error:   "internal_error",
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line: one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.String("cache", ww.Header().Get("X-Cache")),
			)
		})
	}
}
