package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/openlibra/searchd/internal/config"
	"github.com/openlibra/searchd/internal/domain"
	"github.com/openlibra/searchd/internal/index"
	logpkg "github.com/openlibra/searchd/internal/logger"
	"github.com/openlibra/searchd/internal/metrics"
	"github.com/openlibra/searchd/internal/planner"
	"github.com/openlibra/searchd/internal/scoring"
	chiTransport "github.com/openlibra/searchd/internal/transport/chi"
	openaiProvider "github.com/openlibra/searchd/internal/transport/openai"
	searchuc "github.com/openlibra/searchd/internal/usecase/search"
	"github.com/openlibra/searchd/internal/version"
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

	logger.Info("Starting searchd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	client, err := index.NewClient(index.Config{
		Addrs:     cfg.Database.Addrs,
		Username:  cfg.Database.Username,
		Password:  cfg.Database.Password,
		DB:        cfg.Database.DB,
		KeyPrefix: cfg.Database.KeyPrefix,
	})
	if err != nil {
		logger.Fatal("Failed to create index client", zap.Error(err))
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Search backend not ready", zap.Error(err))
	}
	logger.Info("Connected to search backend")

	if err := client.EnsureIndexes(ctx, cfg.LLM.Dimensions); err != nil {
		logger.Fatal("Failed to provision indexes", zap.Error(err))
	}

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	provider := openaiProvider.New(&openaiProvider.Config{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		ChatModel:  cfg.LLM.ChatModel,
		EmbedModel: cfg.LLM.EmbedModel,
		Dimensions: cfg.LLM.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	logger.Info("LLM provider created",
		zap.String("chat_model", cfg.LLM.ChatModel),
		zap.String("embed_model", cfg.LLM.EmbedModel),
		zap.Int("dimensions", cfg.LLM.Dimensions),
	)

	plan := planner.New(provider, logger).
		WithMinTokens(cfg.Search.PlanMinTokens).
		WithTimeout(time.Duration(cfg.Search.PlanTimeoutSec) * time.Second)

	fresh := scoring.NewFreshnessScorer(cfg.Search.FreshnessHalflifeDays)

	coord, err := searchuc.NewCoordinator(client, provider, fresh, cfg.Search.PoolSize, logger)
	if err != nil {
		logger.Fatal("Failed to create retrieval coordinator", zap.Error(err))
	}
	defer coord.Release()
	coord.WithTimeouts(
		time.Duration(cfg.Search.TextTimeoutSec)*time.Second,
		time.Duration(cfg.Search.VectorTimeoutSec)*time.Second,
	)

	searchSvc := searchuc.New(coord, client, plan, searchuc.Config{
		ItemWeights:    weightsFromConfig(cfg.Search.ItemWeights),
		AuthorWeights:  weightsFromConfig(cfg.Search.AuthorWeights),
		ScoreThreshold: cfg.Search.ScoreThreshold,
	}, logger)

	server := chiTransport.NewServer(searchSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func weightsFromConfig(w config.WeightsConfig) domain.FusionWeights {
	return domain.FusionWeights{
		Semantic: w.Semantic,
		BM25:     w.BM25,
		Vector:   w.Vector,
		Business: w.Business,
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
