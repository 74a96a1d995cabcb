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

	"github.com/kailas-cloud/clinicopilot/internal/config"
	"github.com/kailas-cloud/clinicopilot/internal/db"
	dbRedis "github.com/kailas-cloud/clinicopilot/internal/db/redis"
	"github.com/kailas-cloud/clinicopilot/internal/domain"
	logpkg "github.com/kailas-cloud/clinicopilot/internal/logger"
	"github.com/kailas-cloud/clinicopilot/internal/metrics"
	corpusrepo "github.com/kailas-cloud/clinicopilot/internal/repository/corpus"
	"github.com/kailas-cloud/clinicopilot/internal/repository/embcache"
	historyrepo "github.com/kailas-cloud/clinicopilot/internal/repository/history"
	chiTransport "github.com/kailas-cloud/clinicopilot/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/clinicopilot/internal/transport/openai"
	"github.com/kailas-cloud/clinicopilot/internal/usecase/copilot"
	"github.com/kailas-cloud/clinicopilot/internal/usecase/guardrail"
	healthuc "github.com/kailas-cloud/clinicopilot/internal/usecase/health"
	"github.com/kailas-cloud/clinicopilot/internal/usecase/ingest"
	"github.com/kailas-cloud/clinicopilot/internal/usecase/retrieval"
	"github.com/kailas-cloud/clinicopilot/internal/version"
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

	logger.Info("Starting clinicopilot API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCopilotMetrics()

	vecCfg := cfg.Embedding.Vectorizer
	docEmbedder := buildEmbedder(cfg.Embedding.Provider, vecCfg, vecCfg.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding.Provider, vecCfg, vecCfg.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider.Name),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	corpusRepo := corpusrepo.New(store, vecCfg.Dimensions).WithHNSW(corpusrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	historyLog := historyrepo.New()

	ingestSvc := ingest.New(corpusRepo, batchEmbedder(docEmbedder), vecCfg.Model, cfg.Corpus.DataPath, logger)
	if err := ingestSvc.Load(ctx); err != nil {
		logger.Fatal("Failed to load knowledge base", zap.Error(err))
	}

	vocab, err := guardrail.NewVocabulary(
		cfg.Guardrail.ClinicalKeywords,
		cfg.Guardrail.NonClinicalKeywords,
		cfg.Guardrail.Patterns,
	)
	if err != nil {
		logger.Fatal("Failed to build guardrail vocabulary", zap.Error(err))
	}

	retrievalSvc := retrieval.New(corpusRepo, queryEmbedder, retrieval.Options{
		SimilarityFloor: cfg.Corpus.SimilarityFloor,
		TopKResults:     cfg.Corpus.TopKResults,
		TopKContext:     cfg.Corpus.TopKContext,
		SearchTimeout:   time.Duration(cfg.Corpus.SearchTimeoutSec) * time.Second,
	}, metrics.RetrievalFailuresTotal, logger)

	copilotSvc := copilot.New(
		guardrail.New(vocab), retrievalSvc, historyLog, corpusRepo, vecCfg.Model, logger,
	)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(queryEmbedder), corpusRepo)

	server := chiTransport.NewServer(copilotSvc, healthSvc)

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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildEmbedder(
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provCfg.Name,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, vecCfg.Model, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// batchEmbedder exposes a BatchEmbed view of an embedder chain, falling back
// to per-text calls when the chain has no native batch path.
func batchEmbedder(e domain.Embedder) domain.BatchEmbedder {
	if be, ok := e.(domain.BatchEmbedder); ok {
		return be
	}
	return batchFallbackEmbedder{inner: e}
}

type batchFallbackEmbedder struct {
	inner domain.Embedder
}

func (b batchFallbackEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, b.inner, texts)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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
						"code":    "internal_error",
						"message": "internal error",
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

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
