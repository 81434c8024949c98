package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/finagent/internal/auth"
	"github.com/mmynk/finagent/internal/config"
	"github.com/mmynk/finagent/internal/currency"
	"github.com/mmynk/finagent/internal/events"
	"github.com/mmynk/finagent/internal/extract"
	"github.com/mmynk/finagent/internal/metrics"
	"github.com/mmynk/finagent/internal/middleware"
	"github.com/mmynk/finagent/internal/service"
	"github.com/mmynk/finagent/internal/storage/sqlite"
	"github.com/mmynk/finagent/pkg/logging"
)

const (
	tokenDuration     = 24 * time.Hour
	reviewPrunePeriod = 5 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	normalizer := currency.NewNormalizer(currency.NewFrankfurterSource(cfg.RatesBaseURL, cfg.RatesTimeout), cfg.RateCacheTTL)

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		slog.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		slog.Info("AMQP not configured, events disabled")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, tokenDuration)
	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(),
		middleware.RequireAuth(jwtManager),
	)

	var parser extract.Parser
	if cfg.OllamaURL != "" {
		parser = extract.NewOllamaParser(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaVisionModel, cfg.OllamaTimeout)
		slog.Info("Ollama extractor initialized", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "vision_model", cfg.OllamaVisionModel)
	} else {
		slog.Info("Ollama not configured, parse RPCs disabled")
	}

	ledgerSvc := service.NewLedgerService(store, parser, publisher, cfg.DomesticCurrency)
	analyticsSvc := service.NewAnalyticsService(store, normalizer, cfg.DomesticCurrency, cfg.InsightsCacheTTL)

	mux := http.NewServeMux()

	// Register Connect services
	ledgerPath, ledgerHandler := service.NewLedgerServiceHandler(ledgerSvc, interceptors)
	mux.Handle(ledgerPath, ledgerHandler)

	analyticsPath, analyticsHandler := service.NewAnalyticsServiceHandler(analyticsSvc, interceptors)
	mux.Handle(analyticsPath, analyticsHandler)

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			slog.Error("Health check failed", "error", err)
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(loggedHandler, &http2.Server{})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2cHandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go pruneReviews(ctx, ledgerSvc)

	go func() {
		slog.Info("Connect server starting", "address", srv.Addr, "currency", cfg.DomesticCurrency)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	slog.Info("Server stopped")
}

// pruneReviews drops abandoned split reviews until ctx is cancelled.
func pruneReviews(ctx context.Context, svc *service.LedgerService) {
	ticker := time.NewTicker(reviewPrunePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.PruneReviews(); n > 0 {
				slog.Debug("Pruned expired reviews", "count", n)
			}
		}
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
