// Slackgate is the single entrypoint for agent tool-call requests.
// It validates arguments, resolves the right credential class, calls the
// Slack Web API, and returns a uniform result envelope.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpopa/slackgate/pkg/auth"
	"github.com/mpopa/slackgate/pkg/config"
	"github.com/mpopa/slackgate/pkg/credentials"
	"github.com/mpopa/slackgate/pkg/dispatch"
	sgOtel "github.com/mpopa/slackgate/pkg/otel"
	"github.com/mpopa/slackgate/pkg/slack"
	"github.com/mpopa/slackgate/pkg/tools"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ── OpenTelemetry ────────────────────────────────────────────────────
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	otelShutdown, err := sgOtel.Setup(ctx, sgOtel.Config{
		ServiceName:    config.EnvOr("OTEL_SERVICE_NAME", "slackgate"),
		OTLPEndpoint:   otelEndpoint,
		MetricsEnabled: true,
		TracingEnabled: otelEndpoint != "",
	})
	if err != nil {
		log.Error("otel setup failed", "error", err)
	} else {
		defer otelShutdown(context.Background()) //nolint:errcheck // best-effort shutdown
	}

	// ── Credentials ──────────────────────────────────────────────────────
	// The service secret is loaded exactly once here; if it is absent,
	// service-class tools fail per call rather than taking the process down.
	botToken := os.Getenv("SLACK_BOT_TOKEN")
	if botToken == "" {
		log.Warn("SLACK_BOT_TOKEN not set, service-class tools will fail until configured")
	}

	var store credentials.SecretStore
	if tokenServiceURL := os.Getenv("TOKEN_SERVICE_URL"); tokenServiceURL != "" {
		store = credentials.NewTokenServiceClient(tokenServiceURL, os.Getenv("TOKEN_SERVICE_API_KEY"))
	} else {
		log.Warn("TOKEN_SERVICE_URL not set, user-class tools will fail until configured")
	}
	resolver := credentials.NewResolver(botToken, store)

	// ── Tool surface ─────────────────────────────────────────────────────
	gateway := slack.NewClient(config.EnvOr("SLACK_API_URL", slack.DefaultBaseURL), log)
	reg, err := tools.BuildRegistry(gateway)
	if err != nil {
		log.Error("tool registry build failed", "error", err)
		os.Exit(1)
	}

	srv := NewServer(ServerConfig{
		Log:            log,
		Dispatcher:     dispatch.New(reg, resolver, log),
		Registry:       reg,
		PerCallerLimit: config.EnvOrInt("RATE_LIMIT_PER_CALLER", 100),
	})

	// ── Router ───────────────────────────────────────────────────────────
	keyStore := auth.NewKeyStore(os.Getenv("API_KEYS"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(config.EnvOrDuration("REQUEST_TIMEOUT", 30*time.Second)))
	r.Use(middleware.Logger)
	r.Use(auth.APIKeyAuth(keyStore))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/v1/tools", srv.HandleListTools)
	r.Post("/v1/tools/call", srv.HandleCallTool)

	// ── Metrics (internal) ───────────────────────────────────────────────
	metricsAddr := config.EnvOr("METRICS_ADDR", "127.0.0.1:9090")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsMux,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	go func() {
		log.Info("metrics server starting", "addr", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()

	// ── Server ───────────────────────────────────────────────────────────
	addr := config.EnvOr("SLACKGATE_ADDR", ":8080")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("slackgate starting", "addr", addr, "tools", len(reg.List()))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down slackgate")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	if err := metricsSrv.Shutdown(shutCtx); err != nil {
		log.Error("metrics server shutdown error", "error", err)
	}
}
