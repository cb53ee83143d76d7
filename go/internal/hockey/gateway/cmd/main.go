package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/airhockey/go/internal/hockey/events"
	"github.com/mcdev12/airhockey/go/internal/hockey/gameconfig"
	"github.com/mcdev12/airhockey/go/internal/hockey/gateway"
	"github.com/mcdev12/airhockey/go/internal/hockey/matchmaker"
	"github.com/mcdev12/airhockey/go/internal/hockey/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := gameconfig.NewConfigFromEnv()
	setupLogging(cfg)

	tuning, err := gameconfig.LoadTuning(cfg.TuningFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load tuning")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := events.NewPrometheusMetrics(reg)

	publisher := setupPublisher(cfg)
	defer publisher.Close()

	sessionConfig := cfg.SessionConfig(tuning)
	sessionConfig.Publisher = publisher
	sessionConfig.Metrics = metrics

	registry := session.NewRegistry()
	factory, err := session.NewFactory(sessionConfig, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid session configuration")
	}
	mm := matchmaker.New(factory, metrics)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConnectionConfig.CheckOrigin = gateway.OriginChecker(cfg.AllowedOrigins)
	gatewayService := gateway.NewService(gatewayConfig, mm, registry, metrics)

	log.Info().
		Str("port", cfg.Port).
		Int("tick_rate", tuning.TickRate).
		Float64("friction", tuning.Table.Friction).
		Bool("strict_input", cfg.StrictInput).
		Bool("nats", cfg.NATSURL != "").
		Msg("starting air hockey gateway")

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler := gateway.CORSMiddleware(cfg.AllowedOrigins, mux)
	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Hijacked WebSocket connections are not tracked by Shutdown; the
	// service closes them once its context is cancelled.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	select {
	case <-serviceDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("gateway service did not stop in time")
	}

	log.Info().Msg("air hockey gateway shutdown complete")
}

func setupLogging(cfg gameconfig.Config) {
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func setupPublisher(cfg gameconfig.Config) events.Publisher {
	if cfg.NATSURL == "" {
		log.Info().Msg("NATS_URL not set, match events disabled")
		return events.NoOpPublisher{}
	}

	natsConfig := events.DefaultNATSConfig()
	natsConfig.URL = cfg.NATSURL
	natsConfig.SubjectPrefix = cfg.NATSSubjectPrefix
	publisher, err := events.NewNATSPublisher(natsConfig)
	if err != nil {
		log.Error().Err(err).Str("nats_url", cfg.NATSURL).Msg("NATS unavailable, match events disabled")
		return events.NoOpPublisher{}
	}
	log.Info().Str("nats_url", cfg.NATSURL).Msg("publishing match events to NATS")
	return publisher
}
