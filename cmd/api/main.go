package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nyashahama/carefund-backend/internal/api"
	"github.com/nyashahama/carefund-backend/internal/assessment"
	"github.com/nyashahama/carefund-backend/internal/auth"
	"github.com/nyashahama/carefund-backend/internal/config"
	"github.com/nyashahama/carefund-backend/internal/email"
	"github.com/nyashahama/carefund-backend/internal/narrative"
	"github.com/nyashahama/carefund-backend/internal/store"
	stripeinternal "github.com/nyashahama/carefund-backend/internal/stripe"
	"github.com/nyashahama/carefund-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Reference data ────────────────────────────────────────────────────────
	ref, err := loadReference(cfg.ReferenceDataPath)
	if err != nil {
		return fmt.Errorf("reference data: %w", err)
	}
	logger.Info("reference data loaded",
		"cities", len(ref.Cities()),
		"occupations", len(ref.Occupations()),
		"tiers", len(ref.InsuranceTiers()),
	)

	// ── Database ──────────────────────────────────────────────────────────────
	openCtx, cancelOpen := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := store.Open(openCtx, cfg.DatabaseURL)
	cancelOpen()
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer st.Close()
	logger.Info("database connected", "driver", st.Driver())

	// ── Auth ──────────────────────────────────────────────────────────────────
	verifier, err := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	// ── Environment (AQI + weather, optionally cached in Valkey) ──────────────
	envSvc, closeCache := buildEnvironment(cfg, ref, logger)
	defer closeCache()

	// ── Narrative ─────────────────────────────────────────────────────────────
	gen := buildGenerator(cfg, logger)
	narr := narrative.New(narrative.Config{
		Enabled: cfg.AIEnabled,
		Timeout: cfg.EnrichTimeout,
	}, gen, logger)
	logger.Info("narrative generation", "enabled", narr.Enabled())

	// ── Email (Resend) ────────────────────────────────────────────────────────
	var mailer email.Sender = email.NoopSender{Logger: logger}
	if cfg.ResendAPIKey != "" {
		mailer = email.NewResendClient(
			cfg.ResendAPIKey,
			cfg.EmailFromAddr,
			cfg.EmailFromName,
			cfg.BaseURL,
			"",
		)
	}

	// ── Stripe ────────────────────────────────────────────────────────────────
	// Auto-pay stays disabled until a secret key is configured.
	var stripeClient stripeinternal.Client
	if cfg.StripeSecretKey != "" {
		stripeClient = stripeinternal.NewClient(cfg.StripeSecretKey)
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	job := worker.NewJob(st, mailer, logger)
	runner := worker.NewRunner(job, worker.RunnerConfig{
		Workers:     cfg.WorkerCount,
		JobTimeout:  cfg.JobTimeout,
		MaxRetries:  cfg.MaxRetries,
		BaseBackoff: time.Second,
	}, logger)

	// ── Assessment ────────────────────────────────────────────────────────────
	svc := assessment.NewService(ref, envSvc, narr, runner, assessment.Config{
		AutoPayEnabled: stripeClient != nil,
	}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(api.Deps{
		Assessor:    svc,
		History:     st,
		Catalog:     ref,
		Environment: envSvc,
		Stripe:      stripeClient,
		Verifier:    verifier,
	}, api.Config{
		Env:        cfg.Env,
		CORSOrigin: cfg.CORSOrigin,
	}, logger)

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // narrative generation can take most of this
		IdleTimeout:  120 * time.Second,
	}

	// ── gRPC health ───────────────────────────────────────────────────────────
	// Shares the HTTP port; cmux routes HTTP/2 gRPC traffic by content-type.
	grpcSrv := grpc.NewServer(grpc.ConnectionTimeout(10 * time.Second))
	healthSrv := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)

	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	mux := cmux.New(lis)
	grpcL := mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := mux.Match(cmux.Any())

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. The worker gets its own context so
	// it keeps accepting archive tasks until HTTP has stopped.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	workersDone := make(chan struct{})
	go func() {
		runner.Start(workerCtx)
		close(workersDone)
	}()

	serverErr := make(chan error, 3)
	go func() {
		if err := srv.Serve(httpL); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			serverErr <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := grpcSrv.Serve(grpcL); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, cmux.ErrListenerClosed) {
			serverErr <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		if err := mux.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			serverErr <- fmt.Errorf("cmux: %w", err)
		}
	}()

	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	logger.Info("server listening", "addr", lis.Addr().String())

	// Block until either a signal arrives or a server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	grpcSrv.GracefulStop()
	_ = lis.Close()

	// No new archive tasks can arrive now. Drain what is queued.
	stopWorkers()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Warn("worker drain timed out")
	}

	logger.Info("shutdown complete")
	return nil
}
