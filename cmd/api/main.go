package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/domain"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/httpclient"
	"server/internal/infra"
	"server/internal/providers/runway"
	"server/internal/queue"
	"server/internal/task"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	retryClient := httpclient.New(httpclient.Options{Logger: &logger})

	runwayClient, err := runway.NewClient(runway.Options{
		APIToken:        cfg.APIToken,
		BaseURL:         cfg.RunwayBaseURL,
		Email:           cfg.RunwayEmail,
		Password:        cfg.RunwayPassword,
		MaxJobs:         cfg.RunwayMaxJobs,
		HTTPClient:      retryClient,
		Logger:          &logger,
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.PollMaxAttempts,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure runway client")
	}

	// Account activation is best-effort and may fail transiently; run it
	// through the serialized queue so it retries with backoff and is
	// dropped quietly once the budget is spent.
	setupQueue := queue.New(ctx, logger)
	setupQueue.Enqueue(func(ctx context.Context) queue.Outcome {
		if err := runwayClient.SetupAccount(ctx); err != nil {
			if errors.Is(err, domain.ErrMissingCredentials) {
				logger.Warn().Msg("runway credentials not set, skipping account setup")
				return queue.Done
			}
			return queue.Retry
		}
		return queue.Done
	})

	registry := task.NewRegistry()
	orchestrator := task.NewOrchestrator(ctx, registry, runwayClient, logger)

	app := handlers.NewApp(logger, registry, orchestrator, runwayClient)
	router := httpapi.NewRouter(app, cfg.AllowedOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
