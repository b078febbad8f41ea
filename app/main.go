package main

import (
	"context"
	"eventsHarvester/internal/config"
	"eventsHarvester/internal/enrich"
	"eventsHarvester/internal/graceful"
	"eventsHarvester/internal/orchestrator"
	"eventsHarvester/internal/pipeline"
	"eventsHarvester/internal/repositories"
	"eventsHarvester/internal/scraper"
	"eventsHarvester/internal/tagging"
	"eventsHarvester/internal/telegram"
	"eventsHarvester/internal/transport/httpServer"
	"eventsHarvester/internal/transport/httpServer/handlers"
	"eventsHarvester/internal/transport/httpServer/routers"
	"eventsHarvester/internal/upsert"
	"eventsHarvester/internal/utils/logger/handlers/slogpretty"
	"eventsHarvester/internal/utils/logger/sl"
	"log/slog"
	"os"
	"time"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var Version = "0.1"

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info(
		"starting events harvester",
		slog.String("env", cfg.Env),
		slog.String("version", Version),
		slog.Int("sources", len(cfg.Sources)),
	)

	repositoryService, err := repositories.New(log, cfg)
	if err != nil {
		log.Error("failed to connect to database", sl.Err(err))
		os.Exit(1)
	}

	classifier, err := tagging.FromConfig(cfg.TaggingConfig)
	if err != nil {
		log.Error("failed to build tag classifier", sl.Err(err))
		os.Exit(1)
	}

	upsertService := upsert.New(log, repositoryService, upsert.RetryConfig{
		Attempts: cfg.ScraperConfig.RetryAttempts,
		Initial:  cfg.ScraperConfig.RetryInitial,
		Max:      cfg.ScraperConfig.RetryMax,
	})

	pipelineService := pipeline.New(log, classifier, upsertService)

	enrichService, err := enrich.New(log, cfg, repositoryService)
	if err != nil {
		log.Error("failed to create enrichment client", sl.Err(err))
		os.Exit(1)
	}
	if enrichService != nil {
		pipelineService.WithEnricher(enrichService)
	}

	scraperService := scraper.New(log, cfg, pipelineService)

	notifier, err := telegram.New(log, cfg.NotifierConfig)
	if err != nil {
		log.Error("failed to connect telegram notifier", sl.Err(err))
		os.Exit(1)
	}

	var orchestratorNotifier orchestrator.Notifier
	if notifier != nil {
		orchestratorNotifier = notifier
	}
	orchestratorService := orchestrator.New(log, cfg, scraperService, orchestratorNotifier, scraperService.CompletedRunsChan)

	// HTTP Server
	runHandler := handlers.NewRunHandler(log, orchestratorService, repositoryService, scraperService)
	router := routers.NewRouter(log, runHandler, cfg.HttpServer.Secret)
	httpSrv := httpServer.NewHttpServer(log, cfg, router)

	maxSecond := 15 * time.Second
	waitShutdown := graceful.GracefulShutdown(
		context.Background(),
		maxSecond,
		map[string]graceful.Operation{
			"Scraper service": func(ctx context.Context) error {
				return scraperService.Shutdown(ctx)
			},
			"Orchestrator service": func(ctx context.Context) error {
				return orchestratorService.Shutdown(ctx)
			},
			"Repository service": func(ctx context.Context) error {
				return repositoryService.Shutdown(ctx)
			},
			"HTTP server": func(ctx context.Context) error {
				return httpSrv.Shutdown(ctx)
			},
			"Enrichment service": func(ctx context.Context) error {
				if enrichService == nil {
					return nil
				}
				return enrichService.Shutdown(ctx)
			},
		},
		log,
	)

	if enrichService != nil {
		go enrichService.Start()
	}
	go scraperService.Start()
	orchestratorService.Start()
	go httpSrv.Listen()

	<-waitShutdown
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog(slog.LevelDebug)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default: // If env config is invalid, set prod settings by default due to security
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog(level slog.Level) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: level,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
