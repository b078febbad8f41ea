package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/identity"
	"eventsHarvester/internal/models/domain"
	"eventsHarvester/internal/pipeline"
	"eventsHarvester/internal/scraper/sites"
	"eventsHarvester/internal/upsert"
	"eventsHarvester/internal/utils/logger/sl"
	"eventsHarvester/internal/utils/retry"

	"github.com/google/uuid"
)

// Job is one queued source run. Done closes when the run finishes,
// whatever the outcome.
type Job struct {
	requestID  uuid.UUID
	sourceName string
	Done       chan struct{}
}

// Scraper fans source runs out over a fixed worker pool. Each job
// fetches one source through its adapter and pushes the records through
// the shared pipeline; the resulting summary goes to CompletedRunsChan.
type Scraper struct {
	logger            *slog.Logger
	cfg               *config.Config
	pipeline          *pipeline.Pipeline
	adapters          map[string]sites.ScrapeFunc
	sources           map[string]config.SourceConfig
	jobs              chan Job
	CompletedRunsChan chan domain.RunSummary
	shutdownChannel   chan struct{}
	wg                *sync.WaitGroup
}

func New(
	logger *slog.Logger,
	cfg *config.Config,
	pl *pipeline.Pipeline,
) *Scraper {
	op := "Scraper.New()"
	log := logger.With(
		slog.String("op", op),
	)

	log.Info("Creating scraper service")

	sites.ConfigureDetailFetch(cfg.ScraperConfig.DetailWorkers, cfg.ScraperConfig.DetailDelay)

	s := &Scraper{
		logger:            logger,
		cfg:               cfg,
		pipeline:          pl,
		adapters:          make(map[string]sites.ScrapeFunc),
		sources:           make(map[string]config.SourceConfig),
		jobs:              make(chan Job, cfg.ScraperConfig.JobBufferSize),
		CompletedRunsChan: make(chan domain.RunSummary, 100),
		shutdownChannel:   make(chan struct{}),
		wg:                &sync.WaitGroup{},
	}

	// Adapter registry. A source picks one by name in its config.
	s.adapters["jsonfeed"] = sites.ScrapeJSONFeed
	s.adapters["jsonld"] = sites.ScrapeJSONLD
	s.adapters["listing"] = sites.ScrapeListing
	s.adapters["ics"] = sites.ScrapeICS

	for _, src := range cfg.Sources {
		s.sources[src.Name] = src
	}

	return s
}

// Start launches the worker pool and blocks until shutdown.
func (s *Scraper) Start() {
	op := "Scraper.Start()"
	log := s.logger.With(
		slog.String("op", op),
	)
	for i := 0; i < s.cfg.ScraperConfig.WorkersCount; i++ {
		s.wg.Add(1)
		go s.handleJob(i)
	}
	log.Info("scraper service started", slog.Int("workers", s.cfg.ScraperConfig.WorkersCount))

	s.wg.Wait()
}

// SourceNames lists the configured sources, for the HTTP layer.
func (s *Scraper) SourceNames() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.cfg.Sources {
		names = append(names, src.Name)
	}
	return names
}

// HasSource reports whether a source with this name is configured.
func (s *Scraper) HasSource(name string) bool {
	_, ok := s.sources[name]
	return ok
}

// AddJob enqueues a run for the named source.
func (s *Scraper) AddJob(requestID uuid.UUID, sourceName string) (chan struct{}, error) {
	if _, ok := s.sources[sourceName]; !ok {
		return nil, fmt.Errorf("unknown source %q", sourceName)
	}

	newJob := Job{
		requestID:  requestID,
		sourceName: sourceName,
		Done:       make(chan struct{}),
	}
	select {
	case <-s.shutdownChannel:
		return nil, fmt.Errorf("service is shutting down")
	default:
		if len(s.jobs) < s.cfg.ScraperConfig.JobBufferSize {
			s.jobs <- newJob
			return newJob.Done, nil
		} else {
			return nil, fmt.Errorf("job buffer is full")
		}
	}
}

// handleJob is the worker loop.
func (s *Scraper) handleJob(id int) {
	defer s.wg.Done()
	op := "Scraper.handleJob()"
	log := s.logger.With(
		slog.String("op", op),
		slog.Int("workerId", id),
	)

	log.Info("start scraper job handler")

	for {
		select {
		case <-s.shutdownChannel:
			return
		case job, ok := <-s.jobs:
			if !ok {
				log.Error("jobs channel closed")
				return
			}

			joblog := log.With(
				slog.String("requestID", job.requestID.String()),
				slog.String("source", job.sourceName),
			)

			summary := s.runSource(joblog, s.sources[job.sourceName])

			select {
			case s.CompletedRunsChan <- summary:
			default:
				joblog.Warn("CompletedRunsChan is full, dropping run summary")
			}

			close(job.Done)
		}
	}
}

// runSource fetches one source and pushes its records through the
// pipeline. Fetch failures are retried with backoff; a run that never
// fetches still yields a summary carrying the error.
func (s *Scraper) runSource(log *slog.Logger, srcCfg config.SourceConfig) domain.RunSummary {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ScraperConfig.Timeout)
	defer cancel()

	src, err := buildSource(srcCfg)
	if err != nil {
		log.Error("bad source config", sl.Err(err))
		return failedRun(srcCfg.Name, err)
	}

	scrapeFunc, exists := s.adapters[srcCfg.Adapter]
	if !exists {
		err := fmt.Errorf("no adapter %q", srcCfg.Adapter)
		log.Error("adapter not found", sl.Err(err))
		return failedRun(srcCfg.Name, err)
	}

	var records []domain.RawEventRecord
	err = retry.Do(ctx,
		s.cfg.ScraperConfig.RetryAttempts,
		s.cfg.ScraperConfig.RetryInitial,
		s.cfg.ScraperConfig.RetryMax,
		func() error {
			var ferr error
			records, ferr = scrapeFunc(ctx, srcCfg)
			return ferr
		},
	)
	if err != nil {
		log.Error("scraping failed", sl.Err(err))
		return failedRun(srcCfg.Name, err)
	}

	summary := s.pipeline.Run(ctx, src, records)

	log.Info("scraping completed",
		slog.Int("found", summary.Found),
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
	)

	return summary
}

// buildSource turns the YAML source entry into the pipeline's runtime
// settings.
func buildSource(cfg config.SourceConfig) (pipeline.Source, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return pipeline.Source{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return pipeline.Source{
		Name: cfg.Name,
		Venue: domain.Venue{
			Name:      cfg.Venue.Name,
			Slug:      cfg.Venue.Slug,
			Address:   cfg.Venue.Address,
			Latitude:  cfg.Venue.Latitude,
			Longitude: cfg.Venue.Longitude,
		},
		Location: loc,
		Policy:   upsert.ParsePolicy(cfg.TagPolicy),
		Resolver: identity.Resolver{
			DisambiguateByDate: cfg.SlugCollisions == "date",
			DisambiguateByHash: cfg.SlugCollisions == "hash",
		},
	}, nil
}

func failedRun(source string, err error) domain.RunSummary {
	now := time.Now()
	return domain.RunSummary{
		Source:      source,
		StartedAt:   now,
		FinishedAt:  now,
		SkipReasons: map[string]int{},
		Err:         err.Error(),
	}
}

// Shutdown stops accepting jobs and releases the workers.
func (s *Scraper) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit scraper: %w", ctx.Err())
	default:
		close(s.shutdownChannel)
		close(s.jobs)
		close(s.CompletedRunsChan)
		return nil
	}
}
