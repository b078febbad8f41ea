package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/metrics"
	"eventsHarvester/internal/models/domain"
	"eventsHarvester/internal/utils/logger/sl"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const summaryHistorySize = 100

// Scraper is the job-queue side of the scraper service.
type Scraper interface {
	AddJob(requestID uuid.UUID, sourceName string) (chan struct{}, error)
}

// Notifier delivers a finished run's summary to an operator channel.
type Notifier interface {
	Notify(summary domain.RunSummary) error
}

// Orchestrator drives the harvest: it schedules per-source cron runs,
// accepts manual triggers from the HTTP layer, and drains the scraper's
// completed-run channel into metrics, notifications and a small
// in-memory history.
type Orchestrator struct {
	logger            *slog.Logger
	cfg               *config.Config
	scraper           Scraper
	notifier          Notifier
	completedRunsChan <-chan domain.RunSummary
	cron              *cron.Cron

	mu            sync.Mutex
	lastSummaries []domain.RunSummary

	shutdownChan chan struct{}
}

func New(
	logger *slog.Logger,
	cfg *config.Config,
	scraper Scraper,
	notifier Notifier,
	completedRunsChan <-chan domain.RunSummary,
) *Orchestrator {
	op := "Orchestrator.New()"
	log := logger.With(slog.String("op", op))
	log.Info("Creating orchestrator")

	return &Orchestrator{
		logger:            logger,
		cfg:               cfg,
		scraper:           scraper,
		notifier:          notifier,
		completedRunsChan: completedRunsChan,
		cron:              cron.New(),
		lastSummaries:     make([]domain.RunSummary, 0, summaryHistorySize),
		shutdownChan:      make(chan struct{}),
	}
}

// Start registers the cron schedules and begins draining completed
// runs.
func (o *Orchestrator) Start() {
	op := "Orchestrator.Start()"
	log := o.logger.With(slog.String("op", op))

	for _, src := range o.cfg.Sources {
		if src.Schedule == "" {
			continue
		}
		name := src.Name
		_, err := o.cron.AddFunc(src.Schedule, func() {
			if err := o.TriggerRun(name); err != nil {
				log.Error("scheduled run failed to enqueue",
					slog.String("source", name),
					sl.Err(err),
				)
			}
		})
		if err != nil {
			log.Error("bad cron schedule",
				slog.String("source", name),
				slog.String("schedule", src.Schedule),
				sl.Err(err),
			)
			continue
		}
		log.Info("source scheduled",
			slog.String("source", name),
			slog.String("schedule", src.Schedule),
		)
	}
	o.cron.Start()

	go o.processCompletedRuns()

	log.Info("orchestrator started")
}

// TriggerRun enqueues one run for the named source.
func (o *Orchestrator) TriggerRun(sourceName string) error {
	op := "Orchestrator.TriggerRun()"
	log := o.logger.With(slog.String("op", op))

	requestID := uuid.New()
	_, err := o.scraper.AddJob(requestID, sourceName)
	if err != nil {
		log.Error("failed to add job",
			slog.String("source", sourceName),
			sl.Err(err),
		)
		return fmt.Errorf("trigger run for %q: %w", sourceName, err)
	}

	log.Debug("run enqueued",
		slog.String("requestID", requestID.String()),
		slog.String("source", sourceName),
	)

	return nil
}

// TriggerAll enqueues one run per configured source.
func (o *Orchestrator) TriggerAll() {
	for _, src := range o.cfg.Sources {
		if err := o.TriggerRun(src.Name); err != nil {
			o.logger.Warn("source skipped", slog.String("source", src.Name), sl.Err(err))
		}
	}
}

// LatestSummaries returns the most recent run summaries, newest first.
func (o *Orchestrator) LatestSummaries() []domain.RunSummary {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]domain.RunSummary, len(o.lastSummaries))
	for i, s := range o.lastSummaries {
		out[len(out)-1-i] = s
	}
	return out
}

// processCompletedRuns drains the scraper's summary channel.
func (o *Orchestrator) processCompletedRuns() {
	op := "Orchestrator.processCompletedRuns()"
	log := o.logger.With(slog.String("op", op))

	for {
		select {
		case <-o.shutdownChan:
			log.Info("processCompletedRuns shutting down")
			return
		case summary, ok := <-o.completedRunsChan:
			if !ok {
				log.Info("completedRunsChan closed")
				return
			}

			metrics.ObserveRun(summary)
			o.remember(summary)

			if o.notifier != nil {
				if err := o.notifier.Notify(summary); err != nil {
					log.Warn("notification failed",
						slog.String("source", summary.Source),
						sl.Err(err),
					)
				}
			}

			log.Debug("run summary recorded", slog.String("source", summary.Source))
		}
	}
}

func (o *Orchestrator) remember(summary domain.RunSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.lastSummaries = append(o.lastSummaries, summary)
	if len(o.lastSummaries) > summaryHistorySize {
		o.lastSummaries = o.lastSummaries[len(o.lastSummaries)-summaryHistorySize:]
	}
}

// Shutdown stops the scheduler and the summary drain.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	stopped := o.cron.Stop()
	close(o.shutdownChan)

	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit orchestrator: %w", ctx.Err())
	case <-stopped.Done():
		return nil
	}
}
