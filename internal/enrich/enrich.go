// Package enrich rewrites thin event descriptions through an LLM. It
// sits entirely outside the deterministic pipeline: tags, dates and
// identity never depend on it, and it is off unless enabled in config.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/models/domain"
	"eventsHarvester/internal/utils/logger/sl"

	"github.com/google/uuid"
	openrouter "github.com/revrost/go-openrouter"
)

const systemPrompt = `You are an editor for a local events calendar. ` +
	`Rewrite the event description you are given into one or two clean ` +
	`sentences. Remove navigation text, script fragments and ticketing ` +
	`boilerplate. Never invent facts that are not in the input. Respond ` +
	`with the rewritten description only.`

// minDescriptionLen is the length under which a description is
// considered thin enough to enrich.
const minDescriptionLen = 50

type Repository interface {
	UpdateEventDescription(ctx context.Context, id uuid.UUID, description string) error
}

// Job is one queued enrichment.
type Job struct {
	requestID uuid.UUID
	event     domain.NormalizedEvent
	eventID   uuid.UUID
	Done      chan struct{}
}

// Enricher runs a small worker pool against the OpenRouter API.
type Enricher struct {
	logger          *slog.Logger
	cfg             *config.Config
	client          *openrouter.Client
	repository      Repository
	jobs            chan Job
	shutdownChannel chan struct{}
	wg              *sync.WaitGroup
}

// New builds the enricher. Returns (nil, nil) when enrichment is
// disabled.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	repository Repository,
) (*Enricher, error) {
	op := "Enricher.New()"
	log := logger.With(
		slog.String("op", op),
	)

	if !cfg.EnrichConfig.Enabled {
		log.Info("enrichment disabled")
		return nil, nil
	}
	if cfg.EnrichConfig.ApiToken == "" || cfg.EnrichConfig.ModelName == "" {
		return nil, fmt.Errorf("%s: enrichment enabled without apitoken/modelName", op)
	}

	log.Info("Creating enrichment client", slog.String("model", cfg.EnrichConfig.ModelName))

	return &Enricher{
		logger:          logger,
		cfg:             cfg,
		client:          openrouter.NewClient(cfg.EnrichConfig.ApiToken),
		repository:      repository,
		jobs:            make(chan Job, cfg.EnrichConfig.JobBufferSize),
		shutdownChannel: make(chan struct{}),
		wg:              &sync.WaitGroup{},
	}, nil
}

// Start launches the workers and blocks until shutdown.
func (s *Enricher) Start() {
	op := "Enricher.Start()"
	log := s.logger.With(
		slog.String("op", op),
	)
	for i := 0; i < s.cfg.EnrichConfig.WorkersCount; i++ {
		s.wg.Add(1)
		go s.handleJob(i)
	}
	log.Info("enrichment service started", slog.Int("workers", s.cfg.EnrichConfig.WorkersCount))

	s.wg.Wait()
}

// AddJob queues an event whose description needs a rewrite. Events
// with an adequate description are accepted and quietly skipped by the
// worker, so callers don't need the threshold.
func (s *Enricher) AddJob(requestID uuid.UUID, eventID uuid.UUID, event domain.NormalizedEvent) (chan struct{}, error) {
	newJob := Job{
		requestID: requestID,
		event:     event,
		eventID:   eventID,
		Done:      make(chan struct{}),
	}
	select {
	case <-s.shutdownChannel:
		return nil, fmt.Errorf("service is shutting down")
	default:
		if len(s.jobs) < s.cfg.EnrichConfig.JobBufferSize {
			s.jobs <- newJob
			return newJob.Done, nil
		} else {
			return nil, fmt.Errorf("job buffer is full")
		}
	}
}

func (s *Enricher) handleJob(id int) {
	defer s.wg.Done()
	op := "Enricher.handleJob()"
	log := s.logger.With(
		slog.String("op", op),
		slog.Int("workerId", id),
	)

	log.Info("start enrichment job handler")

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
				slog.String("title", job.event.Title),
			)

			if len(strings.TrimSpace(job.event.Description)) >= minDescriptionLen {
				close(job.Done)
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.EnrichConfig.Timeout)

			description, err := s.rewriteDescription(ctx, job.event)
			if err != nil {
				cancel()
				joblog.Error("enrichment failed", sl.Err(err))
				close(job.Done)
				continue
			}

			err = s.repository.UpdateEventDescription(ctx, job.eventID, description)
			cancel()

			if err != nil {
				joblog.Error("failed to store enriched description", sl.Err(err))
				close(job.Done)
				continue
			}

			close(job.Done)

			joblog.Info("description enriched")
		}
	}
}

func (s *Enricher) rewriteDescription(ctx context.Context, event domain.NormalizedEvent) (string, error) {
	op := "Enricher.rewriteDescription()"

	userMessage := fmt.Sprintf("Title: %s\nDate: %s\nDescription: %s",
		event.Title,
		event.StartDate.Format("2006-01-02"),
		event.Description,
	)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openrouter.ChatCompletionRequest{
			Model: s.cfg.EnrichConfig.ModelName,
			Messages: []openrouter.ChatCompletionMessage{
				openrouter.SystemMessage(systemPrompt),
				openrouter.UserMessage(userMessage),
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", op)
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content.Text)
	if out == "" {
		return "", fmt.Errorf("%s: blank description", op)
	}
	return out, nil
}

// Shutdown stops accepting jobs and releases the workers.
func (s *Enricher) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit enrichment client: %w", ctx.Err())
	default:
		close(s.shutdownChannel)
		close(s.jobs)
		return nil
	}
}
