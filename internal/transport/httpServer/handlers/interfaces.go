package handlers

import (
	"context"
	"time"

	"eventsHarvester/internal/models/domain"
	repoModels "eventsHarvester/internal/models/repositories"
)

// RunOrchestrator is the orchestrator surface the handlers use.
type RunOrchestrator interface {
	TriggerRun(sourceName string) error
	TriggerAll()
	LatestSummaries() []domain.RunSummary
}

// EventRepository reads persisted events for the API.
type EventRepository interface {
	ListUpcomingEvents(ctx context.Context, from time.Time, limit int) ([]repoModels.Event, error)
}

// SourceCatalog answers which sources exist.
type SourceCatalog interface {
	HasSource(name string) bool
	SourceNames() []string
}
