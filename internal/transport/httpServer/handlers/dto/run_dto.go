package dto

import (
	"time"

	"eventsHarvester/internal/models/domain"
	repoModels "eventsHarvester/internal/models/repositories"

	"github.com/google/uuid"
)

// RunSummaryResponse mirrors one finished harvest run.
type RunSummaryResponse struct {
	Source      string         `json:"source"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Found       int            `json:"found"`
	Created     int            `json:"created"`
	Updated     int            `json:"updated"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// TriggerRunResponse acknowledges an enqueued run.
type TriggerRunResponse struct {
	Source string `json:"source"`
	Status string `json:"status"`
}

// EventResponse is the read model for a persisted event.
type EventResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Link        string     `json:"link,omitempty"`
	Slug        string     `json:"slug"`
	Image       string     `json:"image,omitempty"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date,omitempty"`
	StartTime   string     `json:"start_time,omitempty"`
	EndTime     string     `json:"end_time,omitempty"`
	Description string     `json:"description,omitempty"`
	VenueID     *uuid.UUID `json:"venue_id,omitempty"`
	Source      string     `json:"source"`
}

func MapRunSummaryToResponse(s domain.RunSummary) RunSummaryResponse {
	return RunSummaryResponse{
		Source:      s.Source,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		Found:       s.Found,
		Created:     s.Created,
		Updated:     s.Updated,
		Skipped:     s.Skipped,
		SkipReasons: s.SkipReasons,
		Error:       s.Err,
	}
}

func MapRunSummaryToResponseList(summaries []domain.RunSummary) []RunSummaryResponse {
	result := make([]RunSummaryResponse, len(summaries))
	for i, s := range summaries {
		result[i] = MapRunSummaryToResponse(s)
	}
	return result
}

func MapEventToResponse(e repoModels.Event) EventResponse {
	resp := EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Link:        e.Link.String,
		Slug:        e.Slug,
		Image:       e.Image.String,
		StartDate:   e.StartDate.Format("2006-01-02"),
		StartTime:   e.StartTime.String,
		EndTime:     e.EndTime.String,
		Description: e.Description.String,
		Source:      e.Source,
	}
	if e.EndDate.Valid {
		resp.EndDate = e.EndDate.Time.Format("2006-01-02")
	}
	if e.VenueID.Valid {
		id := e.VenueID.UUID
		resp.VenueID = &id
	}
	return resp
}

func MapEventToResponseList(events []repoModels.Event) []EventResponse {
	result := make([]EventResponse, len(events))
	for i, e := range events {
		result[i] = MapEventToResponse(e)
	}
	return result
}
