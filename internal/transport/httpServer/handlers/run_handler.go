package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"eventsHarvester/internal/transport/httpServer/handlers/dto"
	"eventsHarvester/internal/utils"
	"eventsHarvester/internal/utils/logger/sl"

	"github.com/go-chi/chi/v5"
)

const defaultEventsLimit = 100

type RunHandler struct {
	orchestrator RunOrchestrator
	repository   EventRepository
	catalog      SourceCatalog
	log          *slog.Logger
}

func NewRunHandler(log *slog.Logger, orchestrator RunOrchestrator, repo EventRepository, catalog SourceCatalog) *RunHandler {
	return &RunHandler{
		orchestrator: orchestrator,
		repository:   repo,
		catalog:      catalog,
		log:          log,
	}
}

// TriggerRun handles POST /api/v1/runs/{source}
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.RunHandler.TriggerRun()"
	log := h.log.With(slog.String("op", op))

	source := chi.URLParam(r, "source")
	if source == "" {
		h.respondError(log, fmt.Errorf("empty source"), w, http.StatusBadRequest)
		return
	}

	if !h.catalog.HasSource(source) {
		h.respondError(log, fmt.Errorf("unknown source: %s", source), w, http.StatusNotFound)
		return
	}

	if err := h.orchestrator.TriggerRun(source); err != nil {
		h.respondError(log, fmt.Errorf("failed to trigger run: %w", err), w, http.StatusServiceUnavailable)
		return
	}

	log.Info("run triggered", slog.String("source", source))

	response := dto.TriggerRunResponse{Source: source, Status: "queued"}
	if err := utils.Json(w, http.StatusAccepted, response); err != nil {
		log.Error("error encoding response", sl.Err(err))
	}
}

// TriggerAll handles POST /api/v1/runs
func (h *RunHandler) TriggerAll(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.RunHandler.TriggerAll()"
	log := h.log.With(slog.String("op", op))

	h.orchestrator.TriggerAll()

	log.Info("all sources triggered")

	response := map[string][]string{"queued": h.catalog.SourceNames()}
	if err := utils.Json(w, http.StatusAccepted, response); err != nil {
		log.Error("error encoding response", sl.Err(err))
	}
}

// LatestRuns handles GET /api/v1/runs/latest
func (h *RunHandler) LatestRuns(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.RunHandler.LatestRuns()"
	log := h.log.With(slog.String("op", op))

	response := dto.MapRunSummaryToResponseList(h.orchestrator.LatestSummaries())

	if err := utils.Json(w, http.StatusOK, response); err != nil {
		log.Error("error encoding response", sl.Err(err))
	}
}

// GetEvents handles GET /api/v1/events?limit=...
// Returns upcoming events, soonest first.
func (h *RunHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.RunHandler.GetEvents()"
	log := h.log.With(slog.String("op", op))

	limit := defaultEventsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respondError(log, fmt.Errorf("invalid limit: %s", raw), w, http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := h.repository.ListUpcomingEvents(r.Context(), time.Now().Truncate(24*time.Hour), limit)
	if err != nil {
		h.respondError(log, fmt.Errorf("failed to get events: %w", err), w, http.StatusInternalServerError)
		return
	}

	response := dto.MapEventToResponseList(events)

	if err := utils.Json(w, http.StatusOK, response); err != nil {
		log.Error("error encoding response", sl.Err(err))
	}
}

func (h *RunHandler) respondError(log *slog.Logger, err error, w http.ResponseWriter, status int) {
	log.Error("handler error", sl.Err(err))
	if httpErr := utils.Err(w, status, err); httpErr != nil {
		log.Error("error sending http response", sl.Err(httpErr))
	}
}
