package metrics

import (
	"eventsHarvester/internal/models/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_runs_total",
		Help: "Completed source runs by outcome.",
	}, []string{"source", "status"})

	eventsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_events_created_total",
		Help: "Event rows created.",
	}, []string{"source"})

	eventsUpdated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_events_updated_total",
		Help: "Event rows updated in place.",
	}, []string{"source"})

	eventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_events_skipped_total",
		Help: "Records skipped, by reason.",
	}, []string{"source", "reason"})
)

// ObserveRun records one run summary.
func ObserveRun(s domain.RunSummary) {
	status := "ok"
	if s.Err != "" {
		status = "error"
	}
	runsTotal.WithLabelValues(s.Source, status).Inc()
	eventsCreated.WithLabelValues(s.Source).Add(float64(s.Created))
	eventsUpdated.WithLabelValues(s.Source).Add(float64(s.Updated))
	for reason, n := range s.SkipReasons {
		eventsSkipped.WithLabelValues(s.Source, reason).Add(float64(n))
	}
}
