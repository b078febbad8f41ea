package routers

import (
	"log/slog"

	"eventsHarvester/internal/transport/httpServer/handlers"
	myMiddleware "eventsHarvester/internal/transport/httpServer/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	log        *slog.Logger
	runHandler *handlers.RunHandler
	secret     string
}

func NewRouter(log *slog.Logger, runHandler *handlers.RunHandler, secret string) *Router {
	return &Router{
		log:        log,
		runHandler: runHandler,
		secret:     secret,
	}
}

func (r *Router) Mount(mux *chi.Mux) {

	mux.Use(cors.AllowAll().Handler)
	mux.Use(myMiddleware.LoggerMiddleware(r.log))
	mux.Use(middleware.Heartbeat("/healthz"))

	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/api", func(mux chi.Router) {
		mux.Route("/v1", func(mux chi.Router) {
			mux.Route("/runs", func(mux chi.Router) {
				mux.Use(myMiddleware.AuthMiddleware(r.secret))
				mux.Post("/", r.runHandler.TriggerAll)
				mux.Post("/{source}", r.runHandler.TriggerRun)
				mux.Get("/latest", r.runHandler.LatestRuns)
			})
			mux.Route("/events", func(mux chi.Router) {
				mux.Get("/", r.runHandler.GetEvents)
			})
		})
	})
}
