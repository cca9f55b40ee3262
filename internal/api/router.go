// Package api exposes the ingestion trigger, approval and schedule
// operations over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/internal/service"
	"github.com/Guizzs26/go-sync-hr/pkg/infra/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Runner interface {
	Run(ctx context.Context, req service.Request) service.Result
}

type Approvals interface {
	Pending(ctx context.Context) ([]models.ImportLog, error)
	Approve(ctx context.Context, id int64, approvedBy string) (models.ImportLog, error)
	Reject(ctx context.Context, id int64, rejectedBy, reason string) (models.ImportLog, error)
}

type Schedules interface {
	Current(ctx context.Context) (models.ScheduleConfig, error)
	Update(ctx context.Context, frequency models.Frequency, day time.Weekday, runTime string) (models.ScheduleConfig, error)
}

type VersionHistory interface {
	History(ctx context.Context, filename string, limit int) ([]models.FileVersion, error)
}

// Handlers holds the services behind the routes.
type Handlers struct {
	runner     Runner
	approvals  Approvals
	schedules  Schedules
	history    VersionHistory
	cronSecret string
	logger     *slog.Logger
}

func NewHandlers(r Runner, a Approvals, s Schedules, h VersionHistory, cronSecret string, l *slog.Logger) *Handlers {
	return &Handlers{
		runner:     r,
		approvals:  a,
		schedules:  s,
		history:    h,
		cronSecret: cronSecret,
		logger:     l,
	}
}

// Router builds the chi router for the API.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", h.HandleIngest)

		r.Route("/imports", func(r chi.Router) {
			r.Get("/pending", h.HandlePending)
			r.Post("/{id}/approve", h.HandleApprove)
			r.Post("/{id}/reject", h.HandleReject)
		})

		r.Get("/schedule", h.HandleGetSchedule)
		r.Put("/schedule", h.HandleUpdateSchedule)

		r.Get("/files/{name}/versions", h.HandleVersions)
	})
	return r
}

// NewServer wraps the router with the timeouts every listener uses. Ingest
// requests run a whole pipeline, so the write timeout is generous.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Minute,
	}
}
