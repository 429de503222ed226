// Package api exposes the habit service as a JSON HTTP API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/julianstephens/habitual/internal/habits"
)

// TodayFunc returns the caller's current local date as YYYY-MM-DD. It is used
// when a request does not name a date explicitly.
type TodayFunc func() (string, error)

// Handler serves the habit endpoints.
type Handler struct {
	svc   *habits.Service
	today TodayFunc
}

// NewRouter wires every endpoint and the shared middleware.
func NewRouter(svc *habits.Service, today TodayFunc) chi.Router {
	h := &Handler{svc: svc, today: today}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Recoverer)
	r.Use(RequestLogger)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.ListCategories)

		r.Route("/habits", func(r chi.Router) {
			r.Get("/", h.ListHabits)
			r.Post("/", h.CreateHabit)
			r.Get("/archived/count", h.CountArchived)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetHabit)
				r.Put("/", h.UpdateHabit)
				r.Delete("/", h.DeleteHabit)
				r.Post("/complete", h.CompleteHabit)
				r.Post("/archive", h.ArchiveHabit)
				r.Post("/restore", h.RestoreHabit)
			})
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
