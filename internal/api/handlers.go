package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/habitual/internal/calendar"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

const maxBodyBytes = 1 << 20

type habitRequest struct {
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	StartDate        string             `json:"start_date"`
	FrequencyType    calendar.Frequency `json:"frequency_type"`
	TargetCount      int                `json:"target_count"`
	SelectedWeekdays []int              `json:"selected_weekdays"`
	CategoryID       string             `json:"category_id"`
	CategoryName     string             `json:"category_name"`
}

func (r habitRequest) input() habits.HabitInput {
	return habits.HabitInput{
		Name:             r.Name,
		Description:      r.Description,
		StartDate:        r.StartDate,
		FrequencyType:    r.FrequencyType,
		TargetCount:      r.TargetCount,
		SelectedWeekdays: r.SelectedWeekdays,
		CategoryID:       r.CategoryID,
		CategoryName:     r.CategoryName,
	}
}

type completeRequest struct {
	Date        string     `json:"date"`
	CompletedAt *time.Time `json:"completed_at"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, habits.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, habits.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, habits.ErrNotStarted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", habits.ErrValidation, err)
	}
	return nil
}

// dateParam returns the "date" query parameter, or today when it is absent.
func (h *Handler) dateParam(r *http.Request) (string, error) {
	if date := r.URL.Query().Get("date"); date != "" {
		return date, nil
	}
	return h.today()
}

func (h *Handler) ListHabits(w http.ResponseWriter, r *http.Request) {
	status := models.StatusActive
	if s := r.URL.Query().Get("status"); s != "" {
		status = models.HabitStatus(s)
	}
	today, err := h.dateParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list, err := h.svc.ListHabitsWithStats(r.Context(), status, today)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetHabit(w http.ResponseWriter, r *http.Request) {
	today, err := h.dateParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	habit, err := h.svc.GetHabitWithStats(r.Context(), chi.URLParam(r, "id"), today)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *Handler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := h.svc.CreateHabit(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.UpdateHabit(r.Context(), chi.URLParam(r, "id"), req.input()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CompleteHabit(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	if req.Date == "" {
		today, err := h.today()
		if err != nil {
			h.fail(w, r, err)
			return
		}
		req.Date = today
	}

	result, err := h.svc.CompleteHabit(r.Context(), chi.URLParam(r, "id"), req.Date, req.CompletedAt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ArchiveHabit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.ArchiveHabit)
}

func (h *Handler) RestoreHabit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.RestoreHabit)
}

func (h *Handler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.DeleteHabit)
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) error) {
	if err := op(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) CountArchived(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.CountArchivedHabits(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
