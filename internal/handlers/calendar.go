package handlers

import (
	"context"
	"net/http"

	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/models"
)

type calendarService interface {
	Create(ctx context.Context, userID int64, req models.CreateCalendarEventRequest) (*models.CalendarEvent, error)
	Get(ctx context.Context, userID, id int64) (*models.CalendarEvent, error)
	List(ctx context.Context, userID int64, start, end string) ([]*models.CalendarEvent, error)
	Update(ctx context.Context, userID, id int64, req models.UpdateCalendarEventRequest) (*models.CalendarEvent, error)
	Delete(ctx context.Context, userID, id int64) error
}

type CalendarHandler struct {
	calendar calendarService
}

func NewCalendarHandler(calendar calendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.calendar.List(r.Context(), middleware.GetUserID(r.Context()), q.Get("start"), q.Get("end"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCalendarEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.calendar.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	event, err := h.calendar.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req models.UpdateCalendarEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.calendar.Update(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.calendar.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
