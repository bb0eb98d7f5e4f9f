package handlers

import (
	"context"
	"net/http"

	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/models"
)

type studySessionService interface {
	Create(ctx context.Context, userID int64, req models.CreateStudySessionRequest) (*models.StudySession, error)
	Get(ctx context.Context, userID, id int64) (*models.StudySession, error)
	Update(ctx context.Context, userID, id int64, req models.UpdateStudySessionRequest) (*models.StudySession, error)
	Delete(ctx context.Context, userID, id int64) error
	List(ctx context.Context, userID int64, q models.StudySessionQuery) (*models.StudySessionPage, error)
	Start(ctx context.Context, userID int64, req models.StartStudySessionRequest) (*models.StudySession, error)
	End(ctx context.Context, userID int64, req models.EndStudySessionRequest) (*models.SessionEndResult, error)
	Active(ctx context.Context, userID int64) (*models.StudySession, error)
	Stats(ctx context.Context, userID int64, startDate, endDate string) (*models.StudyStats, error)
}

type StudySessionHandler struct {
	sessions studySessionService
}

func NewStudySessionHandler(sessions studySessionService) *StudySessionHandler {
	return &StudySessionHandler{sessions: sessions}
}

func (h *StudySessionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.sessions.List(r.Context(), middleware.GetUserID(r.Context()), models.StudySessionQuery{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Completed: q.Get("completed"),
		Subject:   q.Get("subject"),
		Limit:     q.Get("limit"),
		Offset:    q.Get("offset"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *StudySessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudySessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.sessions.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *StudySessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	session, err := h.sessions.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *StudySessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req models.UpdateStudySessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.sessions.Update(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *StudySessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StudySessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartStudySessionRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	session, err := h.sessions.Start(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *StudySessionHandler) End(w http.ResponseWriter, r *http.Request) {
	var req models.EndStudySessionRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.sessions.End(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *StudySessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Active(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *StudySessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.sessions.Stats(r.Context(), middleware.GetUserID(r.Context()), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
