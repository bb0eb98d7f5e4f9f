package handlers

import (
	"context"
	"net/http"

	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/models"
)

type conversationService interface {
	Generate(ctx context.Context, userID int64, req models.GenerateRequest) (*models.GenerateResponse, error)
	Create(ctx context.Context, userID int64, title string) (*models.AIConversation, error)
	List(ctx context.Context, userID int64) ([]*models.AIConversation, error)
	Get(ctx context.Context, userID, id int64) (*models.AIConversation, error)
	UpdateTitle(ctx context.Context, userID, id int64, title string) (*models.AIConversation, error)
	SetActive(ctx context.Context, userID, id int64, active bool) (*models.AIConversation, error)
	Delete(ctx context.Context, userID, id int64) error
}

type AssistantHandler struct {
	conversations conversationService
}

func NewAssistantHandler(conversations conversationService) *AssistantHandler {
	return &AssistantHandler{conversations: conversations}
}

func (h *AssistantHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.conversations.Generate(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AssistantHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.conversations.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *AssistantHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req models.ConversationTitleRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	conv, err := h.conversations.Create(r.Context(), middleware.GetUserID(r.Context()), req.Title)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *AssistantHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	conv, err := h.conversations.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *AssistantHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req models.ConversationTitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.conversations.UpdateTitle(r.Context(), middleware.GetUserID(r.Context()), id, req.Title)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *AssistantHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *AssistantHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *AssistantHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	conv, err := h.conversations.SetActive(r.Context(), middleware.GetUserID(r.Context()), id, active)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *AssistantHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.conversations.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
