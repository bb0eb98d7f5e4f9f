package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	DefaultConversationTitle = "New Conversation"
	MaxConversationTitle     = 100
)

type AIConversation struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	UserID    int64        `json:"user_id"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Messages  []*AIMessage `json:"messages,omitempty"`
}

type AIMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"` // "user" or "assistant"
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID *int64 `json:"conversation_id"`
}

type GenerateResponse struct {
	Response       string `json:"response"`
	ConversationID int64  `json:"conversation_id"`
}

type ConversationTitleRequest struct {
	Title string `json:"title"`
}
