package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"studyhub-backend/internal/models"
)

const msgConversationNotFound = "Conversation not found"

// Generator produces an assistant reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ConversationService struct {
	store     Store
	generator Generator
	now       func() time.Time
}

func NewConversationService(store Store, generator Generator) *ConversationService {
	return &ConversationService{store: store, generator: generator, now: time.Now}
}

// Generate answers a prompt in the context of an existing conversation, or starts a new one.
// The generator runs before any write so a failed call leaves no rows behind.
func (s *ConversationService) Generate(ctx context.Context, userID int64, req models.GenerateRequest) (*models.GenerateResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, invalidField("prompt", "Prompt is required")
	}

	var history []*models.AIMessage
	if req.ConversationID != nil {
		repos := s.store.Repos()
		if _, err := repos.Conversations.GetByID(ctx, *req.ConversationID, userID); err != nil {
			return nil, notFoundOr(err, msgConversationNotFound)
		}
		var err error
		history, err = repos.Conversations.ListMessages(ctx, *req.ConversationID)
		if err != nil {
			return nil, err
		}
	}

	reply, err := s.generator.Generate(ctx, BuildConversationContext(history, prompt))
	if err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			return nil, rl
		}
		return nil, &ExternalServiceError{Message: "Failed to generate a response. Please try again.", Err: err}
	}

	var conversationID int64
	err = s.store.WithTx(ctx, func(r Repositories) error {
		now := s.now().UTC()
		if req.ConversationID == nil {
			conv := &models.AIConversation{
				Title:    models.DefaultConversationTitle,
				UserID:   userID,
				IsActive: true,
			}
			if err := r.Conversations.Create(ctx, conv); err != nil {
				return err
			}
			conversationID = conv.ID
		} else {
			if _, err := r.Conversations.GetByID(ctx, *req.ConversationID, userID); err != nil {
				return notFoundOr(err, msgConversationNotFound)
			}
			conversationID = *req.ConversationID
		}

		for _, m := range []*models.AIMessage{
			{ConversationID: conversationID, Role: models.RoleUser, Content: prompt, CreatedAt: now},
			{ConversationID: conversationID, Role: models.RoleAssistant, Content: reply, CreatedAt: now},
		} {
			if err := r.Conversations.AddMessage(ctx, m); err != nil {
				return err
			}
		}
		return r.Conversations.Touch(ctx, conversationID, now)
	})
	if err != nil {
		return nil, err
	}

	return &models.GenerateResponse{Response: reply, ConversationID: conversationID}, nil
}

// BuildConversationContext renders the history as "role: content" lines followed by the new prompt.
func BuildConversationContext(history []*models.AIMessage, prompt string) string {
	var b strings.Builder
	for _, m := range history {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString(models.RoleUser)
	b.WriteString(": ")
	b.WriteString(prompt)
	return b.String()
}

func (s *ConversationService) Create(ctx context.Context, userID int64, title string) (*models.AIConversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultConversationTitle
	}
	if err := validateConversationTitle(title); err != nil {
		return nil, err
	}

	conv := &models.AIConversation{Title: title, UserID: userID, IsActive: true}
	if err := s.store.Repos().Conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) List(ctx context.Context, userID int64) ([]*models.AIConversation, error) {
	return s.store.Repos().Conversations.ListByUser(ctx, userID)
}

// Get returns the conversation with its messages oldest first.
func (s *ConversationService) Get(ctx context.Context, userID, id int64) (*models.AIConversation, error) {
	repos := s.store.Repos()
	conv, err := repos.Conversations.GetByID(ctx, id, userID)
	if err != nil {
		return nil, notFoundOr(err, msgConversationNotFound)
	}
	conv.Messages, err = repos.Conversations.ListMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) UpdateTitle(ctx context.Context, userID, id int64, title string) (*models.AIConversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalidField("title", "Title is required")
	}
	if err := validateConversationTitle(title); err != nil {
		return nil, err
	}

	var conv *models.AIConversation
	err := s.store.WithTx(ctx, func(r Repositories) error {
		if err := r.Conversations.UpdateTitle(ctx, id, userID, title, s.now().UTC()); err != nil {
			return notFoundOr(err, msgConversationNotFound)
		}
		var err error
		conv, err = r.Conversations.GetByID(ctx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func validateConversationTitle(title string) error {
	if utf8.RuneCountInString(title) > models.MaxConversationTitle {
		return invalidField("title", "Title must be at most 100 characters")
	}
	return nil
}

func (s *ConversationService) SetActive(ctx context.Context, userID, id int64, active bool) (*models.AIConversation, error) {
	var conv *models.AIConversation
	err := s.store.WithTx(ctx, func(r Repositories) error {
		if err := r.Conversations.SetActive(ctx, id, userID, active, s.now().UTC()); err != nil {
			return notFoundOr(err, msgConversationNotFound)
		}
		var err error
		conv, err = r.Conversations.GetByID(ctx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.WithTx(ctx, func(r Repositories) error {
		return notFoundOr(r.Conversations.Delete(ctx, id, userID), msgConversationNotFound)
	})
}
