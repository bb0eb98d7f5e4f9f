package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
)

type ConversationRepo struct {
	db DBTX
}

func NewConversationRepo(db DBTX) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, title, user_id, is_active, created_at, updated_at`

func scanConversation(row pgx.Row) (*models.AIConversation, error) {
	c := &models.AIConversation{}
	if err := row.Scan(&c.ID, &c.Title, &c.UserID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ConversationRepo) Create(ctx context.Context, c *models.AIConversation) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO ai_conversations (title, user_id, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		c.Title, c.UserID, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id, userID int64) (*models.AIConversation, error) {
	return scanConversation(r.db.QueryRow(ctx,
		"SELECT "+conversationColumns+" FROM ai_conversations WHERE id = $1 AND user_id = $2", id, userID))
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID int64) ([]*models.AIConversation, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+conversationColumns+" FROM ai_conversations WHERE user_id = $1 ORDER BY updated_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := make([]*models.AIConversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) UpdateTitle(ctx context.Context, id, userID int64, title string, at time.Time) error {
	return checkAffected(r.db.Exec(ctx,
		"UPDATE ai_conversations SET title = $1, updated_at = $2 WHERE id = $3 AND user_id = $4",
		title, at, id, userID))
}

func (r *ConversationRepo) SetActive(ctx context.Context, id, userID int64, active bool, at time.Time) error {
	return checkAffected(r.db.Exec(ctx,
		"UPDATE ai_conversations SET is_active = $1, updated_at = $2 WHERE id = $3 AND user_id = $4",
		active, at, id, userID))
}

// Touch bumps updated_at so the conversation sorts first.
func (r *ConversationRepo) Touch(ctx context.Context, id int64, at time.Time) error {
	return checkAffected(r.db.Exec(ctx, "UPDATE ai_conversations SET updated_at = $1 WHERE id = $2", at, id))
}

// Delete removes the messages and then the conversation. Callers run it in a transaction.
func (r *ConversationRepo) Delete(ctx context.Context, id, userID int64) error {
	if _, err := r.db.Exec(ctx, `
		DELETE FROM ai_messages
		WHERE conversation_id IN (SELECT id FROM ai_conversations WHERE id = $1 AND user_id = $2)`,
		id, userID); err != nil {
		return err
	}
	return checkAffected(r.db.Exec(ctx, "DELETE FROM ai_conversations WHERE id = $1 AND user_id = $2", id, userID))
}

func (r *ConversationRepo) AddMessage(ctx context.Context, m *models.AIMessage) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO ai_messages (conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		m.ConversationID, m.Role, m.Content, m.CreatedAt,
	).Scan(&m.ID)
}

// ListMessages returns a conversation's messages oldest first.
func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID int64) ([]*models.AIMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM ai_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]*models.AIMessage, 0)
	for rows.Next() {
		m := &models.AIMessage{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
