package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	AddStudyTime(ctx context.Context, userID int64, studySeconds, gameSeconds int) (*models.User, error)
	Delete(ctx context.Context, userID int64) error
}

type studySessionRepository interface {
	Create(ctx context.Context, s *models.StudySession) error
	GetByID(ctx context.Context, id, userID int64) (*models.StudySession, error)
	GetActive(ctx context.Context, userID int64) (*models.StudySession, error)
	Update(ctx context.Context, s *models.StudySession) error
	Delete(ctx context.Context, id, userID int64) error
	List(ctx context.Context, userID int64, f models.StudySessionFilter) ([]*models.StudySession, int, error)
}

type taskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id, userID int64) (*models.Task, error)
	GetByCalendarEventID(ctx context.Context, eventID, userID int64) (*models.Task, error)
	List(ctx context.Context, userID int64, completed *bool) ([]*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id, userID int64) error
}

type calendarRepository interface {
	Create(ctx context.Context, e *models.CalendarEvent) error
	GetByID(ctx context.Context, id, userID int64) (*models.CalendarEvent, error)
	List(ctx context.Context, userID int64, from, to *time.Time) ([]*models.CalendarEvent, error)
	Update(ctx context.Context, e *models.CalendarEvent) error
	Delete(ctx context.Context, id, userID int64) error
}

type conversationRepository interface {
	Create(ctx context.Context, c *models.AIConversation) error
	GetByID(ctx context.Context, id, userID int64) (*models.AIConversation, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.AIConversation, error)
	UpdateTitle(ctx context.Context, id, userID int64, title string, at time.Time) error
	SetActive(ctx context.Context, id, userID int64, active bool, at time.Time) error
	Touch(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id, userID int64) error
	AddMessage(ctx context.Context, m *models.AIMessage) error
	ListMessages(ctx context.Context, conversationID int64) ([]*models.AIMessage, error)
}

// Repositories is the set of repos bound to one connection or transaction.
type Repositories struct {
	Users         userRepository
	Sessions      studySessionRepository
	Tasks         taskRepository
	Calendar      calendarRepository
	Conversations conversationRepository
}

// Store hands out repositories, either directly on the pool or inside a transaction.
type Store interface {
	Repos() Repositories
	WithTx(ctx context.Context, fn func(r Repositories) error) error
}

type PgStore struct {
	pool  *pgxpool.Pool
	repos Repositories
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, repos: newRepositories(pool)}
}

func newRepositories(db repository.DBTX) Repositories {
	return Repositories{
		Users:         repository.NewUserRepo(db),
		Sessions:      repository.NewStudySessionRepo(db),
		Tasks:         repository.NewTaskRepo(db),
		Calendar:      repository.NewCalendarRepo(db),
		Conversations: repository.NewConversationRepo(db),
	}
}

func (s *PgStore) Repos() Repositories {
	return s.repos
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (s *PgStore) WithTx(ctx context.Context, fn func(r Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(newRepositories(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
