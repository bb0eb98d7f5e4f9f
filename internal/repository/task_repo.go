package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
)

type TaskRepo struct {
	db DBTX
}

func NewTaskRepo(db DBTX) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `id, title, description, due_date, completed, priority, user_id, calendar_event_id, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Completed,
		&t.Priority, &t.UserID, &t.CalendarEventID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC()
		t.DueDate = &due
	}
	return t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	query := `
		INSERT INTO tasks (title, description, due_date, completed, priority, user_id, calendar_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		t.Title, t.Description, t.DueDate, t.Completed, t.Priority, t.UserID, t.CalendarEventID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id, userID int64) (*models.Task, error) {
	return scanTask(r.db.QueryRow(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1 AND user_id = $2", id, userID))
}

// GetByCalendarEventID finds the task that owns an event.
func (r *TaskRepo) GetByCalendarEventID(ctx context.Context, eventID, userID int64) (*models.Task, error) {
	return scanTask(r.db.QueryRow(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE calendar_event_id = $1 AND user_id = $2", eventID, userID))
}

// List returns a user's tasks, open ones first, then by due date with undated tasks last.
func (r *TaskRepo) List(ctx context.Context, userID int64, completed *bool) ([]*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = $1"
	args := []interface{}{userID}
	if completed != nil {
		query += " AND completed = $2"
		args = append(args, *completed)
	}
	query += " ORDER BY completed ASC, due_date ASC NULLS LAST, priority DESC, id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, t *models.Task) error {
	return r.db.QueryRow(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, due_date = $3, completed = $4,
			priority = $5, calendar_event_id = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9
		RETURNING updated_at`,
		t.Title, t.Description, t.DueDate, t.Completed, t.Priority, t.CalendarEventID,
		t.UpdatedAt, t.ID, t.UserID,
	).Scan(&t.UpdatedAt)
}

func (r *TaskRepo) Delete(ctx context.Context, id, userID int64) error {
	return checkAffected(r.db.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, userID))
}
