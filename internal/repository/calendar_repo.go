package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
)

type CalendarRepo struct {
	db DBTX
}

func NewCalendarRepo(db DBTX) *CalendarRepo {
	return &CalendarRepo{db: db}
}

const eventColumns = `id, title, description, start_time, end_time, user_id, category, location, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.CalendarEvent, error) {
	e := &models.CalendarEvent{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
		&e.UserID, &e.Category, &e.Location, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	return e, nil
}

func (r *CalendarRepo) Create(ctx context.Context, e *models.CalendarEvent) error {
	query := `
		INSERT INTO calendar_events (title, description, start_time, end_time, user_id, category, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		e.Title, e.Description, e.StartTime, e.EndTime, e.UserID, e.Category, e.Location,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (r *CalendarRepo) GetByID(ctx context.Context, id, userID int64) (*models.CalendarEvent, error) {
	return scanEvent(r.db.QueryRow(ctx,
		"SELECT "+eventColumns+" FROM calendar_events WHERE id = $1 AND user_id = $2", id, userID))
}

// List returns events overlapping [from, to). Either bound may be nil.
func (r *CalendarRepo) List(ctx context.Context, userID int64, from, to *time.Time) ([]*models.CalendarEvent, error) {
	args := []interface{}{userID}
	query := "SELECT " + eventColumns + " FROM calendar_events WHERE user_id = $1"
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND end_time > $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND start_time < $%d", len(args))
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.CalendarEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *CalendarRepo) Update(ctx context.Context, e *models.CalendarEvent) error {
	return r.db.QueryRow(ctx, `
		UPDATE calendar_events
		SET title = $1, description = $2, start_time = $3, end_time = $4,
			category = $5, location = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9
		RETURNING updated_at`,
		e.Title, e.Description, e.StartTime, e.EndTime, e.Category, e.Location,
		e.UpdatedAt, e.ID, e.UserID,
	).Scan(&e.UpdatedAt)
}

func (r *CalendarRepo) Delete(ctx context.Context, id, userID int64) error {
	return checkAffected(r.db.Exec(ctx, "DELETE FROM calendar_events WHERE id = $1 AND user_id = $2", id, userID))
}
