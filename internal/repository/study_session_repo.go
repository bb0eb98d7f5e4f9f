package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
)

type StudySessionRepo struct {
	db DBTX
}

func NewStudySessionRepo(db DBTX) *StudySessionRepo {
	return &StudySessionRepo{db: db}
}

const sessionColumns = `id, user_id, subject, start_time, end_time, duration, notes, created_at, updated_at`

func scanSession(row pgx.Row) (*models.StudySession, error) {
	s := &models.StudySession{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.Subject, &s.StartTime, &s.EndTime,
		&s.Duration, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	if s.EndTime != nil {
		end := s.EndTime.UTC()
		s.EndTime = &end
	}
	return s, nil
}

func (r *StudySessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	query := `
		INSERT INTO study_sessions (user_id, subject, start_time, end_time, duration, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		s.UserID, s.Subject, s.StartTime, s.EndTime, s.Duration, s.Notes,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *StudySessionRepo) GetByID(ctx context.Context, id, userID int64) (*models.StudySession, error) {
	return scanSession(r.db.QueryRow(ctx,
		"SELECT "+sessionColumns+" FROM study_sessions WHERE id = $1 AND user_id = $2", id, userID))
}

// GetActive locks the user's running session, if any, for the rest of the transaction.
func (r *StudySessionRepo) GetActive(ctx context.Context, userID int64) (*models.StudySession, error) {
	return scanSession(r.db.QueryRow(ctx,
		"SELECT "+sessionColumns+" FROM study_sessions WHERE user_id = $1 AND end_time IS NULL FOR UPDATE", userID))
}

func (r *StudySessionRepo) Update(ctx context.Context, s *models.StudySession) error {
	return r.db.QueryRow(ctx, `
		UPDATE study_sessions
		SET subject = $1, notes = $2, start_time = $3, end_time = $4, duration = $5, updated_at = $6
		WHERE id = $7 AND user_id = $8
		RETURNING updated_at`,
		s.Subject, s.Notes, s.StartTime, s.EndTime, s.Duration, s.UpdatedAt, s.ID, s.UserID,
	).Scan(&s.UpdatedAt)
}

func (r *StudySessionRepo) Delete(ctx context.Context, id, userID int64) error {
	return checkAffected(r.db.Exec(ctx, "DELETE FROM study_sessions WHERE id = $1 AND user_id = $2", id, userID))
}

func (r *StudySessionRepo) List(ctx context.Context, userID int64, f models.StudySessionFilter) ([]*models.StudySession, int, error) {
	var args []interface{}
	argIdx := 1

	where := fmt.Sprintf("WHERE user_id = $%d", argIdx)
	args = append(args, userID)
	argIdx++

	if f.StartDate != nil {
		where += fmt.Sprintf(" AND start_time >= $%d", argIdx)
		args = append(args, *f.StartDate)
		argIdx++
	}
	if f.EndDate != nil {
		where += fmt.Sprintf(" AND start_time < $%d", argIdx)
		args = append(args, *f.EndDate)
		argIdx++
	}
	if f.Completed != nil {
		if *f.Completed {
			where += " AND end_time IS NOT NULL"
		} else {
			where += " AND end_time IS NULL"
		}
	}
	if f.Subject != "" {
		where += fmt.Sprintf(" AND subject ILIKE $%d", argIdx)
		args = append(args, "%"+escapeLike(f.Subject)+"%")
		argIdx++
	}

	// Count total
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM study_sessions "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + sessionColumns + " FROM study_sessions " + where + " ORDER BY start_time DESC, id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, f.Limit, f.Offset)
	} else if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, f.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions := make([]*models.StudySession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}

	return sessions, total, rows.Err()
}
