package repository

import (
	"context"

	"studyhub-backend/internal/models"
)

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, study_time, game_time, created_at`

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, study_time, game_time, created_at`

	return r.db.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash).Scan(
		&user.ID, &user.StudyTime, &user.GameTime, &user.CreatedAt,
	)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.StudyTime, &user.GameTime, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Taken reports which of username and email already belong to an account.
func (r *UserRepo) Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE username = $1),
			EXISTS(SELECT 1 FROM users WHERE email = $2)
	`, username, email).Scan(&usernameTaken, &emailTaken)
	return
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return checkAffected(r.db.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, userID))
}

// AddStudyTime credits completed study and earned game time, returning the new totals.
func (r *UserRepo) AddStudyTime(ctx context.Context, userID int64, studySeconds, gameSeconds int) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET study_time = study_time + $2,
			game_time = game_time + $3
		WHERE id = $1
		RETURNING `+userColumns,
		userID, studySeconds, gameSeconds,
	).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.StudyTime, &user.GameTime, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) Delete(ctx context.Context, userID int64) error {
	return checkAffected(r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", userID))
}
