package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
)

const (
	bcryptCost        = 12
	minPasswordLength = 8
	maxPasswordBytes  = 72 // bcrypt input limit
	minUsernameLength = 3
	maxUsernameLength = 80
	maxEmailLength    = 120

	msgBadCredentials = "Invalid username or password"
	msgBadRefresh     = "Invalid or expired refresh token. Please log in again."
	msgUserNotFound   = "User not found"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	errTokenNotFound = errors.New("refresh token not found")
)

// tokenIssuer signs access tokens.
type tokenIssuer interface {
	GenerateAccessToken(userID int64, username string) (string, error)
}

// refreshTokenStore keeps opaque refresh tokens with a TTL.
type refreshTokenStore interface {
	Save(ctx context.Context, token string, userID int64, ttl time.Duration) error
	// Consume returns the owner and deletes the token in one step.
	Consume(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func refreshKey(token string) string { return "refresh:" + token }

func (s *RedisTokenStore) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKey(token), strconv.FormatInt(userID, 10), ttl).Err()
}

func (s *RedisTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	val, err := s.client.GetDel(ctx, refreshKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, errTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, refreshKey(token)).Err()
}

type AuthService struct {
	store      Store
	tokens     refreshTokenStore
	jwt        tokenIssuer
	accessTTL  time.Duration
	refreshTTL time.Duration
	cost       int
}

func NewAuthService(store Store, tokens refreshTokenStore, jwt tokenIssuer, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		store:      store,
		tokens:     tokens,
		jwt:        jwt,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		cost:       bcryptCost,
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	// Validate all fields at once
	errs := fieldErrors{}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(strings.ToLower(req.Email))

	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		errs.add("username", "Username is required")
	case n < minUsernameLength || n > maxUsernameLength:
		errs.add("username", "Username must be between 3 and 80 characters")
	}
	if len(email) > maxEmailLength || !emailRegex.MatchString(email) {
		errs.add("email", "Invalid email format")
	}
	if err := validatePassword(req.Password); err != nil {
		errs.add("password", err.Error())
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	users := s.store.Repos().Users

	// Check uniqueness
	usernameTaken, emailTaken, err := users.Taken(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if usernameTaken {
		return nil, &ConflictError{Message: "Username already taken"}
	}
	if emailTaken {
		return nil, &ConflictError{Message: "Email already in use"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := users.Create(ctx, user); err != nil {
		switch {
		case repository.IsUniqueViolation(err, repository.ConstraintUsername):
			return nil, &ConflictError{Message: "Username already taken"}
		case repository.IsUniqueViolation(err, repository.ConstraintEmail):
			return nil, &ConflictError{Message: "Email already in use"}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	errs := fieldErrors{}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		errs.add("username", "Username is required")
	}
	if req.Password == "" {
		errs.add("password", "Password is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	user, err := s.store.Repos().Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &AuthenticationError{Message: msgBadCredentials}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &AuthenticationError{Message: msgBadCredentials}
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token into a fresh token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	if refreshToken == "" {
		return nil, invalidField("refresh_token", "Refresh token is required")
	}

	// Rotation: a token can be redeemed once, even under concurrent refreshes.
	userID, err := s.tokens.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, errTokenNotFound) {
			return nil, &AuthenticationError{Message: msgBadRefresh}
		}
		return nil, err
	}

	user, err := s.store.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &AuthenticationError{Message: msgBadRefresh}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, refreshToken)
}

func (s *AuthService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, msgUserNotFound)
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error {
	errs := fieldErrors{}
	if req.CurrentPassword == "" {
		errs.add("current_password", "Current password is required")
	}
	if err := validatePassword(req.NewPassword); err != nil {
		errs.add("new_password", err.Error())
	}
	if err := errs.err(); err != nil {
		return err
	}

	users := s.store.Repos().Users
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, msgUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return &AuthenticationError{Message: "Current password is incorrect"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return notFoundOr(users.UpdatePassword(ctx, userID, string(hash)), msgUserNotFound)
}

// DeleteAccount removes the user; the schema cascades to everything they own.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	return notFoundOr(s.store.Repos().Users.Delete(ctx, userID), msgUserNotFound)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(32)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Save(ctx, refreshToken, user.ID, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthResponse{
		AuthTokens: models.AuthTokens{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int(s.accessTTL / time.Second),
		},
		User: user,
	}, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return errors.New("Password must be at least 8 characters")
	}
	if len(pw) > maxPasswordBytes {
		return errors.New("Password must be at most 72 bytes")
	}
	return nil
}
