package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/services"
)

type stubAuthService struct {
	authService

	registered  models.RegisterRequest
	passwordErr error
	deletedUser int64
	changedFor  int64
}

func (s *stubAuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	s.registered = req
	if req.Username == "taken" {
		return nil, &services.ConflictError{Message: "Username already taken"}
	}
	return &models.AuthResponse{
		AuthTokens: models.AuthTokens{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600},
		User:       &models.User{ID: 1, Username: req.Username, Email: req.Email, PasswordHash: "secret-hash"},
	}, nil
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error {
	s.changedFor = userID
	return s.passwordErr
}

func (s *stubAuthService) DeleteAccount(ctx context.Context, userID int64) error {
	s.deletedUser = userID
	return nil
}

func TestAuthHandler_Register(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.Register(rr, newRequest(http.MethodPost, "/api/register", `{"username":"ada","email":"ada@example.com","password":"longenough"}`, 0, nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if svc.registered.Username != "ada" || svc.registered.Email != "ada@example.com" {
		t.Fatalf("request not parsed: %+v", svc.registered)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["access_token"] != "access" {
		t.Errorf("expected flattened access_token, got %v", body["access_token"])
	}
	user, _ := body["user"].(map[string]interface{})
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash must never be serialized")
	}
}

func TestAuthHandler_RegisterConflict(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	rr := httptest.NewRecorder()
	h.Register(rr, newRequest(http.MethodPost, "/api/register", `{"username":"taken","email":"x@example.com","password":"longenough"}`, 0, nil))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestAuthHandler_ChangePassword_WrongCurrent(t *testing.T) {
	svc := &stubAuthService{passwordErr: &services.AuthenticationError{Message: "Current password is incorrect"}}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.ChangePassword(rr, newRequest(http.MethodPost, "/api/change-password", `{"current_password":"nope","new_password":"newpassword"}`, 12, nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if svc.changedFor != 12 {
		t.Fatalf("expected user 12, got %d", svc.changedFor)
	}
}

func TestAuthHandler_DeleteAccount(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.DeleteAccount(rr, newRequest(http.MethodDelete, "/api/profile", "", 12, nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if svc.deletedUser != 12 {
		t.Fatalf("expected user 12 deleted, got %d", svc.deletedUser)
	}
}
