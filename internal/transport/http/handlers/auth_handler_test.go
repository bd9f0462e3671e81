package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	redrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/redis"
	authsvc "github.com/Pavlentius2007/school-photobusiness/internal/services/auth"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"
	httperrors "github.com/Pavlentius2007/school-photobusiness/internal/transport/http/errors"
)

func newAuthTestHandler(t *testing.T, users authsvc.UserStore) *AuthHandler {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	service := authsvc.NewService(jwtManager, redrepo.NewSessionRepo(client), users, 30*24*time.Hour)

	return NewAuthHandler(service, 15*time.Minute)
}

func TestLoginReturnsTokensForValidCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	handler := newAuthTestHandler(t, authTestUserStore{
		user: model.User{
			ID:           501,
			Email:        "student@example.com",
			Username:     "student",
			PasswordHash: string(hash),
			Role:         enums.RoleStudent,
			IsActive:     true,
		},
	})

	body, _ := json.Marshal(dto.LoginRequest{Email: "student@example.com", Password: "correct horse"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d, body %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var payload dto.AuthTokensResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		t.Fatalf("tokens must not be empty: %+v", payload)
	}
	if payload.ExpiresInSec <= 0 {
		t.Fatalf("expires_in_sec must be positive, got %d", payload.ExpiresInSec)
	}
	if payload.User.ID != 501 {
		t.Fatalf("unexpected user id: got %d want %d", payload.User.ID, 501)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	handler := newAuthTestHandler(t, authTestUserStore{
		user: model.User{
			ID:           501,
			Email:        "student@example.com",
			PasswordHash: string(hash),
			Role:         enums.RoleStudent,
			IsActive:     true,
		},
	})

	body, _ := json.Marshal(dto.LoginRequest{Email: "student@example.com", Password: "battery staple"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}

	var apiErr httperrors.APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if apiErr.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("unexpected error code: got %q want %q", apiErr.Code, "INVALID_CREDENTIALS")
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	handler := newAuthTestHandler(t, authTestUserStore{
		user: model.User{
			ID:           501,
			Email:        "student@example.com",
			PasswordHash: string(hash),
			Role:         enums.RoleStudent,
			IsActive:     false,
		},
	})

	body, _ := json.Marshal(dto.LoginRequest{Email: "student@example.com", Password: "correct horse"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}

	var apiErr httperrors.APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if apiErr.Code != "USER_DISABLED" {
		t.Fatalf("unexpected error code: got %q want %q", apiErr.Code, "USER_DISABLED")
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	handler := newAuthTestHandler(t, authTestUserStore{})

	body, _ := json.Marshal(dto.RegisterRequest{
		Email:    "new@example.com",
		Username: "newbie",
		Password: "short",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Register(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLogoutRequiresIdentity(t *testing.T) {
	handler := newAuthTestHandler(t, authTestUserStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rr := httptest.NewRecorder()
	handler.Logout(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

type authTestUserStore struct {
	user model.User
}

func (s authTestUserStore) Create(_ context.Context, p pgrepo.CreateUserParams) (model.User, error) {
	return model.User{
		ID:       900,
		Email:    p.Email,
		Username: p.Username,
		Role:     p.Role,
		IsActive: true,
	}, nil
}

func (s authTestUserStore) FindByID(_ context.Context, userID int64) (model.User, error) {
	if s.user.ID == 0 || userID != s.user.ID {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return s.user, nil
}

func (s authTestUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	if s.user.ID == 0 || email != s.user.Email {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return s.user, nil
}

func (s authTestUserStore) UpdatePasswordHash(context.Context, int64, string) error {
	return nil
}

func (s authTestUserStore) TouchLastLogin(context.Context, int64, time.Time) error {
	return nil
}
