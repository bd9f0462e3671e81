package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	"github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	redrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/redis"
	authsvc "github.com/Pavlentius2007/school-photobusiness/internal/services/auth"
)

func TestLoginAndRefreshRotation(t *testing.T) {
	svc, users, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	users.add(t, "student@example.com", "correct-horse", enums.RoleStudent, true)

	loginRes, err := svc.Login(ctx, "Student@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginRes.User.Role != enums.RoleStudent {
		t.Fatalf("unexpected role %q", loginRes.User.Role)
	}

	refreshRes, err := svc.Refresh(ctx, loginRes.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshRes.RefreshToken == loginRes.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}

	if _, err := svc.Refresh(ctx, loginRes.RefreshToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("old refresh token should be unauthorized, got err=%v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, refreshRes.AccessToken); err != nil {
		t.Fatalf("new access token validation failed: %v", err)
	}
}

func TestLoginRejectsBadPasswordAndDisabledUser(t *testing.T) {
	svc, users, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	users.add(t, "active@example.com", "secret-pass", enums.RoleStudent, true)
	users.add(t, "disabled@example.com", "secret-pass", enums.RoleStudent, false)

	if _, err := svc.Login(ctx, "active@example.com", "wrong-pass"); !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("bad password should fail with ErrInvalidCredentials, got err=%v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret-pass"); !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("unknown email should fail with ErrInvalidCredentials, got err=%v", err)
	}
	if _, err := svc.Login(ctx, "disabled@example.com", "secret-pass"); !errors.Is(err, authsvc.ErrUserDisabled) {
		t.Fatalf("disabled user should fail with ErrUserDisabled, got err=%v", err)
	}
}

func TestLoginThrottleBlocksAfterRepeatedFailures(t *testing.T) {
	svc, users, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	users.add(t, "target@example.com", "secret-pass", enums.RoleStudent, true)

	for i := 0; i < 3; i++ {
		if _, err := svc.Login(ctx, "target@example.com", "wrong-pass"); !errors.Is(err, authsvc.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got err=%v", i+1, err)
		}
	}

	// The window is full, even the right password is rejected now.
	if _, err := svc.Login(ctx, "target@example.com", "secret-pass"); !errors.Is(err, authsvc.ErrTooManyAttempts) {
		t.Fatalf("throttled login should fail with ErrTooManyAttempts, got err=%v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, users, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	users.add(t, "student@example.com", "correct-horse", enums.RoleStudent, true)

	loginRes, err := svc.Login(ctx, "student@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ValidateAccessToken(ctx, loginRes.AccessToken)
	if err != nil {
		t.Fatalf("validate access token before logout: %v", err)
	}

	if err := svc.Logout(ctx, claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, loginRes.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("access token should be unauthorized after logout, got err=%v", err)
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, users, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	user := users.add(t, "student@example.com", "old-password", enums.RoleStudent, true)

	loginRes, err := svc.Login(ctx, "student@example.com", "old-password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "old-password", "new-password-1"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, loginRes.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("old session should be revoked, got err=%v", err)
	}

	if _, err := svc.Login(ctx, "student@example.com", "new-password-1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func newAuthServiceForTest(t *testing.T) (*authsvc.Service, *fakeUserStore, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	sessions := redrepo.NewSessionRepo(client)
	users := newFakeUserStore()
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	svc := authsvc.NewService(jwtManager, sessions, users, 30*24*time.Hour)
	svc.AttachThrottle(redrepo.NewRateRepo(client), authsvc.ThrottleConfig{
		MaxAttempts: 3,
		Window:      15 * time.Minute,
	})

	cleanup := func() {
		_ = client.Close()
		mini.Close()
	}

	return svc, users, cleanup
}

type fakeUserStore struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]*model.User
	byID    map[int64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		nextID:  1,
		byEmail: make(map[string]*model.User),
		byID:    make(map[int64]*model.User),
	}
}

func (s *fakeUserStore) add(t *testing.T, email, password string, role enums.Role, active bool) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user := &model.User{
		ID:           s.nextID,
		Email:        email,
		Username:     email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     active,
	}
	s.nextID++
	s.byEmail[email] = user
	s.byID[user.ID] = user
	return *user
}

func (s *fakeUserStore) Create(_ context.Context, p postgres.CreateUserParams) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[p.Email]; ok {
		return model.User{}, postgres.ErrEmailTaken
	}
	user := &model.User{
		ID:           s.nextID,
		Email:        p.Email,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		IsActive:     true,
	}
	s.nextID++
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return *user, nil
}

func (s *fakeUserStore) FindByID(_ context.Context, userID int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return model.User{}, postgres.ErrUserNotFound
	}
	return *user, nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byEmail[email]
	if !ok {
		return model.User{}, postgres.ErrUserNotFound
	}
	return *user, nil
}

func (s *fakeUserStore) UpdatePasswordHash(_ context.Context, userID int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return postgres.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *fakeUserStore) TouchLastLogin(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return postgres.ErrUserNotFound
	}
	user.LastLoginAt = &at
	return nil
}
