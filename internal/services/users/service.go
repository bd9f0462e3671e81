package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	authsvc "github.com/Pavlentius2007/school-photobusiness/internal/services/auth"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("user not found")
	ErrLinkCodeInvalid = errors.New("link code invalid")
)

type UserStore interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByTelegramChatID(ctx context.Context, chatID int64) (model.User, error)
	List(ctx context.Context, role enums.Role, limit, offset int) ([]model.User, error)
	UpdateProfile(ctx context.Context, userID int64, p pgrepo.UpdateProfileParams) (model.User, error)
	UpdateRole(ctx context.Context, userID int64, role enums.Role) error
	SetActive(ctx context.Context, userID int64, active bool) error
}

type LinkCodeStore interface {
	Create(ctx context.Context, code string, userID int64, expiresAt time.Time) error
	Consume(ctx context.Context, code string, chatID int64, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	users       UserStore
	linkCodes   LinkCodeStore
	linkCodeTTL time.Duration
	now         func() time.Time
	onLinked    func(ctx context.Context, userID, chatID int64)
}

// AttachActivity enables the audit record on telegram linking.
func (s *Service) AttachActivity(onLinked func(ctx context.Context, userID, chatID int64)) {
	s.onLinked = onLinked
}

func NewService(users UserStore, linkCodes LinkCodeStore, linkCodeTTL time.Duration) *Service {
	if linkCodeTTL <= 0 {
		linkCodeTTL = 15 * time.Minute
	}

	return &Service{
		users:       users,
		linkCodes:   linkCodes,
		linkCodeTTL: linkCodeTTL,
		now:         time.Now,
	}
}

func (s *Service) Get(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id: %w", ErrValidation)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}

	return user, nil
}

type ProfileInput struct {
	FirstName string
	LastName  string
	Phone     string
	Bio       string
	AvatarURL string
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (model.User, error) {
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id: %w", ErrValidation)
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if len(in.Bio) > 2000 {
		return model.User{}, fmt.Errorf("bio is too long: %w", ErrValidation)
	}

	user, err := s.users.UpdateProfile(ctx, userID, pgrepo.UpdateProfileParams{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     strings.TrimSpace(in.Phone),
		Bio:       in.Bio,
		AvatarURL: strings.TrimSpace(in.AvatarURL),
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}

func (s *Service) List(ctx context.Context, role enums.Role, limit, offset int) ([]model.User, error) {
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, ErrValidation)
	}

	users, err := s.users.List(ctx, role, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (s *Service) ChangeRole(ctx context.Context, userID int64, role enums.Role) error {
	if userID <= 0 || !role.Valid() {
		return fmt.Errorf("invalid role change payload: %w", ErrValidation)
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update role: %w", err)
	}

	return nil
}

func (s *Service) SetActive(ctx context.Context, userID int64, active bool) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id: %w", ErrValidation)
	}

	if err := s.users.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("set user active: %w", err)
	}

	return nil
}

// IssueLinkCode creates a one time code the user pastes into the
// telegram bot as /start <code>.
func (s *Service) IssueLinkCode(ctx context.Context, userID int64) (string, time.Time, error) {
	if userID <= 0 {
		return "", time.Time{}, fmt.Errorf("invalid user id: %w", ErrValidation)
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return "", time.Time{}, err
	}

	code, err := authsvc.NewOpaqueToken(8)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate link code: %w", err)
	}

	expiresAt := s.now().Add(s.linkCodeTTL).UTC()
	if err := s.linkCodes.Create(ctx, code, userID, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("store link code: %w", err)
	}

	return code, expiresAt, nil
}

// ConsumeLinkCode binds a telegram chat to the account that issued the
// code. Returns the linked user.
func (s *Service) ConsumeLinkCode(ctx context.Context, code string, chatID int64) (model.User, error) {
	code = strings.TrimSpace(code)
	if code == "" || chatID == 0 {
		return model.User{}, fmt.Errorf("invalid link payload: %w", ErrValidation)
	}

	userID, err := s.linkCodes.Consume(ctx, code, chatID, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrLinkCodeNotFound),
			errors.Is(err, pgrepo.ErrLinkCodeExpired),
			errors.Is(err, pgrepo.ErrLinkCodeUsed):
			return model.User{}, ErrLinkCodeInvalid
		}
		return model.User{}, fmt.Errorf("consume link code: %w", err)
	}
	if s.onLinked != nil {
		s.onLinked(ctx, userID, chatID)
	}

	return s.Get(ctx, userID)
}

func (s *Service) FindByChatID(ctx context.Context, chatID int64) (model.User, error) {
	if chatID == 0 {
		return model.User{}, fmt.Errorf("invalid chat id: %w", ErrValidation)
	}

	user, err := s.users.FindByTelegramChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("find user by chat id: %w", err)
	}

	return user, nil
}

// CleanupLinkCodes drops expired codes, the deadline job calls it.
func (s *Service) CleanupLinkCodes(ctx context.Context) (int64, error) {
	removed, err := s.linkCodes.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired link codes: %w", err)
	}
	return removed, nil
}
