package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("access not found")
	ErrAlreadyActive = errors.New("access already active")
)

type AccessStore interface {
	Grant(ctx context.Context, userID, courseID int64, grantedBy *int64, expiresAt *time.Time, now time.Time) (model.CourseAccess, error)
	FindActive(ctx context.Context, userID, courseID int64, now time.Time) (model.CourseAccess, error)
	Revoke(ctx context.Context, accessID int64, now time.Time) (model.CourseAccess, error)
	SetSuspended(ctx context.Context, accessID int64, suspended bool) (model.CourseAccess, error)
	TouchLastAccessed(ctx context.Context, accessID int64, at time.Time) error
	ListByUser(ctx context.Context, userID int64) ([]model.CourseAccess, error)
	ListByCourse(ctx context.Context, courseID int64, status enums.AccessStatus, limit, offset int) ([]model.CourseAccess, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store AccessStore
	log   *zap.Logger
	now   func() time.Time

	onGranted func(ctx context.Context, grant model.CourseAccess)
	onRevoked func(ctx context.Context, grant model.CourseAccess)
}

// AttachActivity enables audit records on grant and revoke.
func (s *Service) AttachActivity(
	onGranted func(ctx context.Context, grant model.CourseAccess),
	onRevoked func(ctx context.Context, grant model.CourseAccess),
) {
	s.onGranted = onGranted
	s.onRevoked = onRevoked
}

func NewService(store AccessStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// GrantManual is the admin path around the payment flow, used for
// scholarships and support cases.
func (s *Service) GrantManual(ctx context.Context, userID, courseID, grantedBy int64, expiresAt *time.Time) (model.CourseAccess, error) {
	if userID <= 0 || courseID <= 0 || grantedBy <= 0 {
		return model.CourseAccess{}, fmt.Errorf("invalid grant payload: %w", ErrValidation)
	}
	now := s.now().UTC()
	if expiresAt != nil && !expiresAt.After(now) {
		return model.CourseAccess{}, fmt.Errorf("expiry must be in the future: %w", ErrValidation)
	}

	grant, err := s.store.Grant(ctx, userID, courseID, &grantedBy, expiresAt, now)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccessExists) {
			return model.CourseAccess{}, ErrAlreadyActive
		}
		return model.CourseAccess{}, fmt.Errorf("grant access: %w", err)
	}

	s.log.Info("access granted manually",
		zap.Int64("user_id", userID),
		zap.Int64("course_id", courseID),
		zap.Int64("granted_by", grantedBy))
	if s.onGranted != nil {
		s.onGranted(ctx, grant)
	}

	return grant, nil
}

// HasActiveAccess also stamps last_accessed_at, content checks double
// as usage tracking.
func (s *Service) HasActiveAccess(ctx context.Context, userID, courseID int64) (bool, error) {
	if userID <= 0 || courseID <= 0 {
		return false, fmt.Errorf("invalid access lookup: %w", ErrValidation)
	}

	grant, err := s.store.FindActive(ctx, userID, courseID, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccessNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find active access: %w", err)
	}

	if err := s.store.TouchLastAccessed(ctx, grant.ID, s.now().UTC()); err != nil {
		s.log.Warn("touch last accessed", zap.Int64("access_id", grant.ID), zap.Error(err))
	}

	return true, nil
}

func (s *Service) GetActive(ctx context.Context, userID, courseID int64) (model.CourseAccess, error) {
	if userID <= 0 || courseID <= 0 {
		return model.CourseAccess{}, fmt.Errorf("invalid access lookup: %w", ErrValidation)
	}

	grant, err := s.store.FindActive(ctx, userID, courseID, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccessNotFound) {
			return model.CourseAccess{}, ErrNotFound
		}
		return model.CourseAccess{}, fmt.Errorf("find active access: %w", err)
	}

	return grant, nil
}

func (s *Service) Revoke(ctx context.Context, accessID int64) (model.CourseAccess, error) {
	if accessID <= 0 {
		return model.CourseAccess{}, fmt.Errorf("invalid access id: %w", ErrValidation)
	}

	grant, err := s.store.Revoke(ctx, accessID, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccessNotFound) {
			return model.CourseAccess{}, ErrNotFound
		}
		return model.CourseAccess{}, fmt.Errorf("revoke access: %w", err)
	}

	s.log.Info("access revoked", zap.Int64("access_id", accessID))
	if s.onRevoked != nil {
		s.onRevoked(ctx, grant)
	}
	return grant, nil
}

func (s *Service) Suspend(ctx context.Context, accessID int64) (model.CourseAccess, error) {
	return s.setSuspended(ctx, accessID, true)
}

func (s *Service) Resume(ctx context.Context, accessID int64) (model.CourseAccess, error) {
	return s.setSuspended(ctx, accessID, false)
}

func (s *Service) setSuspended(ctx context.Context, accessID int64, suspended bool) (model.CourseAccess, error) {
	if accessID <= 0 {
		return model.CourseAccess{}, fmt.Errorf("invalid access id: %w", ErrValidation)
	}

	grant, err := s.store.SetSuspended(ctx, accessID, suspended)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccessNotFound) {
			return model.CourseAccess{}, ErrNotFound
		}
		return model.CourseAccess{}, fmt.Errorf("set access suspended: %w", err)
	}

	return grant, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]model.CourseAccess, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id: %w", ErrValidation)
	}

	grants, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list access by user: %w", err)
	}

	return grants, nil
}

func (s *Service) ListForCourse(ctx context.Context, courseID int64, status enums.AccessStatus, limit, offset int) ([]model.CourseAccess, error) {
	if courseID <= 0 {
		return nil, fmt.Errorf("invalid course id: %w", ErrValidation)
	}
	if status != "" && !statusValid(status) {
		return nil, fmt.Errorf("unknown access status %q: %w", status, ErrValidation)
	}

	grants, err := s.store.ListByCourse(ctx, courseID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list access by course: %w", err)
	}

	return grants, nil
}

// ExpireDue bulk-expires overdue grants, the deadline job calls it.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	expired, err := s.store.ExpireDue(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire due access: %w", err)
	}
	if expired > 0 {
		s.log.Info("access grants expired", zap.Int64("count", expired))
	}
	return expired, nil
}

func statusValid(status enums.AccessStatus) bool {
	switch status {
	case enums.AccessStatusActive, enums.AccessStatusExpired, enums.AccessStatusSuspended, enums.AccessStatusCancelled:
		return true
	}
	return false
}
