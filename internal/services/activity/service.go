package activity

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

var ErrValidation = errors.New("activity validation error")

// Store persists the activity log.
type Store interface {
	Record(ctx context.Context, p pgrepo.RecordActivityParams) (model.ActivityLog, error)
	List(ctx context.Context, p pgrepo.ListActivityParams) ([]model.ActivityLog, error)
	CountByType(ctx context.Context, since time.Time) (map[enums.ActivityType]int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

type Event struct {
	UserID      int64
	Type        enums.ActivityType
	Description string
	CourseID    *int64
	LessonID    *int64
	Metadata    map[string]any
	IPAddress   string
}

// Record writes one log row. Best-effort callers should log and drop
// the error, an audit write must never fail a user operation.
func (s *Service) Record(ctx context.Context, e Event) error {
	if e.UserID <= 0 || !e.Type.Valid() {
		return fmt.Errorf("invalid activity event: %w", ErrValidation)
	}
	_, err := s.store.Record(ctx, pgrepo.RecordActivityParams{
		UserID:       e.UserID,
		ActivityType: e.Type,
		Description:  e.Description,
		CourseID:     e.CourseID,
		LessonID:     e.LessonID,
		Metadata:     e.Metadata,
		IPAddress:    e.IPAddress,
	})
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// TryRecord is Record with the error swallowed into a warn log.
func (s *Service) TryRecord(ctx context.Context, e Event) {
	if err := s.Record(ctx, e); err != nil {
		s.log.Warn("activity record failed",
			zap.Int64("user_id", e.UserID),
			zap.String("type", string(e.Type)),
			zap.Error(err))
	}
}

type Filter struct {
	UserID   int64
	Type     enums.ActivityType
	CourseID int64
	Since    *time.Time
	Limit    int
	Offset   int
}

func (s *Service) List(ctx context.Context, f Filter) ([]model.ActivityLog, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("invalid activity type %q: %w", f.Type, ErrValidation)
	}
	logs, err := s.store.List(ctx, pgrepo.ListActivityParams{
		UserID:       f.UserID,
		ActivityType: f.Type,
		CourseID:     f.CourseID,
		Since:        f.Since,
		Limit:        f.Limit,
		Offset:       f.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return logs, nil
}

// Stats aggregates event counts per type since the given time, for
// the admin dashboard.
func (s *Service) Stats(ctx context.Context, since time.Time) (map[enums.ActivityType]int, error) {
	counts, err := s.store.CountByType(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}
	return counts, nil
}

// Prune deletes log rows older than the retention cutoff.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive: %w", ErrValidation)
	}
	n, err := s.store.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	if n > 0 {
		s.log.Info("activity log pruned", zap.Int64("rows", n))
	}
	return n, nil
}
