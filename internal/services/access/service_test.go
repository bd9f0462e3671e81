package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
)

func TestRevokeKeepsRowAndClosesAccess(t *testing.T) {
	store := newAccessTestStore()
	service := NewService(store, nil)

	grant, err := service.GrantManual(context.Background(), 7, 42, 1, nil)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	ok, err := service.HasActiveAccess(context.Background(), 7, 42)
	if err != nil || !ok {
		t.Fatalf("expected active access before revoke, got ok=%v err=%v", ok, err)
	}

	revoked, err := service.Revoke(context.Background(), grant.ID)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked.Status != enums.AccessStatusCancelled {
		t.Errorf("revoked status = %q, want %q", revoked.Status, enums.AccessStatusCancelled)
	}
	if revoked.RevokedAt == nil {
		t.Error("revoked row must carry revoked_at")
	}

	// The audit trail depends on the row surviving revocation.
	kept, ok := store.rows[grant.ID]
	if !ok {
		t.Fatal("revoke must not delete the grant row")
	}
	if kept.Status != enums.AccessStatusCancelled {
		t.Errorf("stored status = %q, want %q", kept.Status, enums.AccessStatusCancelled)
	}

	ok, err = service.HasActiveAccess(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("access check after revoke: %v", err)
	}
	if ok {
		t.Error("access check must fail after revoke")
	}
}

func TestRevokeUnknownAccess(t *testing.T) {
	service := NewService(newAccessTestStore(), nil)

	if _, err := service.Revoke(context.Background(), 12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := service.Revoke(context.Background(), 0); !errors.Is(err, ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestExpiredGrantDeniesAccess(t *testing.T) {
	store := newAccessTestStore()
	service := NewService(store, nil)
	service.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }

	expiry := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	grant, err := service.GrantManual(context.Background(), 7, 42, 1, &expiry)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	ok, err := service.HasActiveAccess(context.Background(), 7, 42)
	if err != nil || !ok {
		t.Fatalf("expected active access before expiry, got ok=%v err=%v", ok, err)
	}

	service.now = func() time.Time { return expiry.Add(time.Hour) }

	ok, err = service.HasActiveAccess(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("access check after expiry: %v", err)
	}
	if ok {
		t.Error("access check must fail once the grant expired")
	}
	if got := store.rows[grant.ID].Status; got != enums.AccessStatusExpired {
		t.Errorf("overdue grant status = %q, want %q", got, enums.AccessStatusExpired)
	}
}

// accessTestStore mirrors the postgres repo contract: revoke flips the
// status in place, lookups lazily expire overdue rows.
type accessTestStore struct {
	rows   map[int64]model.CourseAccess
	nextID int64
}

func newAccessTestStore() *accessTestStore {
	return &accessTestStore{rows: map[int64]model.CourseAccess{}, nextID: 1}
}

func (s *accessTestStore) Grant(_ context.Context, userID, courseID int64, grantedBy *int64, expiresAt *time.Time, now time.Time) (model.CourseAccess, error) {
	for _, row := range s.rows {
		if row.UserID == userID && row.CourseID == courseID && row.Status == enums.AccessStatusActive {
			return model.CourseAccess{}, pgrepo.ErrAccessExists
		}
	}
	grant := model.CourseAccess{
		ID:        s.nextID,
		UserID:    userID,
		CourseID:  courseID,
		GrantedBy: grantedBy,
		Status:    enums.AccessStatusActive,
		GrantedAt: now,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextID++
	s.rows[grant.ID] = grant
	return grant, nil
}

func (s *accessTestStore) FindActive(_ context.Context, userID, courseID int64, now time.Time) (model.CourseAccess, error) {
	for id, row := range s.rows {
		if row.UserID != userID || row.CourseID != courseID || row.Status != enums.AccessStatusActive {
			continue
		}
		if !row.Usable(now) {
			row.Status = enums.AccessStatusExpired
			row.UpdatedAt = now
			s.rows[id] = row
			return model.CourseAccess{}, pgrepo.ErrAccessNotFound
		}
		return row, nil
	}
	return model.CourseAccess{}, pgrepo.ErrAccessNotFound
}

func (s *accessTestStore) Revoke(_ context.Context, accessID int64, now time.Time) (model.CourseAccess, error) {
	row, ok := s.rows[accessID]
	if !ok {
		return model.CourseAccess{}, pgrepo.ErrAccessNotFound
	}
	if row.Status != enums.AccessStatusActive && row.Status != enums.AccessStatusSuspended {
		return model.CourseAccess{}, pgrepo.ErrAccessNotFound
	}
	row.Status = enums.AccessStatusCancelled
	revokedAt := now
	row.RevokedAt = &revokedAt
	row.UpdatedAt = now
	s.rows[accessID] = row
	return row, nil
}

func (s *accessTestStore) SetSuspended(_ context.Context, accessID int64, suspended bool) (model.CourseAccess, error) {
	row, ok := s.rows[accessID]
	if !ok {
		return model.CourseAccess{}, pgrepo.ErrAccessNotFound
	}
	if suspended {
		row.Status = enums.AccessStatusSuspended
	} else {
		row.Status = enums.AccessStatusActive
	}
	s.rows[accessID] = row
	return row, nil
}

func (s *accessTestStore) TouchLastAccessed(_ context.Context, accessID int64, at time.Time) error {
	row, ok := s.rows[accessID]
	if !ok {
		return pgrepo.ErrAccessNotFound
	}
	row.LastAccessedAt = &at
	s.rows[accessID] = row
	return nil
}

func (s *accessTestStore) ListByUser(_ context.Context, userID int64) ([]model.CourseAccess, error) {
	var out []model.CourseAccess
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *accessTestStore) ListByCourse(_ context.Context, courseID int64, status enums.AccessStatus, _, _ int) ([]model.CourseAccess, error) {
	var out []model.CourseAccess
	for _, row := range s.rows {
		if row.CourseID != courseID {
			continue
		}
		if status != "" && row.Status != status {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *accessTestStore) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	var expired int64
	for id, row := range s.rows {
		if row.Status == enums.AccessStatusActive && row.ExpiresAt != nil && !row.ExpiresAt.After(now) {
			row.Status = enums.AccessStatusExpired
			row.UpdatedAt = now
			s.rows[id] = row
			expired++
		}
	}
	return expired, nil
}
