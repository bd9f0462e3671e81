package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	"github.com/Pavlentius2007/school-photobusiness/internal/services/notify"
)

type fakeNotificationStore struct {
	nextID int64
	rows   map[int64]model.Notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{nextID: 1, rows: make(map[int64]model.Notification)}
}

func (f *fakeNotificationStore) Create(_ context.Context, p pgrepo.CreateNotificationParams) (model.Notification, error) {
	n := model.Notification{
		ID:      f.nextID,
		UserID:  p.UserID,
		Title:   p.Title,
		Message: p.Message,
		Channel: p.Channel,
	}
	f.nextID++
	f.rows[n.ID] = n
	return n, nil
}

func (f *fakeNotificationStore) ListByUser(_ context.Context, userID int64, unreadOnly bool, _, _ int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.rows {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) CountUnread(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, n := range f.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, notificationID, userID int64, now time.Time) error {
	n, ok := f.rows[notificationID]
	if !ok || n.UserID != userID {
		return pgrepo.ErrNotificationNotFound
	}
	n.IsRead = true
	n.ReadAt = &now
	f.rows[notificationID] = n
	return nil
}

func (f *fakeNotificationStore) MarkAllRead(_ context.Context, userID int64, now time.Time) (int64, error) {
	var count int64
	for id, n := range f.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			f.rows[id] = n
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) Delete(_ context.Context, notificationID, userID int64) error {
	n, ok := f.rows[notificationID]
	if !ok || n.UserID != userID {
		return pgrepo.ErrNotificationNotFound
	}
	delete(f.rows, notificationID)
	return nil
}

func (f *fakeNotificationStore) Stats(context.Context) (pgrepo.NotificationStats, error) {
	var stats pgrepo.NotificationStats
	for _, n := range f.rows {
		stats.Total++
		if !n.IsRead {
			stats.Unread++
		}
	}
	return stats, nil
}

type fakeUsers struct{ users map[int64]model.User }

func (f *fakeUsers) FindByID(_ context.Context, userID int64) (model.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return u, nil
}

type fakeEmail struct {
	sent []string
	err  error
}

func (f *fakeEmail) Send(_ context.Context, to, subject, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+": "+subject)
	return nil
}

type fakeTelegram struct {
	sent []string
	err  error
}

func (f *fakeTelegram) SendText(_ context.Context, _ int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	got := notify.Render("Hi {name}, {course} starts {when}", map[string]string{
		"name":   "Anna",
		"course": "Studio light",
	})
	want := "Hi Anna, Studio light starts {when}"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

func TestDispatchFansOutToAllChannels(t *testing.T) {
	chatID := int64(555)
	store := newFakeNotificationStore()
	email := &fakeEmail{}
	tg := &fakeTelegram{}
	svc := notify.NewService(store, &fakeUsers{users: map[int64]model.User{
		1: {ID: 1, Email: "student@example.com", TelegramChatID: &chatID},
	}}, email, tg, nil)

	result, err := svc.Dispatch(context.Background(), 1, notify.Message{
		Title: "Payment received",
		Body:  "Access to {course} is open",
		Vars:  map[string]string{"course": "Retouching"},
	}, enums.ChannelInternal, enums.ChannelEmail, enums.ChannelTelegram)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.AllDelivered() {
		t.Fatalf("result = %+v, want all delivered", result)
	}
	if len(store.rows) != 1 {
		t.Fatalf("internal rows = %d, want 1", len(store.rows))
	}
	if len(email.sent) != 1 || email.sent[0] != "student@example.com: Payment received" {
		t.Fatalf("email sent = %v", email.sent)
	}
	if len(tg.sent) != 1 || tg.sent[0] != "Payment received\n\nAccess to Retouching is open" {
		t.Fatalf("telegram sent = %v", tg.sent)
	}
}

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	store := newFakeNotificationStore()
	email := &fakeEmail{err: errors.New("smtp down")}
	tg := &fakeTelegram{}
	svc := notify.NewService(store, &fakeUsers{users: map[int64]model.User{
		// No telegram binding either.
		1: {ID: 1, Email: "student@example.com"},
	}}, email, tg, nil)

	result, err := svc.Dispatch(context.Background(), 1, notify.Message{Title: "Deadline tomorrow"},
		enums.ChannelEmail, enums.ChannelTelegram, enums.ChannelInternal)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.AllDelivered() {
		t.Fatal("expected partial failure")
	}
	if !result.Delivered[enums.ChannelInternal] {
		t.Fatal("internal channel should survive the email failure")
	}
	if result.Delivered[enums.ChannelEmail] {
		t.Fatal("email should have failed")
	}
	if !errors.Is(result.Errors[enums.ChannelTelegram], notify.ErrNoDestination) {
		t.Fatalf("telegram error = %v, want ErrNoDestination", result.Errors[enums.ChannelTelegram])
	}
	if len(store.rows) != 1 {
		t.Fatalf("internal rows = %d, want 1", len(store.rows))
	}
}

func TestMarkReadIsOwnerScoped(t *testing.T) {
	store := newFakeNotificationStore()
	svc := notify.NewService(store, &fakeUsers{users: map[int64]model.User{
		1: {ID: 1}, 2: {ID: 2},
	}}, nil, nil, nil)

	if _, err := svc.Dispatch(context.Background(), 1, notify.Message{Title: "hello"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if err := svc.MarkRead(context.Background(), 2, 1); !errors.Is(err, notify.ErrNotFound) {
		t.Fatalf("foreign MarkRead error = %v, want ErrNotFound", err)
	}
	if err := svc.MarkRead(context.Background(), 1, 1); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	unread, err := svc.CountUnread(context.Background(), 1)
	if err != nil {
		t.Fatalf("CountUnread: %v", err)
	}
	if unread != 0 {
		t.Fatalf("unread = %d, want 0", unread)
	}
}
