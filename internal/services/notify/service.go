package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("notify validation error")
	ErrNotFound       = errors.New("notification not found")
	ErrNoDestination  = errors.New("user has no destination for this channel")
	ErrUnknownChannel = errors.New("unknown notification channel")
)

// EmailSender delivers a rendered message over SMTP.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TelegramSender delivers a rendered message to a bound chat.
type TelegramSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// NotificationStore persists internal notifications and read state.
type NotificationStore interface {
	Create(ctx context.Context, p pgrepo.CreateNotificationParams) (model.Notification, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, notificationID, userID int64, now time.Time) error
	MarkAllRead(ctx context.Context, userID int64, now time.Time) (int64, error)
	Delete(ctx context.Context, notificationID, userID int64) error
	Stats(ctx context.Context) (pgrepo.NotificationStats, error)
}

// UserStore resolves delivery destinations.
type UserStore interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
}

type Service struct {
	store    NotificationStore
	users    UserStore
	email    EmailSender
	telegram TelegramSender
	log      *zap.Logger

	now func() time.Time
}

// NewService wires the dispatcher. email and telegram may be nil when
// the deployment runs without those channels, dispatch to a missing
// channel reports a failure for it instead of panicking.
func NewService(store NotificationStore, users UserStore, email EmailSender, telegram TelegramSender, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		users:    users,
		email:    email,
		telegram: telegram,
		log:      log,
		now:      time.Now,
	}
}

// Message is a channel-neutral notification payload. Title and Body
// may carry {placeholder} markers resolved against Vars before
// delivery.
type Message struct {
	Title    string
	Body     string
	Priority int
	Vars     map[string]string
	Payload  map[string]string
}

// Render substitutes {name} markers from vars. Unknown markers stay
// in place so a template typo is visible in the delivered text.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(template, "{") {
		return template
	}
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

// DeliveryResult reports the outcome per requested channel. A failed
// channel never blocks the others.
type DeliveryResult struct {
	Delivered map[enums.NotificationChannel]bool
	Errors    map[enums.NotificationChannel]error
}

func (r DeliveryResult) AllDelivered() bool {
	for _, ok := range r.Delivered {
		if !ok {
			return false
		}
	}
	return true
}

// Dispatch renders the message and fans it out to every requested
// channel. The internal channel always records a row, email and
// telegram resolve the user's destination first.
func (s *Service) Dispatch(ctx context.Context, userID int64, msg Message, channels ...enums.NotificationChannel) (DeliveryResult, error) {
	result := DeliveryResult{
		Delivered: make(map[enums.NotificationChannel]bool, len(channels)),
		Errors:    make(map[enums.NotificationChannel]error),
	}
	if userID <= 0 {
		return result, fmt.Errorf("invalid user id: %w", ErrValidation)
	}
	title := strings.TrimSpace(Render(msg.Title, msg.Vars))
	body := strings.TrimSpace(Render(msg.Body, msg.Vars))
	if title == "" {
		return result, fmt.Errorf("title is required: %w", ErrValidation)
	}
	if len(channels) == 0 {
		channels = []enums.NotificationChannel{enums.ChannelInternal}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return result, ErrNotFound
		}
		return result, fmt.Errorf("find user: %w", err)
	}

	seen := make(map[enums.NotificationChannel]bool, len(channels))
	for _, channel := range channels {
		if seen[channel] {
			continue
		}
		seen[channel] = true

		err := s.deliver(ctx, user, channel, title, body, msg)
		if err != nil {
			result.Delivered[channel] = false
			result.Errors[channel] = err
			s.log.Warn("notification delivery failed",
				zap.Int64("user_id", userID),
				zap.String("channel", string(channel)),
				zap.Error(err))
			continue
		}
		result.Delivered[channel] = true
	}
	return result, nil
}

func (s *Service) deliver(ctx context.Context, user model.User, channel enums.NotificationChannel, title, body string, msg Message) error {
	switch channel {
	case enums.ChannelInternal:
		_, err := s.store.Create(ctx, pgrepo.CreateNotificationParams{
			UserID:   user.ID,
			Title:    title,
			Message:  body,
			Channel:  enums.ChannelInternal,
			Priority: msg.Priority,
			Payload:  msg.Payload,
		})
		if err != nil {
			return fmt.Errorf("store notification: %w", err)
		}
		return nil
	case enums.ChannelEmail:
		if s.email == nil {
			return fmt.Errorf("email channel is not configured: %w", ErrNoDestination)
		}
		to := strings.TrimSpace(user.Email)
		if to == "" {
			return ErrNoDestination
		}
		if err := s.email.Send(ctx, to, title, body); err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case enums.ChannelTelegram:
		if s.telegram == nil {
			return fmt.Errorf("telegram channel is not configured: %w", ErrNoDestination)
		}
		if user.TelegramChatID == nil {
			return ErrNoDestination
		}
		text := title
		if body != "" {
			text = title + "\n\n" + body
		}
		if err := s.telegram.SendText(ctx, *user.TelegramChatID, text); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
}

func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	notifications, err := s.store.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *Service) CountUnread(ctx context.Context, userID int64) (int, error) {
	n, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.store.MarkRead(ctx, notificationID, userID, s.now().UTC()); err != nil {
		if errors.Is(err, pgrepo.ErrNotificationNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}

// Stats aggregates inbox totals across all users for the admin panel.
func (s *Service) Stats(ctx context.Context) (pgrepo.NotificationStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return pgrepo.NotificationStats{}, fmt.Errorf("notification stats: %w", err)
	}
	return stats, nil
}

func (s *Service) Delete(ctx context.Context, userID, notificationID int64) error {
	if err := s.store.Delete(ctx, notificationID, userID); err != nil {
		if errors.Is(err, pgrepo.ErrNotificationNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}
