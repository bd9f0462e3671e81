package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

const notificationColumns = `id, user_id, title, message, channel, priority, is_read, read_at, payload, created_at`

type CreateNotificationParams struct {
	UserID   int64
	Title    string
	Message  string
	Channel  enums.NotificationChannel
	Priority int
	Payload  map[string]string
}

func (r *NotificationRepo) Create(ctx context.Context, p CreateNotificationParams) (model.Notification, error) {
	if r.pool == nil {
		return model.Notification{}, fmt.Errorf("postgres pool is nil")
	}
	if p.UserID <= 0 || strings.TrimSpace(p.Title) == "" || !p.Channel.Valid() {
		return model.Notification{}, fmt.Errorf("invalid notification payload")
	}
	if p.Priority <= 0 {
		p.Priority = 1
	}

	notification, err := scanNotification(r.pool.QueryRow(ctx, `
INSERT INTO notifications (user_id, title, message, channel, priority, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING `+notificationColumns+`
`, p.UserID, strings.TrimSpace(p.Title), p.Message, string(p.Channel), p.Priority, p.Payload))
	if err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	return notification, nil
}

func (r *NotificationRepo) FindByID(ctx context.Context, notificationID int64) (model.Notification, error) {
	if r.pool == nil {
		return model.Notification{}, fmt.Errorf("postgres pool is nil")
	}
	if notificationID <= 0 {
		return model.Notification{}, fmt.Errorf("invalid notification id")
	}

	notification, err := scanNotification(r.pool.QueryRow(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE id = $1
`, notificationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Notification{}, ErrNotificationNotFound
		}
		return model.Notification{}, fmt.Errorf("find notification by id: %w", err)
	}

	return notification, nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+notificationColumns+`
FROM notifications
WHERE user_id = $1
  AND (NOT $2 OR NOT is_read)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM notifications
WHERE user_id = $1
  AND NOT is_read
`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

// MarkRead is scoped to the owner so one user cannot touch another's
// notifications.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID, userID int64, now time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if notificationID <= 0 || userID <= 0 {
		return fmt.Errorf("invalid notification read payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE notifications
SET is_read = TRUE, read_at = COALESCE(read_at, $3)
WHERE id = $1
  AND user_id = $2
`, notificationID, userID, now.UTC())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE notifications
SET is_read = TRUE, read_at = $2
WHERE user_id = $1
  AND NOT is_read
`, userID, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *NotificationRepo) Delete(ctx context.Context, notificationID, userID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if notificationID <= 0 || userID <= 0 {
		return fmt.Errorf("invalid notification delete payload")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM notifications
WHERE id = $1
  AND user_id = $2
`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

type NotificationStats struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
}

func (r *NotificationRepo) Stats(ctx context.Context) (NotificationStats, error) {
	if r.pool == nil {
		return NotificationStats{}, fmt.Errorf("postgres pool is nil")
	}

	var stats NotificationStats
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
FROM notifications
`).Scan(&stats.Total, &stats.Unread); err != nil {
		return NotificationStats{}, fmt.Errorf("notification stats: %w", err)
	}

	return stats, nil
}

func scanNotification(row pgx.Row) (model.Notification, error) {
	var (
		notification model.Notification
		channel      string
	)
	if err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Title,
		&notification.Message,
		&channel,
		&notification.Priority,
		&notification.IsRead,
		&notification.ReadAt,
		&notification.Payload,
		&notification.CreatedAt,
	); err != nil {
		return model.Notification{}, err
	}
	notification.Channel = enums.NotificationChannel(channel)
	return notification, nil
}
