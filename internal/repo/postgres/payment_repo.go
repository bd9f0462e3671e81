package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
)

var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentTerminal    = errors.New("payment already in a terminal state")
	ErrProviderTxConflict = errors.New("provider payment already attached to another order")
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, course_id, amount, currency, status, provider, external_payment_id, order_id, description, receipt_url, error_message, processed_at, created_at, updated_at`

type CreatePaymentParams struct {
	UserID      int64
	CourseID    int64
	Amount      int64
	Currency    string
	Provider    enums.PaymentProvider
	OrderID     string
	Description string
}

func (r *PaymentRepo) CreatePending(ctx context.Context, p CreatePaymentParams) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	p.OrderID = strings.TrimSpace(p.OrderID)
	if p.UserID <= 0 || p.CourseID <= 0 || p.Amount <= 0 || p.OrderID == "" || !p.Provider.Valid() {
		return model.Payment{}, fmt.Errorf("invalid payment create payload")
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "RUB"
	}

	payment, err := scanPayment(r.pool.QueryRow(ctx, `
INSERT INTO payments (user_id, course_id, amount, currency, status, provider, order_id, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7, NOW(), NOW())
RETURNING `+paymentColumns+`
`, p.UserID, p.CourseID, p.Amount, currency, string(p.Provider), p.OrderID, p.Description))
	if err != nil {
		return model.Payment{}, fmt.Errorf("create pending payment: %w", err)
	}

	return payment, nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	if paymentID <= 0 {
		return model.Payment{}, fmt.Errorf("invalid payment id")
	}

	payment, err := scanPayment(r.pool.QueryRow(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE id = $1
`, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Payment{}, ErrPaymentNotFound
		}
		return model.Payment{}, fmt.Errorf("find payment by id: %w", err)
	}

	return payment, nil
}

func (r *PaymentRepo) FindByOrderID(ctx context.Context, orderID string) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return model.Payment{}, fmt.Errorf("invalid order id")
	}

	payment, err := scanPayment(r.pool.QueryRow(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE order_id = $1
`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Payment{}, ErrPaymentNotFound
		}
		return model.Payment{}, fmt.Errorf("find payment by order id: %w", err)
	}

	return payment, nil
}

func (r *PaymentRepo) FindByExternalID(ctx context.Context, provider enums.PaymentProvider, externalID string) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	externalID = strings.TrimSpace(externalID)
	if !provider.Valid() || externalID == "" {
		return model.Payment{}, fmt.Errorf("invalid external payment lookup")
	}

	payment, err := scanPayment(r.pool.QueryRow(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE provider = $1
  AND external_payment_id = $2
`, string(provider), externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Payment{}, ErrPaymentNotFound
		}
		return model.Payment{}, fmt.Errorf("find payment by external id: %w", err)
	}

	return payment, nil
}

// BindExternalID stores the gateway payment id once the gateway has
// accepted the order.
func (r *PaymentRepo) BindExternalID(ctx context.Context, paymentID int64, externalID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	externalID = strings.TrimSpace(externalID)
	if paymentID <= 0 || externalID == "" {
		return fmt.Errorf("invalid external id bind payload")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE payments
SET external_payment_id = $2, updated_at = NOW()
WHERE id = $1
  AND (external_payment_id IS NULL OR external_payment_id = $2)
`, paymentID, externalID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrProviderTxConflict
		}
		return fmt.Errorf("bind external payment id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderTxConflict
	}

	return nil
}

type CompleteResult struct {
	Payment    model.Payment
	Access     model.CourseAccess
	Idempotent bool
}

// CompleteAndGrant marks the payment completed and grants course
// access in one transaction. The webhook, status polling, and the
// reconcile job all converge here; the row lock plus the partial
// unique index on active access make the grant exactly-once. A payment
// already completed returns the existing state with Idempotent set.
func (r *PaymentRepo) CompleteAndGrant(ctx context.Context, paymentID int64, externalID, receiptURL string, expiresAt *time.Time, now time.Time) (CompleteResult, error) {
	if r.pool == nil {
		return CompleteResult{}, fmt.Errorf("postgres pool is nil")
	}
	if paymentID <= 0 {
		return CompleteResult{}, fmt.Errorf("invalid payment id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	externalID = strings.TrimSpace(externalID)

	var out CompleteResult
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		payment, err := scanPayment(tx.QueryRow(txCtx, `
SELECT `+paymentColumns+`
FROM payments
WHERE id = $1
FOR UPDATE
`, paymentID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("lock payment: %w", err)
		}

		if payment.Status == enums.PaymentStatusCompleted {
			access, err := findActiveAccessTx(txCtx, tx, payment.UserID, payment.CourseID)
			if err != nil && !errors.Is(err, ErrAccessNotFound) {
				return err
			}
			out = CompleteResult{Payment: payment, Access: access, Idempotent: true}
			return nil
		}
		if payment.Status.Terminal() {
			return ErrPaymentTerminal
		}

		updated, err := scanPayment(tx.QueryRow(txCtx, `
UPDATE payments
SET
	status = 'completed',
	external_payment_id = COALESCE(NULLIF($2, ''), external_payment_id),
	receipt_url = COALESCE(NULLIF($3, ''), receipt_url),
	error_message = NULL,
	processed_at = $4,
	updated_at = NOW()
WHERE id = $1
RETURNING `+paymentColumns+`
`, paymentID, externalID, strings.TrimSpace(receiptURL), now.UTC()))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrProviderTxConflict
			}
			return fmt.Errorf("mark payment completed: %w", err)
		}

		access, err := grantAccessTx(txCtx, tx, grantAccessParams{
			UserID:    updated.UserID,
			CourseID:  updated.CourseID,
			PaymentID: &updated.ID,
			ExpiresAt: expiresAt,
			Now:       now,
		})
		if err != nil {
			return err
		}

		out = CompleteResult{Payment: updated, Access: access}
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}

	return out, nil
}

// MarkFailed moves a pending payment to failed. Terminal payments are
// left untouched.
func (r *PaymentRepo) MarkFailed(ctx context.Context, paymentID int64, status enums.PaymentStatus, errorMessage string, now time.Time) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	if paymentID <= 0 {
		return model.Payment{}, fmt.Errorf("invalid payment id")
	}
	switch status {
	case enums.PaymentStatusFailed, enums.PaymentStatusCancelled:
	default:
		return model.Payment{}, fmt.Errorf("invalid failure status %q", status)
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	payment, err := scanPayment(r.pool.QueryRow(ctx, `
UPDATE payments
SET status = $2, error_message = NULLIF($3, ''), processed_at = $4, updated_at = NOW()
WHERE id = $1
  AND status = 'pending'
RETURNING `+paymentColumns+`
`, paymentID, string(status), strings.TrimSpace(errorMessage), now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, findErr := r.FindByID(ctx, paymentID)
			if findErr != nil {
				return model.Payment{}, findErr
			}
			if existing.Status.Terminal() {
				return model.Payment{}, ErrPaymentTerminal
			}
			return model.Payment{}, fmt.Errorf("mark payment failed: unexpected status %q", existing.Status)
		}
		return model.Payment{}, fmt.Errorf("mark payment failed: %w", err)
	}

	return payment, nil
}

// MarkRefunded moves a completed payment to refunded and cancels the
// access granted by it.
func (r *PaymentRepo) MarkRefunded(ctx context.Context, paymentID int64, now time.Time) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	if paymentID <= 0 {
		return model.Payment{}, fmt.Errorf("invalid payment id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out model.Payment
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		payment, err := scanPayment(tx.QueryRow(txCtx, `
UPDATE payments
SET status = 'refunded', processed_at = $2, updated_at = NOW()
WHERE id = $1
  AND status = 'completed'
RETURNING `+paymentColumns+`
`, paymentID, now.UTC()))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPaymentTerminal
			}
			return fmt.Errorf("mark payment refunded: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
UPDATE course_access
SET status = 'cancelled', revoked_at = $2, updated_at = NOW()
WHERE payment_id = $1
  AND status = 'active'
`, paymentID, now.UTC()); err != nil {
			return fmt.Errorf("cancel access for refunded payment: %w", err)
		}

		out = payment
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}

	return out, nil
}

// ListStalePending returns pending payments old enough that the
// gateway should already know their final state.
func (r *PaymentRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Payment, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE status = 'pending'
  AND created_at <= $1
ORDER BY created_at
LIMIT $2
`, olderThan.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (r *PaymentRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Payment, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payments by user: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (r *PaymentRepo) ListAll(ctx context.Context, status enums.PaymentStatus, courseID int64, limit, offset int) ([]model.Payment, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE ($1 = '' OR status = $1)
  AND ($2::bigint = 0 OR course_id = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`, string(status), courseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

type PaymentStats struct {
	RevenueTotal int64 `json:"revenue_total"`
	Completed    int64 `json:"completed"`
	Pending      int64 `json:"pending"`
	Failed       int64 `json:"failed"`
	Refunded     int64 `json:"refunded"`
}

func (r *PaymentRepo) Stats(ctx context.Context) (PaymentStats, error) {
	if r.pool == nil {
		return PaymentStats{}, fmt.Errorf("postgres pool is nil")
	}

	var stats PaymentStats
	if err := r.pool.QueryRow(ctx, `
SELECT
	COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
	COUNT(*) FILTER (WHERE status = 'completed'),
	COUNT(*) FILTER (WHERE status = 'pending'),
	COUNT(*) FILTER (WHERE status IN ('failed', 'cancelled')),
	COUNT(*) FILTER (WHERE status = 'refunded')
FROM payments
`).Scan(&stats.RevenueTotal, &stats.Completed, &stats.Pending, &stats.Failed, &stats.Refunded); err != nil {
		return PaymentStats{}, fmt.Errorf("payment stats: %w", err)
	}

	return stats, nil
}

func collectPayments(rows pgx.Rows) ([]model.Payment, error) {
	var payments []model.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, nil
}

func scanPayment(row pgx.Row) (model.Payment, error) {
	var (
		payment      model.Payment
		status       string
		provider     string
		externalID   *string
		description  *string
		receiptURL   *string
		errorMessage *string
	)
	if err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.CourseID,
		&payment.Amount,
		&payment.Currency,
		&status,
		&provider,
		&externalID,
		&payment.OrderID,
		&description,
		&receiptURL,
		&errorMessage,
		&payment.ProcessedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		return model.Payment{}, err
	}
	payment.Status = enums.PaymentStatus(status)
	payment.Provider = enums.PaymentProvider(provider)
	if externalID != nil {
		payment.ExternalPaymentID = *externalID
	}
	if description != nil {
		payment.Description = *description
	}
	if receiptURL != nil {
		payment.ReceiptURL = *receiptURL
	}
	if errorMessage != nil {
		payment.ErrorMessage = *errorMessage
	}
	return payment, nil
}
