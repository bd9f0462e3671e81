package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrUnsupportedProvider = errors.New("unsupported payment provider")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrCourseNotPayable    = errors.New("course is not payable")
	ErrAmountOutOfRange    = errors.New("amount outside installment range")
	ErrAlreadyOwned        = errors.New("course access already active")
)

type PaymentStore interface {
	CreatePending(ctx context.Context, p pgrepo.CreatePaymentParams) (model.Payment, error)
	FindByID(ctx context.Context, paymentID int64) (model.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (model.Payment, error)
	FindByExternalID(ctx context.Context, provider enums.PaymentProvider, externalID string) (model.Payment, error)
	BindExternalID(ctx context.Context, paymentID int64, externalID string) error
	CompleteAndGrant(ctx context.Context, paymentID int64, externalID, receiptURL string, expiresAt *time.Time, now time.Time) (pgrepo.CompleteResult, error)
	MarkFailed(ctx context.Context, paymentID int64, status enums.PaymentStatus, errorMessage string, now time.Time) (model.Payment, error)
	MarkRefunded(ctx context.Context, paymentID int64, now time.Time) (model.Payment, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Payment, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Payment, error)
	ListAll(ctx context.Context, status enums.PaymentStatus, courseID int64, limit, offset int) ([]model.Payment, error)
	Stats(ctx context.Context) (pgrepo.PaymentStats, error)
}

type CourseStore interface {
	FindByID(ctx context.Context, courseID int64) (model.Course, error)
}

type AccessChecker interface {
	HasActiveAccess(ctx context.Context, userID, courseID int64) (bool, error)
}

type Service struct {
	payments  PaymentStore
	courses   CourseStore
	access    AccessChecker
	gateways  *Registry
	returnURL string
	log       *zap.Logger
	now       func() time.Time

	onInitiated func(ctx context.Context, payment model.Payment)
	onSettled   func(ctx context.Context, payment model.Payment, succeeded bool)
}

// AttachHooks enables side effects on payment transitions, audit
// records and user notifications. Both are best effort.
func (s *Service) AttachHooks(
	onInitiated func(ctx context.Context, payment model.Payment),
	onSettled func(ctx context.Context, payment model.Payment, succeeded bool),
) {
	s.onInitiated = onInitiated
	s.onSettled = onSettled
}

type Dependencies struct {
	Payments  PaymentStore
	Courses   CourseStore
	Access    AccessChecker
	Gateways  *Registry
	ReturnURL string
	Log       *zap.Logger
}

func NewService(deps Dependencies) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		payments:  deps.Payments,
		courses:   deps.Courses,
		access:    deps.Access,
		gateways:  deps.Gateways,
		returnURL: deps.ReturnURL,
		log:       log,
		now:       time.Now,
	}
}

type InitiateInput struct {
	CourseID int64
	Provider enums.PaymentProvider
	Email    string
}

type InitiateResult struct {
	Payment         model.Payment
	ConfirmationURL string
}

// Initiate creates a pending payment and registers it with the
// provider. The confirmation URL sends the student to the provider's
// checkout page.
func (s *Service) Initiate(ctx context.Context, userID int64, in InitiateInput) (InitiateResult, error) {
	if userID <= 0 || in.CourseID <= 0 {
		return InitiateResult{}, ErrValidation
	}
	if !in.Provider.Valid() {
		return InitiateResult{}, ErrUnsupportedProvider
	}

	course, err := s.courses.FindByID(ctx, in.CourseID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCourseNotFound) {
			return InitiateResult{}, ErrCourseNotPayable
		}
		return InitiateResult{}, fmt.Errorf("find course: %w", err)
	}
	if course.Status != enums.CourseStatusPublished || course.Price <= 0 {
		return InitiateResult{}, ErrCourseNotPayable
	}

	owned, err := s.access.HasActiveAccess(ctx, userID, course.ID)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("check existing access: %w", err)
	}
	if owned {
		return InitiateResult{}, ErrAlreadyOwned
	}

	gateway, err := s.gateways.Get(in.Provider)
	if err != nil {
		return InitiateResult{}, err
	}
	if sber, ok := gateway.(*SberbankGateway); ok && !sber.AmountInRange(course.Price) {
		return InitiateResult{}, ErrAmountOutOfRange
	}

	orderID := uuid.NewString()
	payment, err := s.payments.CreatePending(ctx, pgrepo.CreatePaymentParams{
		UserID:      userID,
		CourseID:    course.ID,
		Amount:      course.Price,
		Currency:    course.Currency,
		Provider:    in.Provider,
		OrderID:     orderID,
		Description: "Course: " + course.Title,
	})
	if err != nil {
		return InitiateResult{}, fmt.Errorf("create pending payment: %w", err)
	}

	remote, err := gateway.CreatePayment(ctx, CreateGatewayPaymentParams{
		OrderID:       orderID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Description:   payment.Description,
		ReturnURL:     s.returnURL,
		CustomerEmail: strings.TrimSpace(in.Email),
	})
	if err != nil {
		// Keep the row, the reconcile job or a retry can pick it up.
		s.log.Warn("gateway create failed",
			zap.Int64("payment_id", payment.ID),
			zap.String("provider", string(in.Provider)),
			zap.Error(err))
		return InitiateResult{}, err
	}

	if err := s.payments.BindExternalID(ctx, payment.ID, remote.ExternalID); err != nil {
		return InitiateResult{}, fmt.Errorf("bind external payment id: %w", err)
	}
	payment.ExternalPaymentID = remote.ExternalID

	s.log.Info("payment initiated",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("user_id", userID),
		zap.Int64("course_id", course.ID),
		zap.String("provider", string(in.Provider)),
		zap.Int64("amount", payment.Amount))
	if s.onInitiated != nil {
		s.onInitiated(ctx, payment)
	}

	return InitiateResult{
		Payment:         payment,
		ConfirmationURL: remote.ConfirmationURL,
	}, nil
}

type WebhookInput struct {
	Provider   enums.PaymentProvider
	Signature  string
	Body       []byte
	ExternalID string
	OrderID    string
	Status     GatewayStatus
	ReceiptURL string
	Reason     string
}

type SettleResult struct {
	Payment    model.Payment
	Access     model.CourseAccess
	Idempotent bool
}

// HandleWebhook verifies the signature and converges the local row to
// what the provider reports. Retried webhooks are acknowledged as
// idempotent instead of failing.
func (s *Service) HandleWebhook(ctx context.Context, in WebhookInput) (SettleResult, error) {
	if !in.Provider.Valid() {
		return SettleResult{}, ErrUnsupportedProvider
	}

	gateway, err := s.gateways.Get(in.Provider)
	if err != nil {
		return SettleResult{}, err
	}
	if err := gateway.VerifyWebhook(in.Signature, in.Body); err != nil {
		return SettleResult{}, err
	}

	payment, err := s.resolvePayment(ctx, in.Provider, in.ExternalID, in.OrderID)
	if err != nil {
		return SettleResult{}, err
	}

	return s.settle(ctx, payment, GatewayPayment{
		ExternalID:   strings.TrimSpace(in.ExternalID),
		Status:       in.Status,
		ReceiptURL:   in.ReceiptURL,
		ErrorMessage: in.Reason,
	})
}

// CheckStatus polls the provider for one pending payment and settles
// it if the remote side reached a terminal state.
func (s *Service) CheckStatus(ctx context.Context, paymentID int64) (SettleResult, error) {
	if paymentID <= 0 {
		return SettleResult{}, ErrValidation
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPaymentNotFound) {
			return SettleResult{}, ErrPaymentNotFound
		}
		return SettleResult{}, fmt.Errorf("find payment: %w", err)
	}
	if payment.Status.Terminal() {
		return SettleResult{Payment: payment, Idempotent: true}, nil
	}
	if payment.ExternalPaymentID == "" {
		return SettleResult{Payment: payment, Idempotent: true}, nil
	}

	gateway, err := s.gateways.Get(payment.Provider)
	if err != nil {
		return SettleResult{}, err
	}
	remote, err := gateway.GetPayment(ctx, payment.ExternalPaymentID)
	if err != nil {
		return SettleResult{}, err
	}

	return s.settle(ctx, payment, remote)
}

func (s *Service) settle(ctx context.Context, payment model.Payment, remote GatewayPayment) (SettleResult, error) {
	now := s.now().UTC()

	switch remote.Status {
	case GatewayStatusSucceeded:
		res, err := s.payments.CompleteAndGrant(ctx, payment.ID, remote.ExternalID, remote.ReceiptURL, nil, now)
		if err != nil {
			if errors.Is(err, pgrepo.ErrPaymentTerminal) {
				return SettleResult{Payment: payment, Idempotent: true}, nil
			}
			return SettleResult{}, fmt.Errorf("complete payment: %w", err)
		}
		if !res.Idempotent {
			s.log.Info("payment completed",
				zap.Int64("payment_id", res.Payment.ID),
				zap.Int64("user_id", res.Payment.UserID),
				zap.Int64("course_id", res.Payment.CourseID),
				zap.Int64("access_id", res.Access.ID))
			if s.onSettled != nil {
				s.onSettled(ctx, res.Payment, true)
			}
		}
		return SettleResult{Payment: res.Payment, Access: res.Access, Idempotent: res.Idempotent}, nil

	case GatewayStatusFailed, GatewayStatusCancelled:
		status := enums.PaymentStatusFailed
		if remote.Status == GatewayStatusCancelled {
			status = enums.PaymentStatusCancelled
		}
		updated, err := s.payments.MarkFailed(ctx, payment.ID, status, remote.ErrorMessage, now)
		if err != nil {
			if errors.Is(err, pgrepo.ErrPaymentTerminal) {
				return SettleResult{Payment: payment, Idempotent: true}, nil
			}
			return SettleResult{}, fmt.Errorf("mark payment failed: %w", err)
		}
		s.log.Info("payment failed",
			zap.Int64("payment_id", updated.ID),
			zap.String("status", string(updated.Status)),
			zap.String("reason", remote.ErrorMessage))
		if s.onSettled != nil {
			s.onSettled(ctx, updated, false)
		}
		return SettleResult{Payment: updated}, nil

	case GatewayStatusRefunded:
		updated, err := s.payments.MarkRefunded(ctx, payment.ID, now)
		if err != nil {
			if errors.Is(err, pgrepo.ErrPaymentTerminal) {
				return SettleResult{Payment: payment, Idempotent: true}, nil
			}
			return SettleResult{}, fmt.Errorf("mark payment refunded: %w", err)
		}
		s.log.Info("payment refunded", zap.Int64("payment_id", updated.ID))
		return SettleResult{Payment: updated}, nil

	default:
		// Still pending remotely, nothing to converge.
		return SettleResult{Payment: payment, Idempotent: true}, nil
	}
}

// Refund marks a completed payment refunded and pulls the access it
// granted. The money movement itself happens in the provider's
// dashboard, this records the outcome.
func (s *Service) Refund(ctx context.Context, paymentID int64) (model.Payment, error) {
	if paymentID <= 0 {
		return model.Payment{}, ErrValidation
	}

	payment, err := s.payments.MarkRefunded(ctx, paymentID, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrPaymentNotFound):
			return model.Payment{}, ErrPaymentNotFound
		case errors.Is(err, pgrepo.ErrPaymentTerminal):
			return model.Payment{}, fmt.Errorf("payment is not refundable: %w", ErrValidation)
		}
		return model.Payment{}, fmt.Errorf("mark payment refunded: %w", err)
	}

	s.log.Info("payment refunded", zap.Int64("payment_id", payment.ID))
	return payment, nil
}

func (s *Service) Get(ctx context.Context, paymentID int64) (model.Payment, error) {
	if paymentID <= 0 {
		return model.Payment{}, ErrValidation
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPaymentNotFound) {
			return model.Payment{}, ErrPaymentNotFound
		}
		return model.Payment{}, fmt.Errorf("find payment: %w", err)
	}

	return payment, nil
}

func (s *Service) ListMine(ctx context.Context, userID int64, limit, offset int) ([]model.Payment, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}

	payments, err := s.payments.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payments by user: %w", err)
	}

	return payments, nil
}

func (s *Service) ListAll(ctx context.Context, status enums.PaymentStatus, courseID int64, limit, offset int) ([]model.Payment, error) {
	payments, err := s.payments.ListAll(ctx, status, courseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	return payments, nil
}

// Stats aggregates revenue and per-status counts for the admin panel.
func (s *Service) Stats(ctx context.Context) (pgrepo.PaymentStats, error) {
	stats, err := s.payments.Stats(ctx)
	if err != nil {
		return pgrepo.PaymentStats{}, fmt.Errorf("payment stats: %w", err)
	}

	return stats, nil
}

// ReconcileStale polls providers for payments stuck in pending. The
// reconcile job drives it on a timer.
func (s *Service) ReconcileStale(ctx context.Context, minAge time.Duration, batch int) (int, error) {
	stale, err := s.payments.ListStalePending(ctx, s.now().UTC().Add(-minAge), batch)
	if err != nil {
		return 0, fmt.Errorf("list stale pending payments: %w", err)
	}

	settled := 0
	for _, payment := range stale {
		res, err := s.CheckStatus(ctx, payment.ID)
		if err != nil {
			s.log.Warn("reconcile payment",
				zap.Int64("payment_id", payment.ID),
				zap.Error(err))
			continue
		}
		if res.Payment.Status.Terminal() && !res.Idempotent {
			settled++
		}
	}

	return settled, nil
}

func (s *Service) resolvePayment(ctx context.Context, provider enums.PaymentProvider, externalID, orderID string) (model.Payment, error) {
	externalID = strings.TrimSpace(externalID)
	orderID = strings.TrimSpace(orderID)

	if externalID != "" {
		payment, err := s.payments.FindByExternalID(ctx, provider, externalID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, pgrepo.ErrPaymentNotFound) {
			return model.Payment{}, fmt.Errorf("find payment by external id: %w", err)
		}
	}
	if orderID != "" {
		payment, err := s.payments.FindByOrderID(ctx, orderID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, pgrepo.ErrPaymentNotFound) {
			return model.Payment{}, fmt.Errorf("find payment by order id: %w", err)
		}
	}

	return model.Payment{}, ErrPaymentNotFound
}
