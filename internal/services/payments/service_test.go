package payments_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	paysvc "github.com/Pavlentius2007/school-photobusiness/internal/services/payments"
)

func TestInitiateCreatesPendingPaymentWithConfirmationURL(t *testing.T) {
	env := newPaymentsEnv(t)
	env.courses.put(model.Course{
		ID:       10,
		Title:    "Portrait basics",
		Price:    490000,
		Currency: "RUB",
		Status:   enums.CourseStatusPublished,
	})

	res, err := env.svc.Initiate(context.Background(), 7, paysvc.InitiateInput{
		CourseID: 10,
		Provider: enums.PaymentProviderYooKassa,
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if res.ConfirmationURL != "https://pay.example/checkout" {
		t.Fatalf("unexpected confirmation url %q", res.ConfirmationURL)
	}
	if res.Payment.Status != enums.PaymentStatusPending {
		t.Fatalf("payment should stay pending, got %q", res.Payment.Status)
	}
	if res.Payment.ExternalPaymentID == "" {
		t.Fatalf("external id was not bound")
	}
	if res.Payment.Amount != 490000 {
		t.Fatalf("unexpected amount %d", res.Payment.Amount)
	}
}

func TestInitiateRejectsDraftCourseAndOwnedCourse(t *testing.T) {
	env := newPaymentsEnv(t)
	env.courses.put(model.Course{ID: 11, Title: "Draft", Price: 100000, Status: enums.CourseStatusDraft})
	env.courses.put(model.Course{ID: 12, Title: "Owned", Price: 100000, Status: enums.CourseStatusPublished})
	env.access.grant(5, 12)

	if _, err := env.svc.Initiate(context.Background(), 5, paysvc.InitiateInput{
		CourseID: 11,
		Provider: enums.PaymentProviderYooKassa,
	}); !errors.Is(err, paysvc.ErrCourseNotPayable) {
		t.Fatalf("draft course should not be payable, got err=%v", err)
	}

	if _, err := env.svc.Initiate(context.Background(), 5, paysvc.InitiateInput{
		CourseID: 12,
		Provider: enums.PaymentProviderYooKassa,
	}); !errors.Is(err, paysvc.ErrAlreadyOwned) {
		t.Fatalf("owned course should be rejected, got err=%v", err)
	}
}

func TestWebhookCompletionIsIdempotent(t *testing.T) {
	env := newPaymentsEnv(t)
	env.courses.put(model.Course{ID: 20, Title: "Course", Price: 200000, Currency: "RUB", Status: enums.CourseStatusPublished})

	initiated, err := env.svc.Initiate(context.Background(), 3, paysvc.InitiateInput{
		CourseID: 20,
		Provider: enums.PaymentProviderYooKassa,
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	webhook := paysvc.WebhookInput{
		Provider:   enums.PaymentProviderYooKassa,
		Signature:  "ok",
		Body:       []byte(`{"event":"payment.succeeded"}`),
		ExternalID: initiated.Payment.ExternalPaymentID,
		Status:     paysvc.GatewayStatusSucceeded,
	}

	first, err := env.svc.HandleWebhook(context.Background(), webhook)
	if err != nil {
		t.Fatalf("first webhook: %v", err)
	}
	if first.Idempotent {
		t.Fatalf("first webhook should not be idempotent")
	}
	if first.Payment.Status != enums.PaymentStatusCompleted {
		t.Fatalf("payment should be completed, got %q", first.Payment.Status)
	}
	if first.Access.ID == 0 {
		t.Fatalf("access was not granted")
	}

	second, err := env.svc.HandleWebhook(context.Background(), webhook)
	if err != nil {
		t.Fatalf("second webhook: %v", err)
	}
	if !second.Idempotent {
		t.Fatalf("retried webhook should be idempotent")
	}
	if env.access.count(3, 20) != 1 {
		t.Fatalf("duplicate webhook granted access twice")
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newPaymentsEnv(t)

	_, err := env.svc.HandleWebhook(context.Background(), paysvc.WebhookInput{
		Provider:   enums.PaymentProviderYooKassa,
		Signature:  "forged",
		Body:       []byte(`{}`),
		ExternalID: "ext-1",
		Status:     paysvc.GatewayStatusSucceeded,
	})
	if !errors.Is(err, paysvc.ErrWebhookSignature) {
		t.Fatalf("forged signature should be rejected, got err=%v", err)
	}
}

func TestSberbankInstallmentBounds(t *testing.T) {
	gw, err := paysvc.NewSberbankGateway(paysvc.SberbankConfig{
		Username: "merchant",
		Password: "secret",
	}, &http.Client{Timeout: time.Second})
	if err != nil {
		t.Fatalf("new sberbank gateway: %v", err)
	}

	cases := []struct {
		amount int64
		want   bool
	}{
		{299999, false},
		{300000, true},
		{30000000, true},
		{30000001, false},
	}
	for _, tc := range cases {
		if got := gw.AmountInRange(tc.amount); got != tc.want {
			t.Fatalf("AmountInRange(%d) = %v, want %v", tc.amount, got, tc.want)
		}
	}
}

func TestFailedGatewayStatusMarksPaymentFailed(t *testing.T) {
	env := newPaymentsEnv(t)
	env.courses.put(model.Course{ID: 30, Title: "Course", Price: 150000, Currency: "RUB", Status: enums.CourseStatusPublished})

	initiated, err := env.svc.Initiate(context.Background(), 9, paysvc.InitiateInput{
		CourseID: 30,
		Provider: enums.PaymentProviderYooKassa,
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	res, err := env.svc.HandleWebhook(context.Background(), paysvc.WebhookInput{
		Provider:   enums.PaymentProviderYooKassa,
		Signature:  "ok",
		Body:       []byte(`{"event":"payment.canceled"}`),
		ExternalID: initiated.Payment.ExternalPaymentID,
		Status:     paysvc.GatewayStatusCancelled,
		Reason:     "expired_on_confirmation",
	})
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if res.Payment.Status != enums.PaymentStatusCancelled {
		t.Fatalf("payment should be cancelled, got %q", res.Payment.Status)
	}
	if env.access.count(9, 30) != 0 {
		t.Fatalf("failed payment must not grant access")
	}
}

type paymentsEnv struct {
	svc     *paysvc.Service
	store   *fakePaymentStore
	courses *fakeCourseStore
	access  *fakeAccessStore
}

func newPaymentsEnv(t *testing.T) *paymentsEnv {
	t.Helper()

	store := newFakePaymentStore()
	courses := &fakeCourseStore{byID: map[int64]model.Course{}}
	access := newFakeAccessStore()
	store.access = access

	svc := paysvc.NewService(paysvc.Dependencies{
		Payments:  store,
		Courses:   courses,
		Access:    access,
		Gateways:  paysvc.NewRegistry(&fakeGateway{provider: enums.PaymentProviderYooKassa}),
		ReturnURL: "https://school.example/payment/return",
	})

	return &paymentsEnv{svc: svc, store: store, courses: courses, access: access}
}

type fakeGateway struct {
	provider enums.PaymentProvider
	seq      int
}

func (g *fakeGateway) Provider() enums.PaymentProvider { return g.provider }

func (g *fakeGateway) CreatePayment(_ context.Context, _ paysvc.CreateGatewayPaymentParams) (paysvc.GatewayPayment, error) {
	g.seq++
	return paysvc.GatewayPayment{
		ExternalID:      fmt.Sprintf("ext-%d", g.seq),
		Status:          paysvc.GatewayStatusPending,
		ConfirmationURL: "https://pay.example/checkout",
	}, nil
}

func (g *fakeGateway) GetPayment(_ context.Context, externalID string) (paysvc.GatewayPayment, error) {
	return paysvc.GatewayPayment{ExternalID: externalID, Status: paysvc.GatewayStatusPending}, nil
}

func (g *fakeGateway) VerifyWebhook(signature string, _ []byte) error {
	if signature != "ok" {
		return paysvc.ErrWebhookSignature
	}
	return nil
}

type fakeCourseStore struct {
	byID map[int64]model.Course
}

func (s *fakeCourseStore) put(course model.Course) { s.byID[course.ID] = course }

func (s *fakeCourseStore) FindByID(_ context.Context, courseID int64) (model.Course, error) {
	course, ok := s.byID[courseID]
	if !ok {
		return model.Course{}, pgrepo.ErrCourseNotFound
	}
	return course, nil
}

type fakeAccessStore struct {
	mu     sync.Mutex
	nextID int64
	grants map[[2]int64]model.CourseAccess
}

func newFakeAccessStore() *fakeAccessStore {
	return &fakeAccessStore{nextID: 1, grants: map[[2]int64]model.CourseAccess{}}
}

func (s *fakeAccessStore) grant(userID, courseID int64) model.CourseAccess {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{userID, courseID}
	if existing, ok := s.grants[key]; ok {
		return existing
	}
	access := model.CourseAccess{
		ID:       s.nextID,
		UserID:   userID,
		CourseID: courseID,
		Status:   enums.AccessStatusActive,
	}
	s.nextID++
	s.grants[key] = access
	return access
}

func (s *fakeAccessStore) count(userID, courseID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[[2]int64{userID, courseID}]; ok {
		return 1
	}
	return 0
}

func (s *fakeAccessStore) HasActiveAccess(_ context.Context, userID, courseID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.grants[[2]int64{userID, courseID}]
	return ok, nil
}

type fakePaymentStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]model.Payment
	access *fakeAccessStore
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{nextID: 1, byID: map[int64]model.Payment{}}
}

func (s *fakePaymentStore) CreatePending(_ context.Context, p pgrepo.CreatePaymentParams) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment := model.Payment{
		ID:          s.nextID,
		UserID:      p.UserID,
		CourseID:    p.CourseID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      enums.PaymentStatusPending,
		Provider:    p.Provider,
		OrderID:     p.OrderID,
		Description: p.Description,
	}
	s.nextID++
	s.byID[payment.ID] = payment
	return payment, nil
}

func (s *fakePaymentStore) FindByID(_ context.Context, paymentID int64) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.byID[paymentID]
	if !ok {
		return model.Payment{}, pgrepo.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *fakePaymentStore) FindByOrderID(_ context.Context, orderID string) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.byID {
		if payment.OrderID == orderID {
			return payment, nil
		}
	}
	return model.Payment{}, pgrepo.ErrPaymentNotFound
}

func (s *fakePaymentStore) FindByExternalID(_ context.Context, provider enums.PaymentProvider, externalID string) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.byID {
		if payment.Provider == provider && payment.ExternalPaymentID == externalID {
			return payment, nil
		}
	}
	return model.Payment{}, pgrepo.ErrPaymentNotFound
}

func (s *fakePaymentStore) BindExternalID(_ context.Context, paymentID int64, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.byID[paymentID]
	if !ok {
		return pgrepo.ErrPaymentNotFound
	}
	payment.ExternalPaymentID = externalID
	s.byID[paymentID] = payment
	return nil
}

func (s *fakePaymentStore) CompleteAndGrant(_ context.Context, paymentID int64, externalID, receiptURL string, _ *time.Time, now time.Time) (pgrepo.CompleteResult, error) {
	s.mu.Lock()
	payment, ok := s.byID[paymentID]
	if !ok {
		s.mu.Unlock()
		return pgrepo.CompleteResult{}, pgrepo.ErrPaymentNotFound
	}
	if payment.Status == enums.PaymentStatusCompleted {
		s.mu.Unlock()
		access := s.access.grant(payment.UserID, payment.CourseID)
		return pgrepo.CompleteResult{Payment: payment, Access: access, Idempotent: true}, nil
	}
	if payment.Status.Terminal() {
		s.mu.Unlock()
		return pgrepo.CompleteResult{}, pgrepo.ErrPaymentTerminal
	}
	payment.Status = enums.PaymentStatusCompleted
	if externalID != "" {
		payment.ExternalPaymentID = externalID
	}
	payment.ReceiptURL = receiptURL
	payment.ProcessedAt = &now
	s.byID[paymentID] = payment
	s.mu.Unlock()

	access := s.access.grant(payment.UserID, payment.CourseID)
	return pgrepo.CompleteResult{Payment: payment, Access: access}, nil
}

func (s *fakePaymentStore) MarkFailed(_ context.Context, paymentID int64, status enums.PaymentStatus, errorMessage string, now time.Time) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.byID[paymentID]
	if !ok {
		return model.Payment{}, pgrepo.ErrPaymentNotFound
	}
	if payment.Status.Terminal() {
		return model.Payment{}, pgrepo.ErrPaymentTerminal
	}
	payment.Status = status
	payment.ErrorMessage = errorMessage
	payment.ProcessedAt = &now
	s.byID[paymentID] = payment
	return payment, nil
}

func (s *fakePaymentStore) MarkRefunded(_ context.Context, paymentID int64, now time.Time) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.byID[paymentID]
	if !ok {
		return model.Payment{}, pgrepo.ErrPaymentNotFound
	}
	if payment.Status != enums.PaymentStatusCompleted {
		return model.Payment{}, pgrepo.ErrPaymentTerminal
	}
	payment.Status = enums.PaymentStatusRefunded
	payment.ProcessedAt = &now
	s.byID[paymentID] = payment
	return payment, nil
}

func (s *fakePaymentStore) ListStalePending(_ context.Context, _ time.Time, limit int) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Payment
	for _, payment := range s.byID {
		if payment.Status == enums.PaymentStatusPending && len(out) < limit {
			out = append(out, payment)
		}
	}
	return out, nil
}

func (s *fakePaymentStore) ListByUser(_ context.Context, userID int64, _, _ int) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Payment
	for _, payment := range s.byID {
		if payment.UserID == userID {
			out = append(out, payment)
		}
	}
	return out, nil
}

func (s *fakePaymentStore) Stats(context.Context) (pgrepo.PaymentStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats pgrepo.PaymentStats
	for _, payment := range s.byID {
		switch payment.Status {
		case enums.PaymentStatusCompleted:
			stats.Completed++
			stats.RevenueTotal += payment.Amount
		case enums.PaymentStatusPending:
			stats.Pending++
		case enums.PaymentStatusRefunded:
			stats.Refunded++
		default:
			stats.Failed++
		}
	}
	return stats, nil
}

func (s *fakePaymentStore) ListAll(_ context.Context, status enums.PaymentStatus, courseID int64, _, _ int) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Payment
	for _, payment := range s.byID {
		if status != "" && payment.Status != status {
			continue
		}
		if courseID != 0 && payment.CourseID != courseID {
			continue
		}
		out = append(out, payment)
	}
	return out, nil
}
