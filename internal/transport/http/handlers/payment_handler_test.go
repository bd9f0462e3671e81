package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	"github.com/Pavlentius2007/school-photobusiness/internal/domain/model"
	pgrepo "github.com/Pavlentius2007/school-photobusiness/internal/repo/postgres"
	authsvc "github.com/Pavlentius2007/school-photobusiness/internal/services/auth"
	paymentssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/payments"
)

func TestCheckStatusRequiresOwnerOrAdmin(t *testing.T) {
	store := &paymentTestStore{payments: map[int64]model.Payment{
		1: {ID: 1, UserID: 1, CourseID: 10, Amount: 100000, Status: enums.PaymentStatusCompleted},
	}}
	service := paymentssvc.NewService(paymentssvc.Dependencies{
		Payments: store,
		Gateways: paymentssvc.NewRegistry(),
	})
	handler := NewPaymentHandler(service)

	cases := []struct {
		name   string
		caller authsvc.Identity
		want   int
	}{
		{"foreign student", authsvc.Identity{UserID: 99, Role: string(enums.RoleStudent)}, http.StatusForbidden},
		{"payer", authsvc.Identity{UserID: 1, Role: string(enums.RoleStudent)}, http.StatusOK},
		{"admin", authsvc.Identity{UserID: 99, Role: string(enums.RoleAdmin)}, http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/1/check", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("paymentID", "1")
		ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
		req = req.WithContext(authsvc.WithIdentity(ctx, tc.caller))

		rr := httptest.NewRecorder()
		handler.CheckStatus(rr, req)

		if rr.Code != tc.want {
			t.Errorf("%s: got status %d want %d, body %s", tc.name, rr.Code, tc.want, rr.Body.String())
		}
	}
}

type paymentTestStore struct {
	payments map[int64]model.Payment
}

func (s *paymentTestStore) FindByID(_ context.Context, paymentID int64) (model.Payment, error) {
	payment, ok := s.payments[paymentID]
	if !ok {
		return model.Payment{}, pgrepo.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *paymentTestStore) CreatePending(context.Context, pgrepo.CreatePaymentParams) (model.Payment, error) {
	return model.Payment{}, pgrepo.ErrPaymentNotFound
}

func (s *paymentTestStore) FindByOrderID(context.Context, string) (model.Payment, error) {
	return model.Payment{}, pgrepo.ErrPaymentNotFound
}

func (s *paymentTestStore) FindByExternalID(context.Context, enums.PaymentProvider, string) (model.Payment, error) {
	return model.Payment{}, pgrepo.ErrPaymentNotFound
}

func (s *paymentTestStore) BindExternalID(context.Context, int64, string) error { return nil }

func (s *paymentTestStore) CompleteAndGrant(context.Context, int64, string, string, *time.Time, time.Time) (pgrepo.CompleteResult, error) {
	return pgrepo.CompleteResult{}, pgrepo.ErrPaymentNotFound
}

func (s *paymentTestStore) MarkFailed(context.Context, int64, enums.PaymentStatus, string, time.Time) (model.Payment, error) {
	return model.Payment{}, pgrepo.ErrPaymentNotFound
}

func (s *paymentTestStore) MarkRefunded(context.Context, int64, time.Time) (model.Payment, error) {
	return model.Payment{}, pgrepo.ErrPaymentNotFound
}

func (s *paymentTestStore) ListStalePending(context.Context, time.Time, int) ([]model.Payment, error) {
	return nil, nil
}

func (s *paymentTestStore) ListByUser(context.Context, int64, int, int) ([]model.Payment, error) {
	return nil, nil
}

func (s *paymentTestStore) ListAll(context.Context, enums.PaymentStatus, int64, int, int) ([]model.Payment, error) {
	return nil, nil
}

func (s *paymentTestStore) Stats(context.Context) (pgrepo.PaymentStats, error) {
	return pgrepo.PaymentStats{}, nil
}

func TestYookassaWebhookStatusMapping(t *testing.T) {
	cases := []struct {
		status string
		want   paymentssvc.GatewayStatus
	}{
		{"succeeded", paymentssvc.GatewayStatusSucceeded},
		{"canceled", paymentssvc.GatewayStatusCancelled},
		{"refunded", paymentssvc.GatewayStatusRefunded},
		{"pending", paymentssvc.GatewayStatusPending},
		{"waiting_for_capture", paymentssvc.GatewayStatusPending},
		{"something_new", paymentssvc.GatewayStatusFailed},
	}

	for _, tc := range cases {
		if got := yookassaWebhookStatus(tc.status); got != tc.want {
			t.Errorf("yookassa %q: got %q want %q", tc.status, got, tc.want)
		}
	}
}

func TestSberbankWebhookStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   paymentssvc.GatewayStatus
	}{
		{0, paymentssvc.GatewayStatusPending},
		{1, paymentssvc.GatewayStatusPending},
		{2, paymentssvc.GatewayStatusSucceeded},
		{3, paymentssvc.GatewayStatusCancelled},
		{4, paymentssvc.GatewayStatusRefunded},
		{6, paymentssvc.GatewayStatusFailed},
	}

	for _, tc := range cases {
		if got := sberbankWebhookStatus(tc.status); got != tc.want {
			t.Errorf("sberbank %d: got %q want %q", tc.status, got, tc.want)
		}
	}
}
