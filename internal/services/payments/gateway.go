package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

var (
	// ErrGateway wraps provider-side failures so callers can tell
	// them apart from our own errors.
	ErrGateway = errors.New("payment gateway error")

	ErrWebhookSignature = errors.New("webhook signature mismatch")
)

// GatewayStatus is the provider-neutral view of a remote payment.
type GatewayStatus string

const (
	GatewayStatusPending   GatewayStatus = "pending"
	GatewayStatusSucceeded GatewayStatus = "succeeded"
	GatewayStatusFailed    GatewayStatus = "failed"
	GatewayStatusCancelled GatewayStatus = "cancelled"
	GatewayStatusRefunded  GatewayStatus = "refunded"
)

type CreateGatewayPaymentParams struct {
	OrderID       string
	Amount        int64
	Currency      string
	Description   string
	ReturnURL     string
	CustomerEmail string
}

type GatewayPayment struct {
	ExternalID      string
	Status          GatewayStatus
	ConfirmationURL string
	ReceiptURL      string
	ErrorMessage    string
}

// Gateway is one payment provider. Amounts are minor units.
type Gateway interface {
	Provider() enums.PaymentProvider
	CreatePayment(ctx context.Context, p CreateGatewayPaymentParams) (GatewayPayment, error)
	GetPayment(ctx context.Context, externalID string) (GatewayPayment, error)
	VerifyWebhook(signature string, body []byte) error
}

type Registry struct {
	gateways map[enums.PaymentProvider]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	byProvider := make(map[enums.PaymentProvider]Gateway, len(gateways))
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		byProvider[gw.Provider()] = gw
	}
	return &Registry{gateways: byProvider}
}

func (r *Registry) Get(provider enums.PaymentProvider) (Gateway, error) {
	gw, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured: %w", provider, ErrUnsupportedProvider)
	}
	return gw, nil
}

func gatewayErr(provider enums.PaymentProvider, op string, err error) error {
	return fmt.Errorf("%s %s: %v: %w", provider, op, err, ErrGateway)
}

func gatewayHTTPErr(provider enums.PaymentProvider, op string, code int) error {
	return fmt.Errorf("%s %s: unexpected status %d: %w", provider, op, code, ErrGateway)
}

