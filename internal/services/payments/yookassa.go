package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

// YooKassaGateway talks to the YooKassa REST API. Requests are
// authenticated with shop id / secret key basic auth, webhooks with an
// HMAC signature over the raw body.
type YooKassaGateway struct {
	shopID        string
	secretKey     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

type YooKassaConfig struct {
	ShopID        string
	SecretKey     string
	WebhookSecret string
	BaseURL       string
}

func NewYooKassaGateway(cfg YooKassaConfig, httpClient *http.Client) (*YooKassaGateway, error) {
	if strings.TrimSpace(cfg.ShopID) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("yookassa shop id and secret key are required")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("http client is nil")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.yookassa.ru/v3"
	}

	return &YooKassaGateway{
		shopID:        cfg.ShopID,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       baseURL,
		httpClient:    httpClient,
	}, nil
}

func (g *YooKassaGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderYooKassa
}

type yookassaAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yookassaCreateRequest struct {
	Amount       yookassaAmount `json:"amount"`
	Capture      bool           `json:"capture"`
	Description  string         `json:"description,omitempty"`
	Confirmation struct {
		Type      string `json:"type"`
		ReturnURL string `json:"return_url"`
	} `json:"confirmation"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type yookassaPayment struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Paid         bool           `json:"paid"`
	Amount       yookassaAmount `json:"amount"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
	ReceiptRegistration string `json:"receipt_registration"`
	CancellationDetails struct {
		Reason string `json:"reason"`
	} `json:"cancellation_details"`
}

func (g *YooKassaGateway) CreatePayment(ctx context.Context, p CreateGatewayPaymentParams) (GatewayPayment, error) {
	reqBody := yookassaCreateRequest{
		Amount: yookassaAmount{
			Value:    minorUnitsToDecimal(p.Amount),
			Currency: p.Currency,
		},
		Capture:     true,
		Description: p.Description,
		Metadata:    map[string]string{"order_id": p.OrderID},
	}
	reqBody.Confirmation.Type = "redirect"
	reqBody.Confirmation.ReturnURL = p.ReturnURL

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return GatewayPayment{}, fmt.Errorf("marshal yookassa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments", bytes.NewReader(raw))
	if err != nil {
		return GatewayPayment{}, fmt.Errorf("build yookassa request: %w", err)
	}
	req.SetBasicAuth(g.shopID, g.secretKey)
	req.Header.Set("Content-Type", "application/json")
	// Idempotence key ties retries of this create to one remote payment.
	req.Header.Set("Idempotence-Key", uuid.NewSHA1(uuid.NameSpaceURL, []byte("order:"+p.OrderID)).String())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return GatewayPayment{}, gatewayErr(g.Provider(), "create payment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GatewayPayment{}, gatewayHTTPErr(g.Provider(), "create payment", resp.StatusCode)
	}

	var payment yookassaPayment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return GatewayPayment{}, gatewayErr(g.Provider(), "decode create response", err)
	}

	return g.toGatewayPayment(payment), nil
}

func (g *YooKassaGateway) GetPayment(ctx context.Context, externalID string) (GatewayPayment, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return GatewayPayment{}, fmt.Errorf("external payment id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/payments/"+externalID, nil)
	if err != nil {
		return GatewayPayment{}, fmt.Errorf("build yookassa request: %w", err)
	}
	req.SetBasicAuth(g.shopID, g.secretKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return GatewayPayment{}, gatewayErr(g.Provider(), "get payment", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GatewayPayment{}, gatewayHTTPErr(g.Provider(), "get payment", resp.StatusCode)
	}

	var payment yookassaPayment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return GatewayPayment{}, gatewayErr(g.Provider(), "decode payment", err)
	}

	return g.toGatewayPayment(payment), nil
}

func (g *YooKassaGateway) VerifyWebhook(signature string, body []byte) error {
	if g.webhookSecret == "" {
		return fmt.Errorf("yookassa webhook secret is not configured")
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return ErrWebhookSignature
	}

	return nil
}

func (g *YooKassaGateway) toGatewayPayment(payment yookassaPayment) GatewayPayment {
	out := GatewayPayment{
		ExternalID:      payment.ID,
		ConfirmationURL: payment.Confirmation.ConfirmationURL,
		ErrorMessage:    payment.CancellationDetails.Reason,
	}

	switch payment.Status {
	case "succeeded":
		out.Status = GatewayStatusSucceeded
	case "canceled":
		out.Status = GatewayStatusCancelled
	case "refunded":
		out.Status = GatewayStatusRefunded
	case "pending", "waiting_for_capture":
		out.Status = GatewayStatusPending
	default:
		out.Status = GatewayStatusFailed
	}

	return out
}

// minorUnitsToDecimal renders kopecks as the "123.45" string the API
// expects.
func minorUnitsToDecimal(amount int64) string {
	return strconv.FormatInt(amount/100, 10) + "." + fmt.Sprintf("%02d", amount%100)
}
