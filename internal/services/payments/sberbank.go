package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

// SberbankGateway wraps the Sberbank acquiring API, form-encoded
// requests against register.do / getOrderStatusExtended.do. Used for
// installment purchases, so the amount is bounded.
type SberbankGateway struct {
	username      string
	password      string
	webhookSecret string
	baseURL       string
	minAmount     int64
	maxAmount     int64
	httpClient    *http.Client
}

type SberbankConfig struct {
	Username      string
	Password      string
	WebhookSecret string
	BaseURL       string
	MinAmount     int64
	MaxAmount     int64
}

func NewSberbankGateway(cfg SberbankConfig, httpClient *http.Client) (*SberbankGateway, error) {
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, fmt.Errorf("sberbank credentials are required")
	}
	if httpClient == nil {
		return nil, fmt.Errorf("http client is nil")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://securepayments.sberbank.ru/payment/rest"
	}
	if cfg.MinAmount <= 0 {
		cfg.MinAmount = 300000
	}
	if cfg.MaxAmount <= 0 {
		cfg.MaxAmount = 30000000
	}

	return &SberbankGateway{
		username:      cfg.Username,
		password:      cfg.Password,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       baseURL,
		minAmount:     cfg.MinAmount,
		maxAmount:     cfg.MaxAmount,
		httpClient:    httpClient,
	}, nil
}

func (g *SberbankGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderSberbank
}

// AmountInRange reports whether the amount qualifies for installments.
func (g *SberbankGateway) AmountInRange(amount int64) bool {
	return amount >= g.minAmount && amount <= g.maxAmount
}

type sberbankRegisterResponse struct {
	OrderID      string `json:"orderId"`
	FormURL      string `json:"formUrl"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type sberbankStatusResponse struct {
	OrderStatus           int    `json:"orderStatus"`
	ErrorCode             string `json:"errorCode"`
	ErrorMessage          string `json:"errorMessage"`
	ActionCodeDescription string `json:"actionCodeDescription"`
}

func (g *SberbankGateway) CreatePayment(ctx context.Context, p CreateGatewayPaymentParams) (GatewayPayment, error) {
	if !g.AmountInRange(p.Amount) {
		return GatewayPayment{}, fmt.Errorf("amount %d is outside the installment range: %w", p.Amount, ErrAmountOutOfRange)
	}

	form := url.Values{}
	form.Set("userName", g.username)
	form.Set("password", g.password)
	form.Set("orderNumber", p.OrderID)
	form.Set("amount", strconv.FormatInt(p.Amount, 10))
	form.Set("currency", currencyNumericCode(p.Currency))
	form.Set("returnUrl", p.ReturnURL)
	form.Set("description", p.Description)

	var out sberbankRegisterResponse
	if err := g.postForm(ctx, "/register.do", form, &out); err != nil {
		return GatewayPayment{}, err
	}
	if out.ErrorCode != "" && out.ErrorCode != "0" {
		return GatewayPayment{}, fmt.Errorf("sberbank register rejected (%s %s): %w", out.ErrorCode, out.ErrorMessage, ErrGateway)
	}

	return GatewayPayment{
		ExternalID:      out.OrderID,
		Status:          GatewayStatusPending,
		ConfirmationURL: out.FormURL,
	}, nil
}

func (g *SberbankGateway) GetPayment(ctx context.Context, externalID string) (GatewayPayment, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return GatewayPayment{}, fmt.Errorf("external payment id is required")
	}

	form := url.Values{}
	form.Set("userName", g.username)
	form.Set("password", g.password)
	form.Set("orderId", externalID)

	var out sberbankStatusResponse
	if err := g.postForm(ctx, "/getOrderStatusExtended.do", form, &out); err != nil {
		return GatewayPayment{}, err
	}
	if out.ErrorCode != "" && out.ErrorCode != "0" {
		return GatewayPayment{}, fmt.Errorf("sberbank status rejected (%s %s): %w", out.ErrorCode, out.ErrorMessage, ErrGateway)
	}

	payment := GatewayPayment{
		ExternalID:   externalID,
		ErrorMessage: out.ActionCodeDescription,
	}

	// Order status codes per the acquiring docs: 0 registered,
	// 1 preauthorized, 2 deposited, 3 reversed, 4 refunded,
	// 6 declined.
	switch out.OrderStatus {
	case 2:
		payment.Status = GatewayStatusSucceeded
	case 3:
		payment.Status = GatewayStatusCancelled
	case 4:
		payment.Status = GatewayStatusRefunded
	case 6:
		payment.Status = GatewayStatusFailed
	default:
		payment.Status = GatewayStatusPending
	}

	return payment, nil
}

func (g *SberbankGateway) VerifyWebhook(signature string, body []byte) error {
	if g.webhookSecret == "" {
		return fmt.Errorf("sberbank webhook secret is not configured")
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrWebhookSignature
	}

	return nil
}

func (g *SberbankGateway) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sberbank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return gatewayErr(g.Provider(), "call "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return gatewayHTTPErr(g.Provider(), "call "+path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return gatewayErr(g.Provider(), "decode "+path, err)
	}

	return nil
}

// currencyNumericCode maps ISO 4217 letters to the numeric code the
// API wants. Only currencies we actually charge in are listed.
func currencyNumericCode(currency string) string {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "", "RUB":
		return "643"
	case "USD":
		return "840"
	case "EUR":
		return "978"
	default:
		return "643"
	}
}
