package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	paymentssvc "github.com/Pavlentius2007/school-photobusiness/internal/services/payments"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"
)

// webhookBodyLimit caps provider callback bodies. Real notifications
// are well under a kilobyte.
const webhookBodyLimit = 64 << 10

type PaymentHandler struct {
	service *paymentssvc.Service
}

func NewPaymentHandler(service *paymentssvc.Service) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req dto.InitiatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.Initiate(r.Context(), caller.UserID, paymentssvc.InitiateInput{
		CourseID: req.CourseID,
		Provider: enums.PaymentProvider(req.Provider),
		Email:    req.Email,
	})
	if err != nil {
		handlePaymentError(w, err)
		return
	}

	writeCreated(w, dto.InitiatePaymentResponse{
		PaymentID:       res.Payment.ID,
		Status:          string(res.Payment.Status),
		ConfirmationURL: res.ConfirmationURL,
	})
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	paymentID, ok := pathID(r, "paymentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "payment id must be a positive integer")
		return
	}

	payment, err := h.service.Get(r.Context(), paymentID)
	if err != nil {
		handlePaymentError(w, err)
		return
	}
	if payment.UserID != caller.UserID && roleOf(caller) != enums.RoleAdmin {
		writeForbidden(w, "FORBIDDEN", "operation not allowed")
		return
	}
	writeOK(w, payment)
}

func (h *PaymentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListMine(r.Context(), caller.UserID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		handlePaymentError(w, err)
		return
	}
	writeOK(w, payments)
}

func (h *PaymentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}

	payments, err := h.service.ListAll(r.Context(),
		enums.PaymentStatus(r.URL.Query().Get("status")),
		int64(queryInt(r, "course_id", 0)),
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		handlePaymentError(w, err)
		return
	}
	writeOK(w, payments)
}

func (h *PaymentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handlePaymentError(w, err)
		return
	}
	writeOK(w, stats)
}

// CheckStatus polls the provider for a pending payment on demand.
// Only the payer or an admin may trigger it, the response carries the
// full payment row.
func (h *PaymentHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	paymentID, ok := pathID(r, "paymentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "payment id must be a positive integer")
		return
	}

	payment, err := h.service.Get(r.Context(), paymentID)
	if err != nil {
		handlePaymentError(w, err)
		return
	}
	if payment.UserID != caller.UserID && roleOf(caller) != enums.RoleAdmin {
		writeForbidden(w, "FORBIDDEN", "operation not allowed")
		return
	}

	res, err := h.service.CheckStatus(r.Context(), paymentID)
	if err != nil {
		handlePaymentError(w, err)
		return
	}
	writeOK(w, res.Payment)
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}
	paymentID, ok := pathID(r, "paymentID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "payment id must be a positive integer")
		return
	}

	payment, err := h.service.Refund(r.Context(), paymentID)
	if err != nil {
		handlePaymentError(w, err)
		return
	}
	writeOK(w, payment)
}

// YooKassaWebhook receives payment.* notifications. The raw body is
// kept for the HMAC check before any JSON decoding happens.
func (h *PaymentHandler) YooKassaWebhook(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "cannot read request body")
		return
	}

	var hook dto.YooKassaWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid webhook body")
		return
	}

	_, err = h.service.HandleWebhook(r.Context(), paymentssvc.WebhookInput{
		Provider:   enums.PaymentProviderYooKassa,
		Signature:  r.Header.Get("X-YooKassa-Signature"),
		Body:       body,
		ExternalID: hook.Object.ID,
		OrderID:    hook.Object.Metadata.OrderID,
		Status:     yookassaWebhookStatus(hook.Object.Status),
		Reason:     hook.Object.CancellationDetails.Reason,
	})
	if err != nil {
		handleWebhookError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *PaymentHandler) SberbankWebhook(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "cannot read request body")
		return
	}

	var hook dto.SberbankWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid webhook body")
		return
	}

	_, err = h.service.HandleWebhook(r.Context(), paymentssvc.WebhookInput{
		Provider:   enums.PaymentProviderSberbank,
		Signature:  r.Header.Get("X-Sberbank-Signature"),
		Body:       body,
		ExternalID: hook.MdOrder,
		OrderID:    hook.OrderNumber,
		Status:     sberbankWebhookStatus(hook.Status),
	})
	if err != nil {
		handleWebhookError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func yookassaWebhookStatus(status string) paymentssvc.GatewayStatus {
	switch status {
	case "succeeded":
		return paymentssvc.GatewayStatusSucceeded
	case "canceled":
		return paymentssvc.GatewayStatusCancelled
	case "refunded":
		return paymentssvc.GatewayStatusRefunded
	case "pending", "waiting_for_capture":
		return paymentssvc.GatewayStatusPending
	default:
		return paymentssvc.GatewayStatusFailed
	}
}

// Order status codes per the acquiring docs: 0 registered,
// 1 preauthorized, 2 deposited, 3 reversed, 4 refunded, 6 declined.
func sberbankWebhookStatus(status int) paymentssvc.GatewayStatus {
	switch status {
	case 2:
		return paymentssvc.GatewayStatusSucceeded
	case 3:
		return paymentssvc.GatewayStatusCancelled
	case 4:
		return paymentssvc.GatewayStatusRefunded
	case 6:
		return paymentssvc.GatewayStatusFailed
	default:
		return paymentssvc.GatewayStatusPending
	}
}

func handleWebhookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, paymentssvc.ErrWebhookSignature):
		writeUnauthorized(w, "BAD_SIGNATURE", "webhook signature mismatch")
	case errors.Is(err, paymentssvc.ErrPaymentNotFound):
		writeNotFound(w, "PAYMENT_NOT_FOUND", "payment not found")
	case errors.Is(err, paymentssvc.ErrUnsupportedProvider):
		writeBadRequest(w, "UNSUPPORTED_PROVIDER", "provider is not configured")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func handlePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, paymentssvc.ErrPaymentNotFound):
		writeNotFound(w, "PAYMENT_NOT_FOUND", "payment not found")
	case errors.Is(err, paymentssvc.ErrCourseNotPayable):
		writeConflict(w, "COURSE_NOT_PAYABLE", "course is not available for purchase")
	case errors.Is(err, paymentssvc.ErrAlreadyOwned):
		writeConflict(w, "ALREADY_OWNED", "course access is already active")
	case errors.Is(err, paymentssvc.ErrAmountOutOfRange):
		writeBadRequest(w, "AMOUNT_OUT_OF_RANGE", "amount is outside the allowed range")
	case errors.Is(err, paymentssvc.ErrUnsupportedProvider):
		writeBadRequest(w, "UNSUPPORTED_PROVIDER", "provider is not configured")
	case errors.Is(err, paymentssvc.ErrGateway):
		httpErrorBadGateway(w)
	case errors.Is(err, paymentssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
