package dto

type InitiatePaymentRequest struct {
	CourseID int64  `json:"course_id"`
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
}

type InitiatePaymentResponse struct {
	PaymentID       int64  `json:"payment_id"`
	Status          string `json:"status"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// YooKassaWebhook is the notification body YooKassa posts on payment
// state changes. Only the fields the settlement path reads are mapped.
type YooKassaWebhook struct {
	Event  string `json:"event"`
	Object struct {
		ID                  string `json:"id"`
		Status              string `json:"status"`
		Paid                bool   `json:"paid"`
		ReceiptRegistration string `json:"receipt_registration"`
		Metadata            struct {
			OrderID string `json:"order_id"`
		} `json:"metadata"`
		CancellationDetails struct {
			Reason string `json:"reason"`
		} `json:"cancellation_details"`
	} `json:"object"`
}

// SberbankWebhook is the callback body Sberbank posts after a payment
// attempt. MdOrder is the gateway order id, OrderNumber ours.
type SberbankWebhook struct {
	MdOrder     string `json:"mdOrder"`
	OrderNumber string `json:"orderNumber"`
	Operation   string `json:"operation"`
	Status      int    `json:"status"`
}
