package model

import (
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
)

type Payment struct {
	ID                int64                 `json:"id"`
	UserID            int64                 `json:"user_id"`
	CourseID          int64                 `json:"course_id"`
	Amount            int64                 `json:"amount"` // minor units
	Currency          string                `json:"currency"`
	Status            enums.PaymentStatus   `json:"status"`
	Provider          enums.PaymentProvider `json:"provider"`
	ExternalPaymentID string                `json:"external_payment_id,omitempty"`
	OrderID           string                `json:"order_id"`
	Description       string                `json:"description,omitempty"`
	ReceiptURL        string                `json:"receipt_url,omitempty"`
	ErrorMessage      string                `json:"error_message,omitempty"`
	ProcessedAt       *time.Time            `json:"processed_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

type CourseAccess struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"user_id"`
	CourseID       int64              `json:"course_id"`
	PaymentID      *int64             `json:"payment_id,omitempty"`
	GrantedBy      *int64             `json:"granted_by,omitempty"` // set for manual grants
	Status         enums.AccessStatus `json:"status"`
	GrantedAt      time.Time          `json:"granted_at"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty"` // nil means perpetual
	RevokedAt      *time.Time         `json:"revoked_at,omitempty"`
	LastAccessedAt *time.Time         `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Usable reports whether the row grants the course at the given
// moment, before any lazy status repair is persisted.
func (a CourseAccess) Usable(now time.Time) bool {
	if a.Status != enums.AccessStatusActive {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
