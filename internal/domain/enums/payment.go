package enums

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Terminal reports whether the status can change no further.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentProvider string

const (
	PaymentProviderYooKassa PaymentProvider = "yookassa"
	PaymentProviderSberbank PaymentProvider = "sberbank"
)

func (p PaymentProvider) Valid() bool {
	switch p {
	case PaymentProviderYooKassa, PaymentProviderSberbank:
		return true
	}
	return false
}

type AccessStatus string

const (
	AccessStatusActive    AccessStatus = "active"
	AccessStatusExpired   AccessStatus = "expired"
	AccessStatusSuspended AccessStatus = "suspended"
	AccessStatusCancelled AccessStatus = "cancelled"
)
