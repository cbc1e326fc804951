package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSucceeded  PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
)

// MaxRetryCount is the ceiling on automated re-attempts after the initial
// collection attempt. A payment at the ceiling requires manual intervention.
const MaxRetryCount = 2

type ChargeCategory string

const (
	ChargeCategoryBaseRent    ChargeCategory = "BASE_RENT"
	ChargeCategoryPetRent     ChargeCategory = "PET_RENT"
	ChargeCategoryPlatformFee ChargeCategory = "PLATFORM_FEE"
)

// Charge is one itemized line of a rent payment. Amounts are always cents.
type Charge struct {
	ID          int64             `json:"id"`
	PaymentID   int64             `json:"payment_id"`
	Category    ChargeCategory    `json:"category"`
	AmountCents int64             `json:"amount_cents"`
	IsApplied   bool              `json:"is_applied"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// RentPayment identifies one billing period for one booking.
type RentPayment struct {
	ID               int64         `json:"id"`
	BookingID        int64         `json:"booking_id"`
	DueDate          time.Time     `json:"due_date"`
	BaseAmountCents  int64         `json:"base_amount_cents"`  // rent + pet rent
	TotalAmountCents int64         `json:"total_amount_cents"` // base + fees
	Status           PaymentStatus `json:"status"`
	RetryCount       int32         `json:"retry_count"`
	LastRetryAttempt *time.Time    `json:"last_retry_attempt,omitempty"`
	FailureReason    *string       `json:"failure_reason,omitempty"`
	PaymentMethodRef *string       `json:"payment_method_ref,omitempty"`
	ExternalRef      *string       `json:"external_ref,omitempty"` // processor collection reference
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty"`
	CapturedAt       *time.Time    `json:"captured_at,omitempty"`
	Charges          []Charge      `json:"charges,omitempty"`
}

// PlatformFeeCents returns the applied platform-fee charge amount, or 0 when
// the payment carries no itemized charges (legacy rows).
func (p *RentPayment) PlatformFeeCents() int64 {
	for _, c := range p.Charges {
		if c.Category == ChargeCategoryPlatformFee && c.IsApplied {
			return c.AmountCents
		}
	}
	return 0
}
