package domain

import "time"

type SettlementStatus string

const (
	SettlementStatusSettled SettlementStatus = "settled"
	SettlementStatusPending SettlementStatus = "pending"
)

// SettledTransaction is one row of the append-only collection log. Entries
// are written in the same database transaction as the payment status change
// they describe.
type SettledTransaction struct {
	ID                int64            `json:"id"`
	TransactionNumber string           `json:"transaction_number"`
	RentPaymentID     int64            `json:"rent_payment_id"`
	BookingID         int64            `json:"booking_id"`
	RenterID          int64            `json:"renter_id"`
	ExternalRef       string           `json:"external_ref"`
	AmountCents       int64            `json:"amount_cents"`
	PlatformFeeCents  int64            `json:"platform_fee_cents"`
	NetAmountCents    int64            `json:"net_amount_cents"`
	Currency          string           `json:"currency"`
	Status            SettlementStatus `json:"status"`
	PaymentMethod     string           `json:"payment_method"`
	ProcessedAt       time.Time        `json:"processed_at"`
}
