package domain

import "time"

// AccountStatus is the derived health of a host's connected payout account.
// Precedence when deriving from requirements: disabled > restricted > pending > enabled.
type AccountStatus string

const (
	AccountStatusEnabled    AccountStatus = "enabled"
	AccountStatusPending    AccountStatus = "pending"
	AccountStatusRestricted AccountStatus = "restricted"
	AccountStatusDisabled   AccountStatus = "disabled"
)

// AccountRequirements is the snapshot of what the payment processor still
// needs from the host before (or to keep) the account fully operational.
type AccountRequirements struct {
	CurrentlyDue   []string `json:"currently_due"`
	PastDue        []string `json:"past_due"`
	EventuallyDue  []string `json:"eventually_due"`
	DisabledReason string   `json:"disabled_reason,omitempty"`
}

// ConnectedPayoutAccount mirrors the processor-side account that receives a
// host's rent funds. It is never created by this service, only reconciled
// from processor events.
type ConnectedPayoutAccount struct {
	AccountRef       string              `json:"account_ref"`
	HostID           int64               `json:"host_id"`
	ChargesEnabled   bool                `json:"charges_enabled"`
	PayoutsEnabled   bool                `json:"payouts_enabled"`
	DetailsSubmitted bool                `json:"details_submitted"`
	Status           AccountStatus       `json:"status"`
	Requirements     AccountRequirements `json:"requirements"`
	LastCheckedAt    time.Time           `json:"last_checked_at"`
}

type TransferStatus string

const (
	TransferStatusCreated TransferStatus = "created"
	TransferStatusPaid    TransferStatus = "paid"
	TransferStatusFailed  TransferStatus = "failed"
)

// Transfer is one movement of already-collected funds from the platform
// balance to a host's payout account, mirrored from processor events.
type Transfer struct {
	TransferRef           string         `json:"transfer_ref"`
	AmountCents           int64          `json:"amount_cents"`
	DestinationAccountRef string         `json:"destination_account_ref"`
	SourcePaymentRef      *string        `json:"source_payment_ref,omitempty"` // collection reference that funded it
	RentPaymentID         *int64         `json:"rent_payment_id,omitempty"`
	Status                TransferStatus `json:"status"`
	Reversed              bool           `json:"reversed"`
	AmountReversedCents   int64          `json:"amount_reversed_cents"`
}
