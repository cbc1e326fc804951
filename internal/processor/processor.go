package processor

import (
	"context"
	"fmt"
)

// Status is the processor's immediate disposition of a collection request.
type Status string

const (
	StatusSucceeded  Status = "succeeded"  // settled immediately (card)
	StatusProcessing Status = "processing" // asynchronous in-flight (bank debit)
	StatusFailed     Status = "failed"
)

// MethodKind distinguishes the two supported payment instruments.
type MethodKind string

const (
	MethodKindCard      MethodKind = "card"
	MethodKindBankDebit MethodKind = "bank_debit"
)

// PaymentMethod is the processor's view of a stored payment instrument.
type PaymentMethod struct {
	Ref   string
	Kind  MethodKind
	Last4 string
}

// CollectionRequest asks the processor to collect rent from a payer and
// route the net amount to the host's connected payout account. The
// IdempotencyKey guarantees a retried network call never double-charges.
type CollectionRequest struct {
	AmountCents           int64
	Currency              string
	PayerRef              string
	PaymentMethodRef      string
	MethodKind            MethodKind
	PlatformFeeCents      int64
	DestinationAccountRef string
	IdempotencyKey        string
	ReceiptEmail          string
	Metadata              map[string]string
}

// CollectionResult is the processor's immediate response to a collection.
type CollectionResult struct {
	Status      Status
	ExternalRef string
}

// Error is a declined or rejected request, carrying the processor's
// machine-readable code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("processor error: %s", e.Code)
	}
	return fmt.Sprintf("processor error: %s - %s", e.Code, e.Message)
}

// Client is the Payment Processor capability. Implementations must treat
// requests with the same IdempotencyKey as the same logical charge.
type Client interface {
	GetPaymentMethod(ctx context.Context, ref string) (*PaymentMethod, error)
	CreateCollection(ctx context.Context, req *CollectionRequest) (*CollectionResult, error)
}
