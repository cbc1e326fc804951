package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"

	"rentloop-backend/internal/domain"
)

// ErrUnhandledEvent marks event types this service deliberately ignores.
// Webhook delivery still gets acknowledged so the processor stops retrying.
var ErrUnhandledEvent = errors.New("unhandled event type")

// Event is one parsed settlement event from the payment network.
type Event interface {
	EventID() string
}

type baseEvent struct {
	ID string
}

func (e baseEvent) EventID() string { return e.ID }

// AccountUpdated reports new state for a host's connected payout account.
type AccountUpdated struct {
	baseEvent
	AccountRef       string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	Requirements     domain.AccountRequirements
}

// AccountDeauthorized reports that the account revoked the platform's access.
type AccountDeauthorized struct {
	baseEvent
	AccountRef string
}

// CapabilityUpdated reports a capability state change on a connected account.
type CapabilityUpdated struct {
	baseEvent
	AccountRef string
	Capability string
	Status     string
}

type TransferEventKind string

const (
	TransferEventCreated TransferEventKind = "created"
	TransferEventPaid    TransferEventKind = "paid"
	TransferEventFailed  TransferEventKind = "failed"
)

// TransferEvent reports lifecycle progress of a payout transfer.
type TransferEvent struct {
	baseEvent
	Kind                TransferEventKind
	TransferRef         string
	AmountCents         int64
	DestinationRef      string
	SourcePaymentRef    string
	RentPaymentID       int64
	Reversed            bool
	AmountReversedCents int64
}

type envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type accountObject struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
	Requirements     struct {
		CurrentlyDue   []string `json:"currently_due"`
		PastDue        []string `json:"past_due"`
		EventuallyDue  []string `json:"eventually_due"`
		DisabledReason string   `json:"disabled_reason"`
	} `json:"requirements"`
}

type capabilityObject struct {
	ID      string `json:"id"`
	Account string `json:"account"`
	Status  string `json:"status"`
}

type transferObject struct {
	ID                string            `json:"id"`
	Amount            int64             `json:"amount"`
	Destination       string            `json:"destination"`
	SourceTransaction string            `json:"source_transaction"`
	Reversed          bool              `json:"reversed"`
	AmountReversed    int64             `json:"amount_reversed"`
	Metadata          map[string]string `json:"metadata"`
}

// Parse decodes a webhook payload into a typed event. Unknown event types
// return ErrUnhandledEvent.
func Parse(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event envelope: %w", err)
	}

	switch env.Type {
	case "account.updated":
		var obj accountObject
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("failed to parse account object: %w", err)
		}
		return &AccountUpdated{
			baseEvent:        baseEvent{ID: env.ID},
			AccountRef:       obj.ID,
			ChargesEnabled:   obj.ChargesEnabled,
			PayoutsEnabled:   obj.PayoutsEnabled,
			DetailsSubmitted: obj.DetailsSubmitted,
			Requirements: domain.AccountRequirements{
				CurrentlyDue:   obj.Requirements.CurrentlyDue,
				PastDue:        obj.Requirements.PastDue,
				EventuallyDue:  obj.Requirements.EventuallyDue,
				DisabledReason: obj.Requirements.DisabledReason,
			},
		}, nil

	case "account.application.deauthorized":
		var obj accountObject
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("failed to parse account object: %w", err)
		}
		return &AccountDeauthorized{baseEvent: baseEvent{ID: env.ID}, AccountRef: obj.ID}, nil

	case "capability.updated":
		var obj capabilityObject
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("failed to parse capability object: %w", err)
		}
		return &CapabilityUpdated{
			baseEvent:  baseEvent{ID: env.ID},
			AccountRef: obj.Account,
			Capability: obj.ID,
			Status:     obj.Status,
		}, nil

	case "transfer.created", "transfer.paid", "transfer.failed":
		var obj transferObject
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, fmt.Errorf("failed to parse transfer object: %w", err)
		}
		ev := &TransferEvent{
			baseEvent:           baseEvent{ID: env.ID},
			Kind:                TransferEventKind(env.Type[len("transfer."):]),
			TransferRef:         obj.ID,
			AmountCents:         obj.Amount,
			DestinationRef:      obj.Destination,
			SourcePaymentRef:    obj.SourceTransaction,
			Reversed:            obj.Reversed,
			AmountReversedCents: obj.AmountReversed,
		}
		if raw, ok := obj.Metadata["rent_payment_id"]; ok {
			fmt.Sscanf(raw, "%d", &ev.RentPaymentID)
		}
		return ev, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEvent, env.Type)
	}
}
