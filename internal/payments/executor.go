package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentloop-backend/internal/billing"
	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/processor"
)

// Outcome classifies one collection attempt.
type Outcome string

const (
	OutcomeSucceeded  Outcome = "SUCCEEDED"
	OutcomeProcessing Outcome = "PROCESSING"
	OutcomeFailed     Outcome = "FAILED"
)

// Normalized failure reasons. Anything the processor reports outside this
// set is carried through as-is.
const (
	ReasonInsufficientFunds        = "insufficient_funds"
	ReasonCardDeclined             = "card_declined"
	ReasonMethodUnavailable        = "payment_method_unavailable"
	ReasonDestinationUnavailable   = "destination_account_unavailable"
	ReasonProcessorErrorUnexpected = "processor_error"
)

// AttemptResult is the classified disposition of a single collection attempt.
// FailureReason is set only when Outcome is FAILED.
type AttemptResult struct {
	Outcome          Outcome
	ExternalRef      string
	AmountCents      int64
	PlatformFeeCents int64
	FailureReason    string
	MethodKind       processor.MethodKind
}

// Executor performs exactly one idempotent collection attempt per call.
// Business declines come back as a FAILED result; only infrastructure
// problems (network, timeouts) surface as errors.
type Executor struct {
	client  processor.Client
	fees    billing.FeeSchedule
	timeout time.Duration
}

func NewExecutor(client processor.Client, fees billing.FeeSchedule, timeout time.Duration) *Executor {
	return &Executor{client: client, fees: fees, timeout: timeout}
}

// IdempotencyKey is stable across re-invocations for the same logical
// attempt: it changes only when the retry counter advances, so a crashed
// run that re-attempts the same payment cannot double-charge.
func IdempotencyKey(p *domain.RentPayment) string {
	return fmt.Sprintf("rent-payment-%d-%d-%d", p.ID, p.RetryCount, p.DueDate.Unix())
}

// Attempt collects one rent payment from the booking's renter, routing the
// net amount to the host's payout account.
func (e *Executor) Attempt(ctx context.Context, payment *domain.RentPayment, booking *domain.Booking) (*AttemptResult, error) {
	if payment.PaymentMethodRef == nil || *payment.PaymentMethodRef == "" {
		return &AttemptResult{Outcome: OutcomeFailed, FailureReason: ReasonMethodUnavailable}, nil
	}
	if booking.Host.PayoutAccountRef == nil || *booking.Host.PayoutAccountRef == "" || !booking.Host.ChargesEnabled {
		return &AttemptResult{Outcome: OutcomeFailed, FailureReason: ReasonDestinationUnavailable}, nil
	}
	if booking.Renter.CustomerRef == "" {
		return &AttemptResult{Outcome: OutcomeFailed, FailureReason: ReasonMethodUnavailable}, nil
	}

	amount, fee := e.amounts(payment, booking)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	method, err := e.client.GetPaymentMethod(ctx, *payment.PaymentMethodRef)
	if err != nil {
		var procErr *processor.Error
		if errors.As(err, &procErr) {
			return &AttemptResult{Outcome: OutcomeFailed, FailureReason: ReasonMethodUnavailable, AmountCents: amount, PlatformFeeCents: fee}, nil
		}
		return nil, fmt.Errorf("payment method lookup for payment %d: %w", payment.ID, err)
	}

	req := &processor.CollectionRequest{
		AmountCents:           amount,
		Currency:              "usd",
		PayerRef:              booking.Renter.CustomerRef,
		PaymentMethodRef:      method.Ref,
		MethodKind:            method.Kind,
		PlatformFeeCents:      fee,
		DestinationAccountRef: *booking.Host.PayoutAccountRef,
		IdempotencyKey:        IdempotencyKey(payment),
		ReceiptEmail:          booking.Renter.Email,
		Metadata: map[string]string{
			"rent_payment_id": fmt.Sprintf("%d", payment.ID),
			"booking_id":      fmt.Sprintf("%d", booking.ID),
			"due_date":        payment.DueDate.Format("2006-01-02"),
		},
	}

	logger.ExternalServiceCall("processor", "CreateCollection", "payment_id", payment.ID, "amount_cents", amount)
	result, err := e.client.CreateCollection(ctx, req)
	if err != nil {
		var procErr *processor.Error
		if errors.As(err, &procErr) {
			return &AttemptResult{
				Outcome:          OutcomeFailed,
				FailureReason:    NormalizeFailureReason(procErr.Code),
				AmountCents:      amount,
				PlatformFeeCents: fee,
				MethodKind:       method.Kind,
			}, nil
		}
		return nil, fmt.Errorf("collection for payment %d: %w", payment.ID, err)
	}

	res := &AttemptResult{
		ExternalRef:      result.ExternalRef,
		AmountCents:      amount,
		PlatformFeeCents: fee,
		MethodKind:       method.Kind,
	}
	switch result.Status {
	case processor.StatusSucceeded:
		res.Outcome = OutcomeSucceeded
	case processor.StatusProcessing:
		res.Outcome = OutcomeProcessing
	default:
		res.Outcome = OutcomeFailed
		res.FailureReason = ReasonProcessorErrorUnexpected
	}
	return res, nil
}

// amounts returns the total to collect and the platform fee portion. Rows
// created before itemized charges existed carry no charge breakdown, so the
// fee is recomputed from the base amount and lease duration; both paths
// yield the same cents for the same inputs.
func (e *Executor) amounts(payment *domain.RentPayment, booking *domain.Booking) (int64, int64) {
	if len(payment.Charges) > 0 {
		return payment.TotalAmountCents, payment.PlatformFeeCents()
	}
	months := billing.LeaseDurationMonths(booking.StartDate, booking.EndDate)
	fee := e.fees.FeeCents(payment.BaseAmountCents, months)
	return payment.BaseAmountCents + fee, fee
}

// NormalizeFailureReason folds processor decline codes into the small set
// the retry orchestrator and renter notifications reason about.
func NormalizeFailureReason(code string) string {
	switch code {
	case "insufficient_funds", "debit_insufficient_funds":
		return ReasonInsufficientFunds
	case "card_declined", "generic_decline", "do_not_honor", "expired_card", "incorrect_cvc":
		return ReasonCardDeclined
	case "payment_method_unavailable", "resource_missing", "payment_method_detached":
		return ReasonMethodUnavailable
	case "":
		return ReasonProcessorErrorUnexpected
	default:
		return code
	}
}
