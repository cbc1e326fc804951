package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/payments"
)

// CollectionSummary reports one run of the primary collection pass.
type CollectionSummary struct {
	Due        int `json:"due"`
	Succeeded  int `json:"succeeded"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Errors     int `json:"errors"`
}

// RetrySummary reports one run of the retry pass.
type RetrySummary struct {
	Eligible   int `json:"eligible"`
	Succeeded  int `json:"succeeded"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Exhausted  int `json:"exhausted"`
	Errors     int `json:"errors"`
}

// ProcessDueRentPayments collects every pending payment whose due date has
// arrived. Cron entry point.
func (jr *JobRunner) ProcessDueRentPayments() {
	jr.runWithRecovery("ProcessDueRentPayments", func() {
		summary, err := jr.RunCollectionPass(context.Background())
		if err != nil {
			logger.Error("Collection pass failed", "error", err)
			return
		}
		logger.Info("Collection pass finished",
			"due", summary.Due,
			"succeeded", summary.Succeeded,
			"processing", summary.Processing,
			"failed", summary.Failed,
			"errors", summary.Errors)
	})
}

// RetryFailedRentPayments re-attempts failed payments under the retry
// ceiling, at most once per calendar day. Cron entry point.
func (jr *JobRunner) RetryFailedRentPayments() {
	jr.runWithRecovery("RetryFailedRentPayments", func() {
		summary, err := jr.RunRetryPass(context.Background())
		if err != nil {
			logger.Error("Retry pass failed", "error", err)
			return
		}
		logger.Info("Retry pass finished",
			"eligible", summary.Eligible,
			"succeeded", summary.Succeeded,
			"processing", summary.Processing,
			"failed", summary.Failed,
			"exhausted", summary.Exhausted,
			"errors", summary.Errors)
	})
}

// RunCollectionPass performs the primary collection attempt for all due
// payments. A failed primary attempt records the failure without consuming
// a retry, so the payment enters the retry pool with its full allowance.
func (jr *JobRunner) RunCollectionPass(ctx context.Context) (*CollectionSummary, error) {
	now := time.Now().In(jr.config.Billing.Location())

	due, err := jr.store.Payments.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due payments: %w", err)
	}

	summary := &CollectionSummary{Due: len(due)}
	for i := range due {
		outcome := jr.attemptOne(ctx, &due[i], false, now)
		switch outcome {
		case payments.OutcomeSucceeded:
			summary.Succeeded++
		case payments.OutcomeProcessing:
			summary.Processing++
		case payments.OutcomeFailed:
			summary.Failed++
		default:
			summary.Errors++
		}
	}
	return summary, nil
}

// RunRetryPass re-attempts eligible failed payments. Eligibility is decided
// against midnight of the current day in the reference timezone, so a
// payment is retried at most once per calendar day no matter how often the
// pass runs.
func (jr *JobRunner) RunRetryPass(ctx context.Context) (*RetrySummary, error) {
	loc := jr.config.Billing.Location()
	now := time.Now().In(loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	eligible, err := jr.store.Payments.ListEligibleForRetry(ctx, todayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to list retry-eligible payments: %w", err)
	}

	summary := &RetrySummary{Eligible: len(eligible)}
	for i := range eligible {
		payment := &eligible[i]
		outcome := jr.attemptOne(ctx, payment, true, now)
		switch outcome {
		case payments.OutcomeSucceeded:
			summary.Succeeded++
		case payments.OutcomeProcessing:
			summary.Processing++
		case payments.OutcomeFailed:
			summary.Failed++
			if payment.RetryCount >= domain.MaxRetryCount {
				summary.Exhausted++
			}
		default:
			summary.Errors++
		}
	}
	return summary, nil
}

// attemptOne runs a single collection attempt end to end and applies the
// resulting state transition. Panics and errors are contained here so one
// bad payment never aborts the batch; an empty outcome means the payment
// was left untouched for the next run.
func (jr *JobRunner) attemptOne(ctx context.Context, payment *domain.RentPayment, countRetry bool, now time.Time) (outcome payments.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Payment attempt panicked", "payment_id", payment.ID, "panic", r)
			jr.recordGenericFailure(ctx, payment, countRetry, now)
			outcome = ""
		}
	}()

	booking, err := jr.store.Bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		logger.Error("Failed to load booking for payment",
			"payment_id", payment.ID, "booking_id", payment.BookingID, "error", err)
		jr.recordGenericFailure(ctx, payment, countRetry, now)
		return ""
	}

	result, err := jr.executor.Attempt(ctx, payment, booking)
	if err != nil {
		// Infrastructure failure: book it as a generic failure so today's
		// attempt is consumed and the once-per-day guarantee holds. The
		// stable idempotency key makes the next attempt safe.
		logger.Error("Payment attempt errored", "payment_id", payment.ID, "error", err)
		jr.recordGenericFailure(ctx, payment, countRetry, now)
		return ""
	}

	switch result.Outcome {
	case payments.OutcomeSucceeded:
		jr.settleSucceeded(ctx, payment, booking, result, now)
	case payments.OutcomeProcessing:
		pending := ledgerRecord(payment, booking, result, now, domain.SettlementStatusPending)
		if err := jr.store.Payments.MarkProcessing(ctx, payment.ID, result.ExternalRef, pending); err != nil {
			logger.Error("Failed to mark payment processing", "payment_id", payment.ID, "error", err)
			return ""
		}
		logger.Info("Payment processing asynchronously",
			"payment_id", payment.ID, "external_ref", result.ExternalRef)
		if err := jr.services.Email.SendPaymentProcessing(ctx, booking, payment); err != nil {
			logger.Error("Failed to send processing notice", "payment_id", payment.ID, "error", err)
		}
	case payments.OutcomeFailed:
		jr.recordFailed(ctx, payment, booking, result, countRetry, now)
	}
	return result.Outcome
}

// ledgerRecord builds the settlement row for a collection attempt. The
// transaction number is minted here, so replays of the same attempt get
// distinct ledger identities while the idempotency key dedupes the charge.
func ledgerRecord(payment *domain.RentPayment, booking *domain.Booking, result *payments.AttemptResult, now time.Time, status domain.SettlementStatus) *domain.SettledTransaction {
	return &domain.SettledTransaction{
		TransactionNumber: fmt.Sprintf("TXN-%s", uuid.New().String()),
		RentPaymentID:     payment.ID,
		BookingID:         booking.ID,
		RenterID:          booking.Renter.ID,
		ExternalRef:       result.ExternalRef,
		AmountCents:       result.AmountCents,
		PlatformFeeCents:  result.PlatformFeeCents,
		NetAmountCents:    result.AmountCents - result.PlatformFeeCents,
		Currency:          "usd",
		Status:            status,
		PaymentMethod:     string(result.MethodKind),
		ProcessedAt:       now,
	}
}

func (jr *JobRunner) settleSucceeded(ctx context.Context, payment *domain.RentPayment, booking *domain.Booking, result *payments.AttemptResult, now time.Time) {
	settled := ledgerRecord(payment, booking, result, now, domain.SettlementStatusSettled)

	if err := jr.store.Payments.MarkSucceeded(ctx, payment.ID, result.ExternalRef, settled); err != nil {
		logger.Error("Failed to mark payment succeeded", "payment_id", payment.ID, "error", err)
		return
	}
	logger.Info("Payment collected",
		"payment_id", payment.ID,
		"amount_cents", result.AmountCents,
		"transaction_number", settled.TransactionNumber)

	if err := jr.services.Email.SendPaymentReceipt(ctx, booking, payment, settled.TransactionNumber); err != nil {
		logger.Error("Failed to send receipt", "payment_id", payment.ID, "error", err)
	}
	if err := jr.services.Email.SendHostPaymentReceived(ctx, booking, payment, settled.TransactionNumber); err != nil {
		logger.Error("Failed to send host receipt", "payment_id", payment.ID, "error", err)
	}
}

// recordGenericFailure books an attempt that never produced a processor
// decision. Stamping last_retry_attempt here keeps the once-per-day
// guarantee even when the failure was on our side.
func (jr *JobRunner) recordGenericFailure(ctx context.Context, payment *domain.RentPayment, countRetry bool, now time.Time) {
	newCount, err := jr.store.Payments.RecordFailure(ctx, payment.ID, payments.ReasonProcessorErrorUnexpected, now, countRetry)
	if err != nil {
		logger.Error("Failed to record payment failure", "payment_id", payment.ID, "error", err)
		return
	}
	payment.RetryCount = newCount
	payment.Status = domain.PaymentStatusFailed
}

func (jr *JobRunner) recordFailed(ctx context.Context, payment *domain.RentPayment, booking *domain.Booking, result *payments.AttemptResult, countRetry bool, now time.Time) {
	newCount, err := jr.store.Payments.RecordFailure(ctx, payment.ID, result.FailureReason, now, countRetry)
	if err != nil {
		logger.Error("Failed to record payment failure", "payment_id", payment.ID, "error", err)
		return
	}
	payment.RetryCount = newCount
	payment.Status = domain.PaymentStatusFailed

	logger.Warn("Payment attempt failed",
		"payment_id", payment.ID,
		"reason", result.FailureReason,
		"retry_count", newCount)

	if countRetry && newCount >= domain.MaxRetryCount {
		// Final automated attempt has been spent.
		if err := jr.services.Email.SendFinalPaymentNotice(ctx, booking, payment, result.FailureReason); err != nil {
			logger.Error("Failed to send final notice", "payment_id", payment.ID, "error", err)
		}
		if err := jr.services.Email.SendHostPaymentFailed(ctx, booking, payment); err != nil {
			logger.Error("Failed to send host notice", "payment_id", payment.ID, "error", err)
		}
		if err := jr.services.Alerts.PaymentRetriesExhausted(ctx, payment, booking, result.FailureReason); err != nil {
			logger.Error("Failed to send retries-exhausted alert", "payment_id", payment.ID, "error", err)
		}
		return
	}

	attemptsRemaining := int(domain.MaxRetryCount - newCount)
	if err := jr.services.Email.SendPaymentFailed(ctx, booking, payment, result.FailureReason, attemptsRemaining); err != nil {
		logger.Error("Failed to send failure notice", "payment_id", payment.ID, "error", err)
	}
}
