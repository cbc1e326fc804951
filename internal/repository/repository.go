package repository

import (
	"context"
	"errors"
	"time"

	"rentloop-backend/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type PaymentRepository interface {
	CreateWithCharges(ctx context.Context, payment *domain.RentPayment) error
	GetByID(ctx context.Context, id int64) (*domain.RentPayment, error)

	// ListDue returns PENDING payments whose due date has arrived.
	ListDue(ctx context.Context, cutoff time.Time) ([]domain.RentPayment, error)

	// ListEligibleForRetry returns FAILED, non-cancelled payments with a
	// stored payment method, under the retry ceiling, not yet attempted
	// today. todayStart is midnight of the current day in the reference
	// timezone.
	ListEligibleForRetry(ctx context.Context, todayStart time.Time) ([]domain.RentPayment, error)

	// MarkSucceeded flips the payment to SUCCEEDED and writes the settlement
	// ledger record in the same database transaction. The update is
	// conditional on the payment not being cancelled, so a concurrent
	// cancellation wins.
	MarkSucceeded(ctx context.Context, id int64, externalRef string, settled *domain.SettledTransaction) error

	// MarkProcessing records an asynchronous in-flight collection together
	// with its pending ledger record.
	MarkProcessing(ctx context.Context, id int64, externalRef string, pending *domain.SettledTransaction) error

	// RecordFailure stores the failure reason and attempt time. When
	// countRetry is true the retry counter is incremented; the returned
	// value is the counter after the update.
	RecordFailure(ctx context.Context, id int64, reason string, attemptedAt time.Time, countRetry bool) (int32, error)
}

type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)

	// FlagActiveForReview moves a host's active bookings to under_review,
	// returning the number of bookings flagged.
	FlagActiveForReview(ctx context.Context, hostID int64) (int64, error)

	// SuspendHostListings unpublishes a host's listings, returning the
	// number suspended.
	SuspendHostListings(ctx context.Context, hostID int64) (int64, error)
}

type HostRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Party, error)
	GetByAccountRef(ctx context.Context, accountRef string) (*domain.Party, error)
}

type PayoutAccountRepository interface {
	GetByRef(ctx context.Context, accountRef string) (*domain.ConnectedPayoutAccount, error)
	Upsert(ctx context.Context, account *domain.ConnectedPayoutAccount) error

	// ClearByRef removes the account mirror and detaches it from the host,
	// returning the host ID the account belonged to.
	ClearByRef(ctx context.Context, accountRef string) (int64, error)
}

type TransferRepository interface {
	GetByRef(ctx context.Context, transferRef string) (*domain.Transfer, error)
	Upsert(ctx context.Context, transfer *domain.Transfer) error
}

type LedgerRepository interface {
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.SettledTransaction, error)
}
