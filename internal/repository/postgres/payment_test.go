package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

var paymentCols = []string{"id", "booking_id", "due_date", "base_amount_cents", "total_amount_cents", "status", "retry_count", "last_retry_attempt", "failure_reason", "payment_method_ref", "external_ref", "cancelled_at", "captured_at"}

func TestPaymentRepository_ListEligibleForRetry(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		todayStart := time.Date(2023, time.June, 10, 0, 0, 0, 0, time.UTC)
		reason := "insufficient_funds"
		methodRef := "pm_123"

		rows := sqlmock.NewRows(paymentCols).
			AddRow(7, 3, time.Now(), 100000, 103000, "FAILED", 1, nil, reason, methodRef, nil, nil, nil)

		mock.ExpectQuery("SELECT (.+) FROM rent_payments").
			WithArgs(domain.PaymentStatusFailed, domain.MaxRetryCount, todayStart).
			WillReturnRows(rows)
		mock.ExpectQuery("SELECT (.+) FROM payment_charges").
			WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id", "category", "amount_cents", "is_applied", "metadata"}).
				AddRow(1, 7, "BASE_RENT", 100000, true, nil).
				AddRow(2, 7, "PLATFORM_FEE", 3000, true, []byte(`{"rate_type":"short_term"}`)))

		payments, err := repo.ListEligibleForRetry(ctx, todayStart)
		assert.NoError(t, err)
		assert.Len(t, payments, 1)
		assert.Equal(t, int64(7), payments[0].ID)
		assert.Equal(t, int32(1), payments[0].RetryCount)
		assert.Len(t, payments[0].Charges, 2)
		assert.Equal(t, int64(3000), payments[0].PlatformFeeCents())
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM rent_payments").
			WillReturnRows(sqlmock.NewRows(paymentCols))

		payments, err := repo.ListEligibleForRetry(ctx, time.Now())
		assert.NoError(t, err)
		assert.Empty(t, payments)
	})
}

func TestPaymentRepository_MarkSucceeded(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	settled := &domain.SettledTransaction{
		TransactionNumber: "TXN-abc",
		RentPaymentID:     7,
		BookingID:         3,
		RenterID:          11,
		ExternalRef:       "col_1",
		AmountCents:       103000,
		PlatformFeeCents:  3000,
		NetAmountCents:    100000,
		Currency:          "usd",
		Status:            domain.SettlementStatusSettled,
		PaymentMethod:     "card",
		ProcessedAt:       time.Now(),
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE rent_payments SET").
			WithArgs(domain.PaymentStatusSucceeded, "col_1", settled.ProcessedAt, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO settled_transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := repo.MarkSucceeded(ctx, 7, "col_1", settled)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CancelledPaymentLeavesLedgerUntouched", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE rent_payments SET").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.MarkSucceeded(ctx, 7, "col_1", settled)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepository_RecordFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewPaymentRepository(db)
	ctx := context.Background()
	attemptedAt := time.Now()

	t.Run("RetryPassIncrementsCounter", func(t *testing.T) {
		mock.ExpectQuery("UPDATE rent_payments SET").
			WithArgs(domain.PaymentStatusFailed, "card_declined", attemptedAt, 1, int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(2))

		count, err := repo.RecordFailure(ctx, 7, "card_declined", attemptedAt, true)
		assert.NoError(t, err)
		assert.Equal(t, int32(2), count)
	})

	t.Run("InitialPassDoesNotIncrement", func(t *testing.T) {
		mock.ExpectQuery("UPDATE rent_payments SET").
			WithArgs(domain.PaymentStatusFailed, "card_declined", attemptedAt, 0, int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(0))

		count, err := repo.RecordFailure(ctx, 7, "card_declined", attemptedAt, false)
		assert.NoError(t, err)
		assert.Equal(t, int32(0), count)
	})
}

func TestPaymentRepository_CreateWithCharges(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	payment := &domain.RentPayment{
		BookingID:        3,
		DueDate:          time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC),
		BaseAmountCents:  100000,
		TotalAmountCents: 103000,
		Status:           domain.PaymentStatusPending,
		Charges: []domain.Charge{
			{Category: domain.ChargeCategoryBaseRent, AmountCents: 100000, IsApplied: true},
			{Category: domain.ChargeCategoryPlatformFee, AmountCents: 3000, IsApplied: true, Metadata: map[string]string{"rate_type": "short_term"}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO rent_payments").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectQuery("INSERT INTO payment_charges").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO payment_charges").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	err = repo.CreateWithCharges(ctx, payment)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), payment.ID)
	assert.Equal(t, int64(42), payment.Charges[0].PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
