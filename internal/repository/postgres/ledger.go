package postgres

import (
	"context"
	"database/sql"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.SettledTransaction, error) {
	query := `SELECT id, transaction_number, rent_payment_id, booking_id, renter_id, external_ref, amount_cents, platform_fee_cents, net_amount_cents, currency, status, payment_method, processed_at
	          FROM settled_transactions WHERE booking_id = $1 ORDER BY processed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.SettledTransaction
	for rows.Next() {
		var t domain.SettledTransaction
		if err := rows.Scan(&t.ID, &t.TransactionNumber, &t.RentPaymentID, &t.BookingID, &t.RenterID,
			&t.ExternalRef, &t.AmountCents, &t.PlatformFeeCents, &t.NetAmountCents,
			&t.Currency, &t.Status, &t.PaymentMethod, &t.ProcessedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
