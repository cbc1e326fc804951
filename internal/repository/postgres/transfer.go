package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

type transferRepository struct {
	db *sql.DB
}

func NewTransferRepository(db *sql.DB) repository.TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) GetByRef(ctx context.Context, transferRef string) (*domain.Transfer, error) {
	t := &domain.Transfer{}
	query := `SELECT transfer_ref, amount_cents, destination_account_ref, source_payment_ref, rent_payment_id, status, reversed, amount_reversed_cents
	          FROM transfers WHERE transfer_ref = $1`
	err := r.db.QueryRowContext(ctx, query, transferRef).Scan(
		&t.TransferRef, &t.AmountCents, &t.DestinationAccountRef, &t.SourcePaymentRef,
		&t.RentPaymentID, &t.Status, &t.Reversed, &t.AmountReversedCents)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *transferRepository) Upsert(ctx context.Context, t *domain.Transfer) error {
	query := `INSERT INTO transfers (transfer_ref, amount_cents, destination_account_ref, source_payment_ref, rent_payment_id, status, reversed, amount_reversed_cents)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (transfer_ref) DO UPDATE SET
	            status=EXCLUDED.status, reversed=EXCLUDED.reversed,
	            amount_reversed_cents=EXCLUDED.amount_reversed_cents`
	_, err := r.db.ExecContext(ctx, query,
		t.TransferRef, t.AmountCents, t.DestinationAccountRef, t.SourcePaymentRef,
		t.RentPaymentID, t.Status, t.Reversed, t.AmountReversedCents)
	if err != nil {
		return fmt.Errorf("failed to upsert transfer %s: %w", t.TransferRef, err)
	}
	return nil
}
