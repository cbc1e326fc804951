package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, booking_id, due_date, base_amount_cents, total_amount_cents, status, retry_count, last_retry_attempt, failure_reason, payment_method_ref, external_ref, cancelled_at, captured_at`

func (r *paymentRepository) CreateWithCharges(ctx context.Context, p *domain.RentPayment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO rent_payments (booking_id, due_date, base_amount_cents, total_amount_cents, status, retry_count, payment_method_ref, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8) RETURNING id`
	now := time.Now()
	err = tx.QueryRowContext(ctx, query, p.BookingID, p.DueDate, p.BaseAmountCents, p.TotalAmountCents, p.Status, p.PaymentMethodRef, now, now).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert rent payment: %w", err)
	}

	for i := range p.Charges {
		c := &p.Charges[i]
		var meta []byte
		if c.Metadata != nil {
			meta, err = json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode charge metadata: %w", err)
			}
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO payment_charges (payment_id, category, amount_cents, is_applied, metadata) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			p.ID, c.Category, c.AmountCents, c.IsApplied, meta).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("failed to insert charge: %w", err)
		}
		c.PaymentID = p.ID
	}

	return tx.Commit()
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*domain.RentPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM rent_payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	chargesByPayment, err := r.loadCharges(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Charges = chargesByPayment[p.ID]
	return p, nil
}

func (r *paymentRepository) ListDue(ctx context.Context, cutoff time.Time) ([]domain.RentPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM rent_payments
	          WHERE status = $1 AND cancelled_at IS NULL AND due_date <= $2
	          ORDER BY due_date, id`
	return r.listPayments(ctx, query, domain.PaymentStatusPending, cutoff)
}

func (r *paymentRepository) ListEligibleForRetry(ctx context.Context, todayStart time.Time) ([]domain.RentPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM rent_payments
	          WHERE status = $1
	            AND cancelled_at IS NULL
	            AND payment_method_ref IS NOT NULL
	            AND retry_count < $2
	            AND (last_retry_attempt IS NULL OR last_retry_attempt < $3)
	          ORDER BY due_date, id`
	return r.listPayments(ctx, query, domain.PaymentStatusFailed, domain.MaxRetryCount, todayStart)
}

func (r *paymentRepository) listPayments(ctx context.Context, query string, args ...interface{}) ([]domain.RentPayment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.RentPayment
	var ids []int64
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return payments, nil
	}

	chargesByPayment, err := r.loadCharges(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		payments[i].Charges = chargesByPayment[payments[i].ID]
	}
	return payments, nil
}

func (r *paymentRepository) loadCharges(ctx context.Context, paymentIDs []int64) (map[int64][]domain.Charge, error) {
	query := `SELECT id, payment_id, category, amount_cents, is_applied, metadata
	          FROM payment_charges WHERE payment_id = ANY($1) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(paymentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byPayment := make(map[int64][]domain.Charge)
	for rows.Next() {
		var c domain.Charge
		var meta []byte
		if err := rows.Scan(&c.ID, &c.PaymentID, &c.Category, &c.AmountCents, &c.IsApplied, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode charge metadata: %w", err)
			}
		}
		byPayment[c.PaymentID] = append(byPayment[c.PaymentID], c)
	}
	return byPayment, rows.Err()
}

func (r *paymentRepository) MarkSucceeded(ctx context.Context, id int64, externalRef string, settled *domain.SettledTransaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Conditional on the payment still being collectible: a concurrent
	// cancellation or an already-settled row leaves zero rows updated.
	res, err := tx.ExecContext(ctx,
		`UPDATE rent_payments SET status=$1, external_ref=$2, captured_at=$3, failure_reason=NULL, updated_on=$3
		 WHERE id=$4 AND cancelled_at IS NULL AND status <> $1`,
		domain.PaymentStatusSucceeded, externalRef, settled.ProcessedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update payment %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settled_transactions (transaction_number, rent_payment_id, booking_id, renter_id, external_ref, amount_cents, platform_fee_cents, net_amount_cents, currency, status, payment_method, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		settled.TransactionNumber, settled.RentPaymentID, settled.BookingID, settled.RenterID,
		settled.ExternalRef, settled.AmountCents, settled.PlatformFeeCents, settled.NetAmountCents,
		settled.Currency, settled.Status, settled.PaymentMethod, settled.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to record settlement: %w", err)
	}

	return tx.Commit()
}

func (r *paymentRepository) MarkProcessing(ctx context.Context, id int64, externalRef string, pending *domain.SettledTransaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE rent_payments SET status=$1, external_ref=$2, last_retry_attempt=$3, updated_on=$3
		 WHERE id=$4 AND cancelled_at IS NULL`,
		domain.PaymentStatusProcessing, externalRef, pending.ProcessedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update payment %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settled_transactions (transaction_number, rent_payment_id, booking_id, renter_id, external_ref, amount_cents, platform_fee_cents, net_amount_cents, currency, status, payment_method, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		pending.TransactionNumber, pending.RentPaymentID, pending.BookingID, pending.RenterID,
		pending.ExternalRef, pending.AmountCents, pending.PlatformFeeCents, pending.NetAmountCents,
		pending.Currency, pending.Status, pending.PaymentMethod, pending.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to record pending settlement: %w", err)
	}

	return tx.Commit()
}

func (r *paymentRepository) RecordFailure(ctx context.Context, id int64, reason string, attemptedAt time.Time, countRetry bool) (int32, error) {
	increment := 0
	if countRetry {
		increment = 1
	}
	var retryCount int32
	err := r.db.QueryRowContext(ctx,
		`UPDATE rent_payments SET status=$1, failure_reason=$2, last_retry_attempt=$3, retry_count=retry_count+$4, updated_on=$3
		 WHERE id=$5 AND cancelled_at IS NULL RETURNING retry_count`,
		domain.PaymentStatusFailed, reason, attemptedAt, increment, id).Scan(&retryCount)
	if err == sql.ErrNoRows {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to record failure for payment %d: %w", id, err)
	}
	return retryCount, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*domain.RentPayment, error) {
	p := &domain.RentPayment{}
	err := row.Scan(&p.ID, &p.BookingID, &p.DueDate, &p.BaseAmountCents, &p.TotalAmountCents,
		&p.Status, &p.RetryCount, &p.LastRetryAttempt, &p.FailureReason, &p.PaymentMethodRef,
		&p.ExternalRef, &p.CancelledAt, &p.CapturedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
