package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

type payoutAccountRepository struct {
	db *sql.DB
}

func NewPayoutAccountRepository(db *sql.DB) repository.PayoutAccountRepository {
	return &payoutAccountRepository{db: db}
}

func (r *payoutAccountRepository) GetByRef(ctx context.Context, accountRef string) (*domain.ConnectedPayoutAccount, error) {
	a := &domain.ConnectedPayoutAccount{}
	var disabledReason sql.NullString
	query := `SELECT account_ref, host_id, charges_enabled, payouts_enabled, details_submitted, status,
	                 currently_due, past_due, eventually_due, disabled_reason, last_checked_at
	          FROM payout_accounts WHERE account_ref = $1`
	err := r.db.QueryRowContext(ctx, query, accountRef).Scan(
		&a.AccountRef, &a.HostID, &a.ChargesEnabled, &a.PayoutsEnabled, &a.DetailsSubmitted, &a.Status,
		pq.Array(&a.Requirements.CurrentlyDue), pq.Array(&a.Requirements.PastDue), pq.Array(&a.Requirements.EventuallyDue),
		&disabledReason, &a.LastCheckedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Requirements.DisabledReason = disabledReason.String
	return a, nil
}

func (r *payoutAccountRepository) Upsert(ctx context.Context, a *domain.ConnectedPayoutAccount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO payout_accounts (account_ref, host_id, charges_enabled, payouts_enabled, details_submitted, status, currently_due, past_due, eventually_due, disabled_reason, last_checked_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          ON CONFLICT (account_ref) DO UPDATE SET
	            host_id=EXCLUDED.host_id, charges_enabled=EXCLUDED.charges_enabled,
	            payouts_enabled=EXCLUDED.payouts_enabled, details_submitted=EXCLUDED.details_submitted,
	            status=EXCLUDED.status, currently_due=EXCLUDED.currently_due, past_due=EXCLUDED.past_due,
	            eventually_due=EXCLUDED.eventually_due, disabled_reason=EXCLUDED.disabled_reason,
	            last_checked_at=EXCLUDED.last_checked_at`
	_, err = tx.ExecContext(ctx, query,
		a.AccountRef, a.HostID, a.ChargesEnabled, a.PayoutsEnabled, a.DetailsSubmitted, a.Status,
		pq.Array(a.Requirements.CurrentlyDue), pq.Array(a.Requirements.PastDue), pq.Array(a.Requirements.EventuallyDue),
		nullIfEmpty(a.Requirements.DisabledReason), a.LastCheckedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert payout account %s: %w", a.AccountRef, err)
	}

	// Keep the host row's collection gate in sync with the account mirror.
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET charges_enabled=$1, updated_on=$2 WHERE id=$3`,
		a.ChargesEnabled, time.Now(), a.HostID)
	if err != nil {
		return fmt.Errorf("failed to sync host %d: %w", a.HostID, err)
	}

	return tx.Commit()
}

func (r *payoutAccountRepository) ClearByRef(ctx context.Context, accountRef string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var hostID int64
	err = tx.QueryRowContext(ctx,
		`DELETE FROM payout_accounts WHERE account_ref=$1 RETURNING host_id`, accountRef).Scan(&hostID)
	if err == sql.ErrNoRows {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to clear payout account %s: %w", accountRef, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET payout_account_ref=NULL, charges_enabled=false, updated_on=$1 WHERE id=$2`,
		time.Now(), hostID)
	if err != nil {
		return 0, fmt.Errorf("failed to detach host %d: %w", hostID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return hostID, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
