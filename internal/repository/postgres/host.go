package postgres

import (
	"context"
	"database/sql"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

type hostRepository struct {
	db *sql.DB
}

func NewHostRepository(db *sql.DB) repository.HostRepository {
	return &hostRepository{db: db}
}

const hostColumns = `id, first_name, last_name, email, payout_account_ref, charges_enabled`

func (r *hostRepository) GetByID(ctx context.Context, id int64) (*domain.Party, error) {
	query := `SELECT ` + hostColumns + ` FROM users WHERE id = $1`
	return r.scanHost(r.db.QueryRowContext(ctx, query, id))
}

func (r *hostRepository) GetByAccountRef(ctx context.Context, accountRef string) (*domain.Party, error) {
	query := `SELECT ` + hostColumns + ` FROM users WHERE payout_account_ref = $1`
	return r.scanHost(r.db.QueryRowContext(ctx, query, accountRef))
}

func (r *hostRepository) scanHost(row *sql.Row) (*domain.Party, error) {
	p := &domain.Party{}
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PayoutAccountRef, &p.ChargesEnabled)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
