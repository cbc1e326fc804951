package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b := &domain.Booking{}
	query := `SELECT b.id, b.listing_id, l.title, b.start_date, b.end_date, b.status,
	                 r.id, r.first_name, r.last_name, r.email, r.customer_ref,
	                 h.id, h.first_name, h.last_name, h.email, h.payout_account_ref, h.charges_enabled
	          FROM bookings b
	          JOIN listings l ON l.id = b.listing_id
	          JOIN users r ON r.id = b.renter_id
	          JOIN users h ON h.id = l.host_id
	          WHERE b.id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.ListingID, &b.ListingTitle, &b.StartDate, &b.EndDate, &b.Status,
		&b.Renter.ID, &b.Renter.FirstName, &b.Renter.LastName, &b.Renter.Email, &b.Renter.CustomerRef,
		&b.Host.ID, &b.Host.FirstName, &b.Host.LastName, &b.Host.Email, &b.Host.PayoutAccountRef, &b.Host.ChargesEnabled)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) FlagActiveForReview(ctx context.Context, hostID int64) (int64, error) {
	query := `UPDATE bookings SET status=$1, updated_on=$2
	          WHERE listing_id IN (SELECT id FROM listings WHERE host_id=$3)
	            AND status IN ($4, $5)`
	res, err := r.db.ExecContext(ctx, query,
		domain.BookingStatusUnderReview, time.Now(), hostID,
		domain.BookingStatusConfirmed, domain.BookingStatusPendingPayment)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *bookingRepository) SuspendHostListings(ctx context.Context, hostID int64) (int64, error) {
	query := `UPDATE listings SET published=false, updated_on=$1 WHERE host_id=$2 AND published=true`
	res, err := r.db.ExecContext(ctx, query, time.Now(), hostID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
