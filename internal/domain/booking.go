package domain

import "time"

type BookingStatus string

const (
	BookingStatusReserved       BookingStatus = "reserved"
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusUnderReview    BookingStatus = "under_review"
)

// Party is the payment-relevant slice of a user record: the renter pays via
// CustomerRef, the host receives via PayoutAccountRef.
type Party struct {
	ID               int64   `json:"id"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email"`
	CustomerRef      string  `json:"customer_ref,omitempty"`
	PayoutAccountRef *string `json:"payout_account_ref,omitempty"`
	ChargesEnabled   bool    `json:"charges_enabled"`
}

// FullName returns a display name, falling back to the email address.
func (p Party) FullName() string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return p.Email
	}
	return name
}

type Booking struct {
	ID           int64         `json:"id"`
	ListingID    int64         `json:"listing_id"`
	ListingTitle string        `json:"listing_title"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	Status       BookingStatus `json:"status"`
	Renter       Party         `json:"renter"`
	Host         Party         `json:"host"`
}
