package service

import (
	"context"

	"rentloop-backend/internal/domain"
)

// EmailService covers renter- and host-facing notifications.
type EmailService interface {
	SendPaymentReceipt(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment, transactionNumber string) error
	SendPaymentProcessing(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment) error
	SendPaymentFailed(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment, reason string, attemptsRemaining int) error
	SendFinalPaymentNotice(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment, reason string) error
	SendHostPaymentReceived(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment, transactionNumber string) error
	SendHostPaymentFailed(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment) error
	SendHostActionRequired(ctx context.Context, host *domain.Party, requirements domain.AccountRequirements) error
	SendHostChargesDisabled(ctx context.Context, host *domain.Party) error
}

// AlertService escalates conditions that need an operator, on a channel
// separate from customer email.
type AlertService interface {
	PaymentRetriesExhausted(ctx context.Context, payment *domain.RentPayment, booking *domain.Booking, reason string) error
	TransferFailed(ctx context.Context, transfer *domain.Transfer) error
	CapabilityDeactivated(ctx context.Context, accountRef, capability string) error
	AccountDeauthorized(ctx context.Context, accountRef string, hostID, flaggedBookings int64) error
}

// PaymentScheduleService materializes a booking's billing periods as
// pending rent payments.
type PaymentScheduleService interface {
	CreateScheduleForBooking(ctx context.Context, booking *domain.Booking, monthlyRentCents, monthlyPetRentCents int64, paymentMethodRef string) ([]domain.RentPayment, error)
}
