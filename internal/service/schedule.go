package service

import (
	"context"
	"fmt"

	"rentloop-backend/internal/billing"
	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

type paymentScheduleService struct {
	payments repository.PaymentRepository
	fees     billing.FeeSchedule
}

func NewPaymentScheduleService(payments repository.PaymentRepository, fees billing.FeeSchedule) PaymentScheduleService {
	return &paymentScheduleService{payments: payments, fees: fees}
}

// CreateScheduleForBooking splits the booking's occupancy into monthly
// billing periods and persists one PENDING payment per period. Each payment
// is due on the first day of its period.
func (s *paymentScheduleService) CreateScheduleForBooking(ctx context.Context, booking *domain.Booking, monthlyRentCents, monthlyPetRentCents int64, paymentMethodRef string) ([]domain.RentPayment, error) {
	periods, err := billing.GenerateSchedule(
		billing.LeasePeriod{Start: booking.StartDate, End: booking.EndDate},
		monthlyRentCents, monthlyPetRentCents, true, s.fees)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schedule for booking %d: %w", booking.ID, err)
	}

	var methodRef *string
	if paymentMethodRef != "" {
		methodRef = &paymentMethodRef
	}

	payments := make([]domain.RentPayment, 0, len(periods))
	for _, period := range periods {
		payment := domain.RentPayment{
			BookingID:        booking.ID,
			DueDate:          period.PeriodStart,
			BaseAmountCents:  period.BaseAmountCents,
			TotalAmountCents: period.TotalAmountCents,
			Status:           domain.PaymentStatusPending,
			PaymentMethodRef: methodRef,
			Charges:          period.Charges,
		}
		if err := s.payments.CreateWithCharges(ctx, &payment); err != nil {
			return nil, fmt.Errorf("failed to persist payment for booking %d due %s: %w",
				booking.ID, period.PeriodStart.Format("2006-01-02"), err)
		}
		payments = append(payments, payment)
	}

	logger.Info("Created rent payment schedule",
		"booking_id", booking.ID,
		"payments", len(payments))
	return payments, nil
}
