package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rentloop-backend/internal/domain"
)

type sendGridAlertService struct {
	apiKey    string
	fromEmail string
	opsEmail  string
}

// NewAlertService routes operator escalations to the configured ops inbox.
func NewAlertService(apiKey, fromEmail, opsEmail string) AlertService {
	return &sendGridAlertService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		opsEmail:  opsEmail,
	}
}

func (s *sendGridAlertService) send(subject, body string) error {
	from := mail.NewEmail("Rentloop Payments", s.fromEmail)
	recipient := mail.NewEmail("Operations", s.opsEmail)

	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *sendGridAlertService) PaymentRetriesExhausted(ctx context.Context, payment *domain.RentPayment, booking *domain.Booking, reason string) error {
	subject := fmt.Sprintf("[SEVERE] Rent payment %d exhausted retries", payment.ID)
	body := fmt.Sprintf("Rent payment %d for booking %d has failed its final automated retry.\n\nRenter: %s (%s)\nListing: %s\nAmount: $%.2f\nDue date: %s\nLast failure reason: %s\n\nManual intervention required.",
		payment.ID, booking.ID, booking.Renter.FullName(), booking.Renter.Email,
		booking.ListingTitle, float64(payment.TotalAmountCents)/100,
		payment.DueDate.Format("2006-01-02"), reason)
	return s.send(subject, body)
}

func (s *sendGridAlertService) TransferFailed(ctx context.Context, transfer *domain.Transfer) error {
	subject := fmt.Sprintf("[SEVERE] Payout transfer %s failed", transfer.TransferRef)
	body := fmt.Sprintf("Transfer %s to account %s failed.\n\nAmount: $%.2f\nReversed: %v\nAmount reversed: $%.2f\n\nCollected funds are stranded on the platform balance until resolved.",
		transfer.TransferRef, transfer.DestinationAccountRef,
		float64(transfer.AmountCents)/100, transfer.Reversed, float64(transfer.AmountReversedCents)/100)
	return s.send(subject, body)
}

func (s *sendGridAlertService) CapabilityDeactivated(ctx context.Context, accountRef, capability string) error {
	subject := fmt.Sprintf("Payout account %s lost capability %s", accountRef, capability)
	body := fmt.Sprintf("The %s capability on connected account %s is no longer active. Rent collection routed to this account will fail until it is restored.",
		capability, accountRef)
	return s.send(subject, body)
}

func (s *sendGridAlertService) AccountDeauthorized(ctx context.Context, accountRef string, hostID, flaggedBookings int64) error {
	subject := fmt.Sprintf("Payout account %s deauthorized", accountRef)
	body := fmt.Sprintf("Connected account %s (host %d) revoked the platform's access.\n\n%d active booking(s) moved to under_review.\n\nThe host must reconnect a payout account before collection can resume.",
		accountRef, hostID, flaggedBookings)
	return s.send(subject, body)
}
