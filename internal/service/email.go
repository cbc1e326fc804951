package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rentloop-backend/internal/domain"
)

type sendGridEmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &sendGridEmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailService) send(to, toName, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)

	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *sendGridEmailService) SendPaymentReceipt(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment, transactionNumber string) error {
	subject := fmt.Sprintf("Rent payment received for %s", booking.ListingTitle)
	body := fmt.Sprintf("Hello %s,\n\nWe received your rent payment of %s for %s (due %s).\n\nTransaction number: %s\n\nBest regards,\nThe Rentloop Team",
		booking.Renter.FullName(), dollars(payment.TotalAmountCents), booking.ListingTitle,
		payment.DueDate.Format("January 2, 2006"), transactionNumber)
	return s.send(booking.Renter.Email, booking.Renter.FullName(), subject, body)
}

func (s *sendGridEmailService) SendPaymentProcessing(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment) error {
	subject := fmt.Sprintf("Rent payment processing for %s", booking.ListingTitle)
	body := fmt.Sprintf("Hello %s,\n\nWe have started collecting your rent payment of %s for %s (due %s).\n\nBank debits can take a few business days to settle. We will confirm once the payment completes.\n\nBest regards,\nThe Rentloop Team",
		booking.Renter.FullName(), dollars(payment.TotalAmountCents), booking.ListingTitle,
		payment.DueDate.Format("January 2, 2006"))
	return s.send(booking.Renter.Email, booking.Renter.FullName(), subject, body)
}

func (s *sendGridEmailService) SendPaymentFailed(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment, reason string, attemptsRemaining int) error {
	subject := fmt.Sprintf("Rent payment failed for %s", booking.ListingTitle)
	body := fmt.Sprintf("Hello %s,\n\nWe could not collect your rent payment of %s for %s (due %s).\n\nReason: %s\n\n",
		booking.Renter.FullName(), dollars(payment.TotalAmountCents), booking.ListingTitle,
		payment.DueDate.Format("January 2, 2006"), humanReason(reason))
	if attemptsRemaining > 0 {
		body += fmt.Sprintf("We will automatically try again. %d attempt(s) remaining. Please make sure your payment method has sufficient funds.\n\n", attemptsRemaining)
	}
	body += "Best regards,\nThe Rentloop Team"
	return s.send(booking.Renter.Email, booking.Renter.FullName(), subject, body)
}

func (s *sendGridEmailService) SendFinalPaymentNotice(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment, reason string) error {
	subject := fmt.Sprintf("Action required: rent payment for %s", booking.ListingTitle)
	body := fmt.Sprintf("Hello %s,\n\nWe were unable to collect your rent payment of %s for %s (due %s) after multiple attempts.\n\nReason: %s\n\nAutomatic retries have stopped. Please update your payment method or contact support to avoid disruption to your booking.\n\nBest regards,\nThe Rentloop Team",
		booking.Renter.FullName(), dollars(payment.TotalAmountCents), booking.ListingTitle,
		payment.DueDate.Format("January 2, 2006"), humanReason(reason))
	return s.send(booking.Renter.Email, booking.Renter.FullName(), subject, body)
}

func (s *sendGridEmailService) SendHostPaymentReceived(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment, transactionNumber string) error {
	subject := fmt.Sprintf("Rent payment collected for %s", booking.ListingTitle)
	body := fmt.Sprintf("Hello %s,\n\nWe collected the rent payment of %s from %s for %s (due %s).\n\nTransaction number: %s\n\nThe funds will be transferred to your payout account.\n\nBest regards,\nThe Rentloop Team",
		booking.Host.FullName(), dollars(payment.TotalAmountCents), booking.Renter.FullName(),
		booking.ListingTitle, payment.DueDate.Format("January 2, 2006"), transactionNumber)
	return s.send(booking.Host.Email, booking.Host.FullName(), subject, body)
}

func (s *sendGridEmailService) SendHostPaymentFailed(ctx context.Context, booking *domain.Booking, payment *domain.RentPayment) error {
	subject := fmt.Sprintf("Rent payment issue for %s", booking.ListingTitle)
	body := fmt.Sprintf("Hello %s,\n\nThe rent payment of %s from %s for %s (due %s) could not be collected after multiple attempts.\n\nOur team has been notified and is following up with the renter. Your payout for this period will be delayed until the payment is resolved.\n\nBest regards,\nThe Rentloop Team",
		booking.Host.FullName(), dollars(payment.TotalAmountCents), booking.Renter.FullName(),
		booking.ListingTitle, payment.DueDate.Format("January 2, 2006"))
	return s.send(booking.Host.Email, booking.Host.FullName(), subject, body)
}

func (s *sendGridEmailService) SendHostActionRequired(ctx context.Context, host *domain.Party, requirements domain.AccountRequirements) error {
	subject := "Your payout account needs attention"
	var items []string
	items = append(items, requirements.PastDue...)
	items = append(items, requirements.CurrentlyDue...)
	body := fmt.Sprintf("Hello %s,\n\nYour payout account needs additional information before rent payouts can continue:\n\n- %s\n\nPlease complete these items in your account settings.\n\nBest regards,\nThe Rentloop Team",
		host.FullName(), strings.Join(items, "\n- "))
	return s.send(host.Email, host.FullName(), subject, body)
}

func (s *sendGridEmailService) SendHostChargesDisabled(ctx context.Context, host *domain.Party) error {
	subject := "Rent collection paused for your listings"
	body := fmt.Sprintf("Hello %s,\n\nYour payout account can no longer accept rent payments, so collection for your listings has been paused and your listings are hidden from search.\n\nPlease review your payout account settings to restore service.\n\nBest regards,\nThe Rentloop Team",
		host.FullName())
	return s.send(host.Email, host.FullName(), subject, body)
}

func dollars(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

// humanReason translates normalized failure reasons for customer email.
func humanReason(reason string) string {
	switch reason {
	case "insufficient_funds":
		return "insufficient funds"
	case "card_declined":
		return "your card was declined"
	case "payment_method_unavailable":
		return "your payment method is no longer available"
	case "destination_account_unavailable":
		return "the host's payout account is unavailable"
	default:
		return "the payment could not be processed"
	}
}
