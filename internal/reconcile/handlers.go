package reconcile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
	"rentloop-backend/internal/service"
)

// Handler applies settlement events to local state. Every handler is
// idempotent: the processor delivers events at least once and may replay
// them in any order.
type Handler struct {
	payouts   repository.PayoutAccountRepository
	transfers repository.TransferRepository
	bookings  repository.BookingRepository
	hosts     repository.HostRepository
	email     service.EmailService
	alerts    service.AlertService
}

func NewHandler(
	payouts repository.PayoutAccountRepository,
	transfers repository.TransferRepository,
	bookings repository.BookingRepository,
	hosts repository.HostRepository,
	email service.EmailService,
	alerts service.AlertService,
) *Handler {
	return &Handler{
		payouts:   payouts,
		transfers: transfers,
		bookings:  bookings,
		hosts:     hosts,
		email:     email,
		alerts:    alerts,
	}
}

// Handle dispatches a parsed event to its handler.
func (h *Handler) Handle(ctx context.Context, event Event) error {
	switch ev := event.(type) {
	case *AccountUpdated:
		return h.HandleAccountUpdated(ctx, ev)
	case *AccountDeauthorized:
		return h.HandleAccountDeauthorized(ctx, ev)
	case *CapabilityUpdated:
		return h.HandleCapabilityUpdated(ctx, ev)
	case *TransferEvent:
		return h.HandleTransferEvent(ctx, ev)
	default:
		return fmt.Errorf("%w: %T", ErrUnhandledEvent, event)
	}
}

// DeriveAccountStatus folds the processor's account flags into one status.
// Precedence: disabled > restricted > pending > enabled.
func DeriveAccountStatus(chargesEnabled, detailsSubmitted bool, req domain.AccountRequirements) domain.AccountStatus {
	switch {
	case req.DisabledReason != "" || (!chargesEnabled && detailsSubmitted):
		return domain.AccountStatusDisabled
	case len(req.PastDue) > 0:
		return domain.AccountStatusRestricted
	case len(req.CurrentlyDue) > 0 || !detailsSubmitted:
		return domain.AccountStatusPending
	default:
		return domain.AccountStatusEnabled
	}
}

// HandleAccountUpdated refreshes the local account mirror and reacts to
// collection-relevant transitions.
func (h *Handler) HandleAccountUpdated(ctx context.Context, ev *AccountUpdated) error {
	host, err := h.hosts.GetByAccountRef(ctx, ev.AccountRef)
	if errors.Is(err, repository.ErrNotFound) {
		// Account not linked to any host. Nothing to reconcile.
		logger.Warn("Account update for unknown account", "account_ref", ev.AccountRef)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve host for account %s: %w", ev.AccountRef, err)
	}

	previous, err := h.payouts.GetByRef(ctx, ev.AccountRef)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to load account mirror %s: %w", ev.AccountRef, err)
	}

	account := &domain.ConnectedPayoutAccount{
		AccountRef:       ev.AccountRef,
		HostID:           host.ID,
		ChargesEnabled:   ev.ChargesEnabled,
		PayoutsEnabled:   ev.PayoutsEnabled,
		DetailsSubmitted: ev.DetailsSubmitted,
		Status:           DeriveAccountStatus(ev.ChargesEnabled, ev.DetailsSubmitted, ev.Requirements),
		Requirements:     ev.Requirements,
		LastCheckedAt:    time.Now(),
	}
	if err := h.payouts.Upsert(ctx, account); err != nil {
		return err
	}

	logger.Info("Payout account reconciled",
		"account_ref", ev.AccountRef,
		"host_id", host.ID,
		"status", account.Status)

	wasChargeable := host.ChargesEnabled || (previous != nil && previous.ChargesEnabled)
	if !ev.ChargesEnabled && wasChargeable {
		suspended, err := h.bookings.SuspendHostListings(ctx, host.ID)
		if err != nil {
			return fmt.Errorf("failed to suspend listings for host %d: %w", host.ID, err)
		}
		logger.Warn("Host lost charge capability, listings suspended",
			"host_id", host.ID, "suspended", suspended)
		if err := h.email.SendHostChargesDisabled(ctx, host); err != nil {
			logger.Error("Failed to notify host of disabled charges", "host_id", host.ID, "error", err)
		}
		return nil
	}

	// Notify only when the requirements snapshot actually changed, so
	// at-least-once event delivery does not spam the host.
	requirementsDue := len(ev.Requirements.PastDue) > 0 || len(ev.Requirements.CurrentlyDue) > 0
	requirementsChanged := previous == nil || !reflect.DeepEqual(previous.Requirements, ev.Requirements)
	if requirementsDue && requirementsChanged {
		if err := h.email.SendHostActionRequired(ctx, host, ev.Requirements); err != nil {
			logger.Error("Failed to notify host of outstanding requirements", "host_id", host.ID, "error", err)
		}
	}
	return nil
}

// HandleAccountDeauthorized severs the account linkage and pulls the host's
// active bookings out of automated collection.
func (h *Handler) HandleAccountDeauthorized(ctx context.Context, ev *AccountDeauthorized) error {
	hostID, err := h.payouts.ClearByRef(ctx, ev.AccountRef)
	if errors.Is(err, repository.ErrNotFound) {
		// Replay of an already-processed deauthorization.
		logger.Info("Deauthorization for unknown account", "account_ref", ev.AccountRef)
		return nil
	}
	if err != nil {
		return err
	}

	flagged, err := h.bookings.FlagActiveForReview(ctx, hostID)
	if err != nil {
		return fmt.Errorf("failed to flag bookings for host %d: %w", hostID, err)
	}

	logger.Warn("Payout account deauthorized",
		"account_ref", ev.AccountRef,
		"host_id", hostID,
		"flagged_bookings", flagged)

	if err := h.alerts.AccountDeauthorized(ctx, ev.AccountRef, hostID, flagged); err != nil {
		logger.Error("Failed to send deauthorization alert", "account_ref", ev.AccountRef, "error", err)
	}
	return nil
}

// HandleCapabilityUpdated reacts to a capability leaving the active state.
func (h *Handler) HandleCapabilityUpdated(ctx context.Context, ev *CapabilityUpdated) error {
	if ev.Status == "active" {
		logger.Debug("Capability active", "account_ref", ev.AccountRef, "capability", ev.Capability)
		return nil
	}

	logger.Warn("Capability deactivated",
		"account_ref", ev.AccountRef,
		"capability", ev.Capability,
		"status", ev.Status)

	account, err := h.payouts.GetByRef(ctx, ev.AccountRef)
	if err == nil {
		account.ChargesEnabled = false
		account.Status = DeriveAccountStatus(false, account.DetailsSubmitted, account.Requirements)
		account.LastCheckedAt = time.Now()
		if err := h.payouts.Upsert(ctx, account); err != nil {
			return err
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if err := h.alerts.CapabilityDeactivated(ctx, ev.AccountRef, ev.Capability); err != nil {
		logger.Error("Failed to send capability alert", "account_ref", ev.AccountRef, "error", err)
	}
	return nil
}

// HandleTransferEvent mirrors payout transfer lifecycle progress, alerting
// on failures even when the destination account is unknown locally.
func (h *Handler) HandleTransferEvent(ctx context.Context, ev *TransferEvent) error {
	transfer := &domain.Transfer{
		TransferRef:           ev.TransferRef,
		AmountCents:           ev.AmountCents,
		DestinationAccountRef: ev.DestinationRef,
		Status:                transferStatus(ev.Kind),
		Reversed:              ev.Reversed,
		AmountReversedCents:   ev.AmountReversedCents,
	}
	if ev.SourcePaymentRef != "" {
		transfer.SourcePaymentRef = &ev.SourcePaymentRef
	}
	if ev.RentPaymentID != 0 {
		transfer.RentPaymentID = &ev.RentPaymentID
	}

	if err := h.transfers.Upsert(ctx, transfer); err != nil {
		return err
	}

	logger.Info("Transfer reconciled",
		"transfer_ref", ev.TransferRef,
		"status", transfer.Status,
		"amount_cents", ev.AmountCents)

	if ev.Kind == TransferEventFailed {
		if err := h.alerts.TransferFailed(ctx, transfer); err != nil {
			logger.Error("Failed to send transfer alert", "transfer_ref", ev.TransferRef, "error", err)
		}
	}
	return nil
}

func transferStatus(kind TransferEventKind) domain.TransferStatus {
	switch kind {
	case TransferEventPaid:
		return domain.TransferStatusPaid
	case TransferEventFailed:
		return domain.TransferStatusFailed
	default:
		return domain.TransferStatusCreated
	}
}
