package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

type fakePayoutRepo struct {
	accounts map[string]*domain.ConnectedPayoutAccount
	cleared  []string
}

func (f *fakePayoutRepo) GetByRef(ctx context.Context, ref string) (*domain.ConnectedPayoutAccount, error) {
	a, ok := f.accounts[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakePayoutRepo) Upsert(ctx context.Context, a *domain.ConnectedPayoutAccount) error {
	if f.accounts == nil {
		f.accounts = make(map[string]*domain.ConnectedPayoutAccount)
	}
	f.accounts[a.AccountRef] = a
	return nil
}

func (f *fakePayoutRepo) ClearByRef(ctx context.Context, ref string) (int64, error) {
	a, ok := f.accounts[ref]
	if !ok {
		return 0, repository.ErrNotFound
	}
	delete(f.accounts, ref)
	f.cleared = append(f.cleared, ref)
	return a.HostID, nil
}

type fakeTransferRepo struct {
	transfers map[string]*domain.Transfer
}

func (f *fakeTransferRepo) GetByRef(ctx context.Context, ref string) (*domain.Transfer, error) {
	t, ok := f.transfers[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTransferRepo) Upsert(ctx context.Context, t *domain.Transfer) error {
	if f.transfers == nil {
		f.transfers = make(map[string]*domain.Transfer)
	}
	f.transfers[t.TransferRef] = t
	return nil
}

type fakeBookingRepo struct {
	flagged   []int64
	suspended []int64
}

func (f *fakeBookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeBookingRepo) FlagActiveForReview(ctx context.Context, hostID int64) (int64, error) {
	f.flagged = append(f.flagged, hostID)
	return 2, nil
}

func (f *fakeBookingRepo) SuspendHostListings(ctx context.Context, hostID int64) (int64, error) {
	f.suspended = append(f.suspended, hostID)
	return 1, nil
}

type fakeHostRepo struct {
	hosts map[string]*domain.Party
}

func (f *fakeHostRepo) GetByID(ctx context.Context, id int64) (*domain.Party, error) {
	for _, h := range f.hosts {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeHostRepo) GetByAccountRef(ctx context.Context, ref string) (*domain.Party, error) {
	h, ok := f.hosts[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return h, nil
}

type fakeEmail struct {
	chargesDisabled int
	actionRequired  int
}

func (f *fakeEmail) SendPaymentReceipt(ctx context.Context, b *domain.Booking, p *domain.RentPayment, txn string) error {
	return nil
}

func (f *fakeEmail) SendPaymentProcessing(ctx context.Context, b *domain.Booking, p *domain.RentPayment) error {
	return nil
}

func (f *fakeEmail) SendHostPaymentReceived(ctx context.Context, b *domain.Booking, p *domain.RentPayment, txn string) error {
	return nil
}

func (f *fakeEmail) SendPaymentFailed(ctx context.Context, b *domain.Booking, p *domain.RentPayment, reason string, remaining int) error {
	return nil
}

func (f *fakeEmail) SendFinalPaymentNotice(ctx context.Context, b *domain.Booking, p *domain.RentPayment, reason string) error {
	return nil
}

func (f *fakeEmail) SendHostPaymentFailed(ctx context.Context, b *domain.Booking, p *domain.RentPayment) error {
	return nil
}

func (f *fakeEmail) SendHostActionRequired(ctx context.Context, h *domain.Party, r domain.AccountRequirements) error {
	f.actionRequired++
	return nil
}

func (f *fakeEmail) SendHostChargesDisabled(ctx context.Context, h *domain.Party) error {
	f.chargesDisabled++
	return nil
}

type fakeAlerts struct {
	exhausted      int
	transferFailed int
	capability     int
	deauthorized   int
}

func (f *fakeAlerts) PaymentRetriesExhausted(ctx context.Context, p *domain.RentPayment, b *domain.Booking, reason string) error {
	f.exhausted++
	return nil
}

func (f *fakeAlerts) TransferFailed(ctx context.Context, t *domain.Transfer) error {
	f.transferFailed++
	return nil
}

func (f *fakeAlerts) CapabilityDeactivated(ctx context.Context, accountRef, capability string) error {
	f.capability++
	return nil
}

func (f *fakeAlerts) AccountDeauthorized(ctx context.Context, accountRef string, hostID, flagged int64) error {
	f.deauthorized++
	return nil
}

func strPtr(s string) *string { return &s }

type handlerFixture struct {
	payouts   *fakePayoutRepo
	transfers *fakeTransferRepo
	bookings  *fakeBookingRepo
	hosts     *fakeHostRepo
	email     *fakeEmail
	alerts    *fakeAlerts
	handler   *Handler
}

func newFixture() *handlerFixture {
	f := &handlerFixture{
		payouts:   &fakePayoutRepo{accounts: map[string]*domain.ConnectedPayoutAccount{}},
		transfers: &fakeTransferRepo{},
		bookings:  &fakeBookingRepo{},
		hosts: &fakeHostRepo{hosts: map[string]*domain.Party{
			"acct_1": {ID: 9, Email: "host@example.com", PayoutAccountRef: strPtr("acct_1"), ChargesEnabled: true},
		}},
		email:  &fakeEmail{},
		alerts: &fakeAlerts{},
	}
	f.handler = NewHandler(f.payouts, f.transfers, f.bookings, f.hosts, f.email, f.alerts)
	return f
}

func TestDeriveAccountStatus(t *testing.T) {
	tests := []struct {
		name             string
		chargesEnabled   bool
		detailsSubmitted bool
		req              domain.AccountRequirements
		expected         domain.AccountStatus
	}{
		{"fully operational", true, true, domain.AccountRequirements{}, domain.AccountStatusEnabled},
		{"onboarding incomplete", true, false, domain.AccountRequirements{}, domain.AccountStatusPending},
		{"currently due items", true, true, domain.AccountRequirements{CurrentlyDue: []string{"x"}}, domain.AccountStatusPending},
		{"past due items", true, true, domain.AccountRequirements{PastDue: []string{"x"}}, domain.AccountStatusRestricted},
		{"explicit disable", true, true, domain.AccountRequirements{DisabledReason: "fraud"}, domain.AccountStatusDisabled},
		{"charges shut off", false, true, domain.AccountRequirements{}, domain.AccountStatusDisabled},
		{"disabled wins over past due", false, true, domain.AccountRequirements{PastDue: []string{"x"}}, domain.AccountStatusDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveAccountStatus(tt.chargesEnabled, tt.detailsSubmitted, tt.req))
		})
	}
}

func TestHandleAccountUpdated_ChargesDisabledSuspendsListings(t *testing.T) {
	f := newFixture()

	err := f.handler.HandleAccountUpdated(context.Background(), &AccountUpdated{
		AccountRef:       "acct_1",
		ChargesEnabled:   false,
		DetailsSubmitted: true,
		Requirements:     domain.AccountRequirements{DisabledReason: "requirements.past_due"},
	})
	require.NoError(t, err)

	account := f.payouts.accounts["acct_1"]
	require.NotNil(t, account)
	assert.Equal(t, domain.AccountStatusDisabled, account.Status)
	assert.Equal(t, []int64{9}, f.bookings.suspended)
	assert.Equal(t, 1, f.email.chargesDisabled)
}

func TestHandleAccountUpdated_RequirementsDueNotifiesHost(t *testing.T) {
	f := newFixture()

	err := f.handler.HandleAccountUpdated(context.Background(), &AccountUpdated{
		AccountRef:       "acct_1",
		ChargesEnabled:   true,
		DetailsSubmitted: true,
		Requirements:     domain.AccountRequirements{CurrentlyDue: []string{"individual.id_number"}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AccountStatusPending, f.payouts.accounts["acct_1"].Status)
	assert.Equal(t, 1, f.email.actionRequired)
	assert.Empty(t, f.bookings.suspended)
}

func TestHandleAccountUpdated_RequirementsRedeliveryNotifiesOnce(t *testing.T) {
	f := newFixture()
	ev := &AccountUpdated{
		AccountRef:       "acct_1",
		ChargesEnabled:   true,
		DetailsSubmitted: true,
		Requirements:     domain.AccountRequirements{CurrentlyDue: []string{"individual.id_number"}},
	}

	require.NoError(t, f.handler.HandleAccountUpdated(context.Background(), ev))
	require.NoError(t, f.handler.HandleAccountUpdated(context.Background(), ev))
	assert.Equal(t, 1, f.email.actionRequired)

	// A changed snapshot notifies again.
	changed := &AccountUpdated{
		AccountRef:       "acct_1",
		ChargesEnabled:   true,
		DetailsSubmitted: true,
		Requirements:     domain.AccountRequirements{PastDue: []string{"individual.id_number"}},
	}
	require.NoError(t, f.handler.HandleAccountUpdated(context.Background(), changed))
	assert.Equal(t, 2, f.email.actionRequired)
}

func TestHandleAccountUpdated_UnknownAccountIsIgnored(t *testing.T) {
	f := newFixture()

	err := f.handler.HandleAccountUpdated(context.Background(), &AccountUpdated{AccountRef: "acct_ghost"})
	require.NoError(t, err)
	assert.Empty(t, f.payouts.accounts["acct_ghost"])
}

func TestHandleAccountUpdated_Replay(t *testing.T) {
	f := newFixture()
	ev := &AccountUpdated{AccountRef: "acct_1", ChargesEnabled: true, DetailsSubmitted: true}

	require.NoError(t, f.handler.HandleAccountUpdated(context.Background(), ev))
	require.NoError(t, f.handler.HandleAccountUpdated(context.Background(), ev))

	assert.Equal(t, domain.AccountStatusEnabled, f.payouts.accounts["acct_1"].Status)
}

func TestHandleAccountDeauthorized(t *testing.T) {
	f := newFixture()
	f.payouts.accounts["acct_1"] = &domain.ConnectedPayoutAccount{AccountRef: "acct_1", HostID: 9}

	err := f.handler.HandleAccountDeauthorized(context.Background(), &AccountDeauthorized{AccountRef: "acct_1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"acct_1"}, f.payouts.cleared)
	assert.Equal(t, []int64{9}, f.bookings.flagged)
	assert.Equal(t, 1, f.alerts.deauthorized)

	// Replay after the linkage is gone is a no-op.
	err = f.handler.HandleAccountDeauthorized(context.Background(), &AccountDeauthorized{AccountRef: "acct_1"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.alerts.deauthorized)
}

func TestHandleCapabilityUpdated_InactiveAlertsOps(t *testing.T) {
	f := newFixture()
	f.payouts.accounts["acct_1"] = &domain.ConnectedPayoutAccount{
		AccountRef:       "acct_1",
		HostID:           9,
		ChargesEnabled:   true,
		DetailsSubmitted: true,
		Status:           domain.AccountStatusEnabled,
	}

	err := f.handler.HandleCapabilityUpdated(context.Background(), &CapabilityUpdated{
		AccountRef: "acct_1",
		Capability: "transfers",
		Status:     "inactive",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.alerts.capability)
	assert.False(t, f.payouts.accounts["acct_1"].ChargesEnabled)
	assert.Equal(t, domain.AccountStatusDisabled, f.payouts.accounts["acct_1"].Status)
}

func TestHandleCapabilityUpdated_ActiveIsNoOp(t *testing.T) {
	f := newFixture()

	err := f.handler.HandleCapabilityUpdated(context.Background(), &CapabilityUpdated{
		AccountRef: "acct_1",
		Capability: "transfers",
		Status:     "active",
	})
	require.NoError(t, err)
	assert.Zero(t, f.alerts.capability)
}

func TestHandleTransferEvent_FailureAlertsEvenForUnknownDestination(t *testing.T) {
	f := newFixture()

	err := f.handler.HandleTransferEvent(context.Background(), &TransferEvent{
		Kind:                TransferEventFailed,
		TransferRef:         "tr_1",
		AmountCents:         98500,
		DestinationRef:      "acct_unknown",
		Reversed:            true,
		AmountReversedCents: 98500,
	})
	require.NoError(t, err)

	transfer := f.transfers.transfers["tr_1"]
	require.NotNil(t, transfer)
	assert.Equal(t, domain.TransferStatusFailed, transfer.Status)
	assert.True(t, transfer.Reversed)
	assert.Equal(t, 1, f.alerts.transferFailed)
}

func TestHandleTransferEvent_LifecycleUpsertsAreIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created := &TransferEvent{Kind: TransferEventCreated, TransferRef: "tr_2", AmountCents: 50000, DestinationRef: "acct_1", SourcePaymentRef: "col_9", RentPaymentID: 7}
	paid := &TransferEvent{Kind: TransferEventPaid, TransferRef: "tr_2", AmountCents: 50000, DestinationRef: "acct_1"}

	require.NoError(t, f.handler.HandleTransferEvent(ctx, created))
	require.NoError(t, f.handler.HandleTransferEvent(ctx, paid))
	require.NoError(t, f.handler.HandleTransferEvent(ctx, paid))

	transfer := f.transfers.transfers["tr_2"]
	require.NotNil(t, transfer)
	assert.Equal(t, domain.TransferStatusPaid, transfer.Status)
	assert.Zero(t, f.alerts.transferFailed)
}
