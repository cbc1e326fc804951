package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentloop-backend/internal/config"
	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/jobs"
	"rentloop-backend/internal/reconcile"
	"rentloop-backend/internal/repository"
)

type stubPaymentRepo struct{}

func (stubPaymentRepo) CreateWithCharges(ctx context.Context, p *domain.RentPayment) error {
	return nil
}

func (stubPaymentRepo) GetByID(ctx context.Context, id int64) (*domain.RentPayment, error) {
	return nil, repository.ErrNotFound
}

func (stubPaymentRepo) ListDue(ctx context.Context, cutoff time.Time) ([]domain.RentPayment, error) {
	return nil, nil
}

func (stubPaymentRepo) ListEligibleForRetry(ctx context.Context, todayStart time.Time) ([]domain.RentPayment, error) {
	return nil, nil
}

func (stubPaymentRepo) MarkSucceeded(ctx context.Context, id int64, ref string, s *domain.SettledTransaction) error {
	return nil
}

func (stubPaymentRepo) MarkProcessing(ctx context.Context, id int64, ref string, pending *domain.SettledTransaction) error {
	return nil
}

func (stubPaymentRepo) RecordFailure(ctx context.Context, id int64, reason string, at time.Time, countRetry bool) (int32, error) {
	return 0, nil
}

func newCronHandler() *CronHandler {
	cfg := &config.Config{Billing: config.BillingConfig{ReferenceTimezone: "UTC"}}
	runner := jobs.NewJobRunner(&jobs.Store{Payments: stubPaymentRepo{}}, nil, nil, cfg)
	return NewCronHandler(runner, "cron-secret")
}

func TestCronHandler_RejectsMissingToken(t *testing.T) {
	h := newCronHandler()

	req := httptest.NewRequest(http.MethodPost, "/internal/cron/retry-failed-payments", nil)
	rec := httptest.NewRecorder()
	h.HandleRetryFailed(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCronHandler_RejectsWrongToken(t *testing.T) {
	h := newCronHandler()

	req := httptest.NewRequest(http.MethodPost, "/internal/cron/retry-failed-payments", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.HandleRetryFailed(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCronHandler_RunsPassAndReportsSummary(t *testing.T) {
	h := newCronHandler()

	req := httptest.NewRequest(http.MethodPost, "/internal/cron/retry-failed-payments", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec := httptest.NewRecorder()
	h.HandleRetryFailed(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"eligible":0`)
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookHandler() *WebhookHandler {
	// Parsing and signature checks never reach the reconciler, so an empty
	// one is enough here; handler behavior is covered in the reconcile tests.
	return NewWebhookHandler(reconcile.NewHandler(nil, nil, nil, nil, nil, nil), "whsec_test")
}

func TestWebhookHandler_RejectsBadSignature(t *testing.T) {
	h := newWebhookHandler()
	payload := `{"id":"evt_1","type":"transfer.paid","data":{"object":{"id":"tr_1"}}}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/processor", strings.NewReader(payload))
	req.Header.Set("X-Webhook-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	h.HandleEvent(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookHandler_AcknowledgesUnhandledTypes(t *testing.T) {
	h := newWebhookHandler()
	payload := []byte(`{"id":"evt_1","type":"invoice.created","data":{"object":{}}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/processor", strings.NewReader(string(payload)))
	req.Header.Set("X-Webhook-Signature", sign("whsec_test", payload))
	rec := httptest.NewRecorder()
	h.HandleEvent(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubLedgerRepo struct {
	transactions []domain.SettledTransaction
}

func (s stubLedgerRepo) ListByBooking(ctx context.Context, bookingID int64) ([]domain.SettledTransaction, error) {
	return s.transactions, nil
}

func TestLedgerHandler_ReturnsSettlements(t *testing.T) {
	h := NewLedgerHandler(stubLedgerRepo{transactions: []domain.SettledTransaction{
		{TransactionNumber: "TXN-abc", BookingID: 3, AmountCents: 103000, Status: domain.SettlementStatusSettled},
	}})

	req := httptest.NewRequest(http.MethodGet, "/bookings/3/transactions", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "3"})
	rec := httptest.NewRecorder()
	h.HandleListByBooking(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transaction_number":"TXN-abc"`)
}

func TestLedgerHandler_EmptyHistoryIsEmptyList(t *testing.T) {
	h := NewLedgerHandler(stubLedgerRepo{})

	req := httptest.NewRequest(http.MethodGet, "/bookings/3/transactions", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "3"})
	rec := httptest.NewRecorder()
	h.HandleListByBooking(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestWebhookHandler_RejectsMalformedPayload(t *testing.T) {
	h := newWebhookHandler()
	payload := []byte(`{not json`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/processor", strings.NewReader(string(payload)))
	req.Header.Set("X-Webhook-Signature", sign("whsec_test", payload))
	rec := httptest.NewRecorder()
	h.HandleEvent(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
