package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the service's HTTP surface: webhook ingestion, cron
// triggers, settlement history, and a liveness probe.
func NewRouter(webhooks *WebhookHandler, crons *CronHandler, ledger *LedgerHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/webhooks/processor", webhooks.HandleEvent).Methods(http.MethodPost)
	r.HandleFunc("/bookings/{id:[0-9]+}/transactions", ledger.HandleListByBooking).Methods(http.MethodGet)

	internal := r.PathPrefix("/internal/cron").Subrouter()
	internal.HandleFunc("/process-due-payments", crons.HandleProcessDue).Methods(http.MethodPost)
	internal.HandleFunc("/retry-failed-payments", crons.HandleRetryFailed).Methods(http.MethodPost)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return r
}
