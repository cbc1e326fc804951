package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

// LedgerHandler serves the settlement history of a booking.
type LedgerHandler struct {
	ledger repository.LedgerRepository
}

func NewLedgerHandler(ledger repository.LedgerRepository) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// HandleListByBooking returns every settlement record for a booking, newest
// first. An unknown booking yields an empty list rather than 404.
func (h *LedgerHandler) HandleListByBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid booking id", http.StatusBadRequest)
		return
	}

	transactions, err := h.ledger.ListByBooking(r.Context(), bookingID)
	if err != nil {
		logger.Error("Failed to list settlements", "booking_id", bookingID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []domain.SettledTransaction{}
	}
	writeJSON(w, transactions)
}
