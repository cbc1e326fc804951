package postgres

import (
	"database/sql"

	"rentloop-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.PaymentRepository
	repository.BookingRepository
	repository.HostRepository
	repository.PayoutAccountRepository
	repository.TransferRepository
	repository.LedgerRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                      db,
		PaymentRepository:       NewPaymentRepository(db),
		BookingRepository:       NewBookingRepository(db),
		HostRepository:          NewHostRepository(db),
		PayoutAccountRepository: NewPayoutAccountRepository(db),
		TransferRepository:      NewTransferRepository(db),
		LedgerRepository:        NewLedgerRepository(db),
	}
}
