package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

func TestPayoutAccountRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewPayoutAccountRepository(db)
	ctx := context.Background()

	account := &domain.ConnectedPayoutAccount{
		AccountRef:     "acct_1",
		HostID:         9,
		ChargesEnabled: true,
		PayoutsEnabled: true,
		Status:         domain.AccountStatusEnabled,
		Requirements: domain.AccountRequirements{
			CurrentlyDue: []string{"individual.id_number"},
		},
		LastCheckedAt: time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payout_accounts").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET charges_enabled").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.Upsert(ctx, account)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutAccountRepository_ClearByRef(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewPayoutAccountRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("DELETE FROM payout_accounts").
			WithArgs("acct_1").
			WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(9))
		mock.ExpectExec("UPDATE users SET payout_account_ref").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		hostID, err := repo.ClearByRef(ctx, "acct_1")
		assert.NoError(t, err)
		assert.Equal(t, int64(9), hostID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("DELETE FROM payout_accounts").
			WithArgs("acct_missing").
			WillReturnRows(sqlmock.NewRows([]string{"host_id"}))
		mock.ExpectRollback()

		_, err := repo.ClearByRef(ctx, "acct_missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
