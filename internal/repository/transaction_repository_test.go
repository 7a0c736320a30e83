package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simgate/sim-gateway/internal/domain"
)

func setupTransactionTest(t *testing.T) (TransactionRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewTransactionRepository(mockPool), mockPool
}

func TestTransactionRepository_Create(t *testing.T) {
	repo, mockPool := setupTransactionTest(t)
	defer mockPool.Close()

	raw := "0053"
	amount := 1500.0
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	created := started.Add(5 * time.Second)
	tx := &domain.UssdTransaction{
		ID:             "0b6c8d3e-6c1f-4c55-9a53-44d3f55e7f11",
		SlotNumber:     3,
		Operator:       "Mobilis",
		Code:           "*222#",
		Success:        true,
		FailureKind:    domain.FailureNone,
		RawPayload:     &raw,
		DecodedMessage: "S",
		Amount:         &amount,
		StartedAt:      started,
		FinishedAt:     started.Add(3 * time.Second),
	}

	mockPool.ExpectQuery(`INSERT INTO ussd_transactions`).
		WithArgs(tx.ID, 3, "Mobilis", "*222#", true, "none", &raw, "S", &amount, tx.StartedAt, tx.FinishedAt).
		WillReturnRows(mockPool.NewRows([]string{"created_at"}).AddRow(created))

	require.NoError(t, repo.Create(context.Background(), tx))
	assert.Equal(t, created, tx.CreatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTransactionRepository_ListRecent(t *testing.T) {
	repo, mockPool := setupTransactionTest(t)
	defer mockPool.Close()

	columns := []string{"id", "slot_number", "operator", "code", "success", "failure_kind", "raw_payload", "decoded_message", "amount", "started_at", "finished_at", "created_at"}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("FilteredBySlot", func(t *testing.T) {
		slot := 3
		raw := "0053"
		mockPool.ExpectQuery(`SELECT id, slot_number, operator, code, success, failure_kind`).
			WithArgs(&slot, 10).
			WillReturnRows(mockPool.NewRows(columns).
				AddRow("t1", 3, "Mobilis", "*222#", true, "none", &raw, "S", (*float64)(nil), now, now, now).
				AddRow("t2", 3, "Mobilis", "*222#", false, "no_service", (*string)(nil), "", (*float64)(nil), now, now, now))

		txs, err := repo.ListRecent(context.Background(), TransactionFilter{SlotNumber: &slot, Limit: 10})
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, domain.FailureNone, txs[0].FailureKind)
		require.NotNil(t, txs[0].RawPayload)
		assert.Equal(t, "0053", *txs[0].RawPayload)
		assert.Equal(t, domain.FailureNoService, txs[1].FailureKind)
		assert.Nil(t, txs[1].RawPayload)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DefaultLimit", func(t *testing.T) {
		mockPool.ExpectQuery(`FROM ussd_transactions`).
			WithArgs((*int)(nil), 50).
			WillReturnRows(mockPool.NewRows(columns))

		txs, err := repo.ListRecent(context.Background(), TransactionFilter{Limit: 10000})
		require.NoError(t, err)
		assert.Empty(t, txs)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		dbErr := errors.New("db down")
		mockPool.ExpectQuery(`FROM ussd_transactions`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(dbErr)

		_, err := repo.ListRecent(context.Background(), TransactionFilter{})
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
