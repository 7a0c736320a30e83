package repository

import (
	"context"

	"github.com/simgate/sim-gateway/internal/domain"
)

// TransactionFilter narrows the transaction history.
type TransactionFilter struct {
	SlotNumber *int
	Limit      int
}

// TransactionRepository persists USSD outcomes.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.UssdTransaction) error
	ListRecent(ctx context.Context, filter TransactionFilter) ([]domain.UssdTransaction, error)
}

type transactionRepository struct {
	db DBTX
}

// NewTransactionRepository instantiates repository.
func NewTransactionRepository(db DBTX) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.UssdTransaction) error {
	const query = `
        INSERT INTO ussd_transactions (id, slot_number, operator, code, success, failure_kind, raw_payload, decoded_message, amount, started_at, finished_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at`
	return r.db.QueryRow(ctx, query,
		tx.ID,
		tx.SlotNumber,
		tx.Operator,
		tx.Code,
		tx.Success,
		string(tx.FailureKind),
		tx.RawPayload,
		tx.DecodedMessage,
		tx.Amount,
		tx.StartedAt,
		tx.FinishedAt,
	).Scan(&tx.CreatedAt)
}

func (r *transactionRepository) ListRecent(ctx context.Context, filter TransactionFilter) ([]domain.UssdTransaction, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const query = `
        SELECT id, slot_number, operator, code, success, failure_kind, raw_payload, decoded_message, amount, started_at, finished_at, created_at
        FROM ussd_transactions
        WHERE ($1::int IS NULL OR slot_number = $1)
        ORDER BY started_at DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, filter.SlotNumber, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UssdTransaction
	for rows.Next() {
		var (
			tx   domain.UssdTransaction
			kind string
		)
		if err := rows.Scan(
			&tx.ID,
			&tx.SlotNumber,
			&tx.Operator,
			&tx.Code,
			&tx.Success,
			&kind,
			&tx.RawPayload,
			&tx.DecodedMessage,
			&tx.Amount,
			&tx.StartedAt,
			&tx.FinishedAt,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		tx.FailureKind = domain.FailureKind(kind)
		out = append(out, tx)
	}
	return out, rows.Err()
}
