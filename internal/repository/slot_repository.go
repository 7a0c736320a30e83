package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/simgate/sim-gateway/internal/config"
	"github.com/simgate/sim-gateway/internal/domain"
)

// SlotRepository reads slot seeds from, and mirrors slot state into, Postgres.
type SlotRepository interface {
	ListOperators(ctx context.Context) ([]config.OperatorEntry, error)
	ListSlots(ctx context.Context) ([]config.SlotEntry, error)
	UpdateStatus(ctx context.Context, slotNumber int, status domain.SlotStatus) error
	UpdateBalance(ctx context.Context, slotNumber int, balance float64) error
}

type slotRepository struct {
	db DBTX
}

// NewSlotRepository instantiates repository.
func NewSlotRepository(db DBTX) SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) ListOperators(ctx context.Context) ([]config.OperatorEntry, error) {
	const query = `SELECT name, balance_code, transfer_template FROM operator_profiles ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []config.OperatorEntry
	for rows.Next() {
		var op config.OperatorEntry
		if err := rows.Scan(&op.Name, &op.BalanceCode, &op.TransferTemplate); err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

func (r *slotRepository) ListSlots(ctx context.Context) ([]config.SlotEntry, error) {
	const query = `
        SELECT id, slot_number, phone_number, operator, endpoint, status
        FROM sim_slots ORDER BY slot_number`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []config.SlotEntry
	for rows.Next() {
		var s config.SlotEntry
		if err := rows.Scan(&s.ID, &s.Number, &s.Phone, &s.Operator, &s.Endpoint, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *slotRepository) UpdateStatus(ctx context.Context, slotNumber int, status domain.SlotStatus) error {
	const query = `UPDATE sim_slots SET status=$1, updated_at=NOW() WHERE slot_number=$2`
	cmd, err := r.db.Exec(ctx, query, status, slotNumber)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slotRepository) UpdateBalance(ctx context.Context, slotNumber int, balance float64) error {
	const query = `UPDATE sim_slots SET balance=$1, updated_at=NOW() WHERE slot_number=$2`
	cmd, err := r.db.Exec(ctx, query, balance, slotNumber)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// LoadSeed reads operators and slots and validates them like a seed file.
func LoadSeed(ctx context.Context, repo SlotRepository, region string) (*config.Seed, error) {
	operators, err := repo.ListOperators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	slots, err := repo.ListSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return config.BuildSeed(slots, operators, region)
}
