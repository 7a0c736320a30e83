package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/simgate/sim-gateway/internal/domain"
	"github.com/simgate/sim-gateway/internal/repository"
)

// ErrHistoryDisabled is returned when no transaction store is configured.
var ErrHistoryDisabled = errors.New("transaction history is not configured")

// TransactionService reads recorded USSD outcomes.
type TransactionService struct {
	transactions repository.TransactionRepository
}

// NewTransactionService creates the service. A nil repository disables it.
func NewTransactionService(transactions repository.TransactionRepository) *TransactionService {
	return &TransactionService{transactions: transactions}
}

// ListRecent returns the newest transactions, optionally for one slot.
func (s *TransactionService) ListRecent(ctx context.Context, slotNumber *int, limit int) ([]domain.UssdTransaction, error) {
	if s.transactions == nil {
		return nil, ErrHistoryDisabled
	}
	if slotNumber != nil && *slotNumber < 1 {
		return nil, fmt.Errorf("%w: slot number must be positive", domain.ErrMalformedRequest)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrMalformedRequest)
	}
	return s.transactions.ListRecent(ctx, repository.TransactionFilter{SlotNumber: slotNumber, Limit: limit})
}
