package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/simgate/sim-gateway/internal/config"
	"github.com/simgate/sim-gateway/internal/domain"
	"github.com/simgate/sim-gateway/internal/events"
	"github.com/simgate/sim-gateway/internal/repository"
)

// OutcomePublisher is the subset of *redis.Client the outcome consumers use.
type OutcomePublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// OutcomeService consumes gateway events: it logs them, records transactions,
// mirrors slot state to Postgres and fans outcomes out over Redis.
type OutcomeService struct {
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	cfg          config.EventsConfig
	publisher    OutcomePublisher
	transactions repository.TransactionRepository
	slots        repository.SlotRepository
}

// OutcomeDependencies bundles collaborators for the outcome service. Nil
// collaborators disable the matching consumer.
type OutcomeDependencies struct {
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Config       config.EventsConfig
	Publisher    OutcomePublisher
	Transactions repository.TransactionRepository
	Slots        repository.SlotRepository
}

// NewOutcomeService creates the service.
func NewOutcomeService(deps OutcomeDependencies) *OutcomeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeService{
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		cfg:          deps.Config,
		publisher:    deps.Publisher,
		transactions: deps.Transactions,
		slots:        deps.Slots,
	}
}

// RegisterHandlers subscribes to events.
func (o *OutcomeService) RegisterHandlers() {
	if o.dispatcher == nil {
		return
	}
	o.dispatcher.Subscribe(events.EventUssdCompleted, o.handleUssdCompleted)
	o.dispatcher.Subscribe(events.EventSlotStatusChanged, o.handleSlotStatusChanged)
}

// BalanceKey is the Redis key holding the last known balance of a slot.
func BalanceKey(slotNumber int) string {
	return fmt.Sprintf("sim:slot:%d:balance", slotNumber)
}

func (o *OutcomeService) handleUssdCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UssdCompletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	outcome := payload.Outcome
	o.logger.Info("UssdCompleted",
		zap.String("event_id", event.ID),
		zap.String("outcome_id", outcome.ID),
		zap.Int("slot", outcome.SlotNumber),
		zap.String("operator", outcome.Operator),
		zap.Bool("success", outcome.Success),
		zap.String("failure_kind", string(outcome.FailureKind)),
		zap.Duration("duration", outcome.Duration()))

	var errs []error
	if o.transactions != nil && o.cfg.RecordOutcomes {
		if err := o.transactions.Create(ctx, transactionFromOutcome(outcome, payload.Amount)); err != nil {
			errs = append(errs, fmt.Errorf("record transaction: %w", err))
		}
	}
	if o.publisher != nil && o.cfg.PublishOutcomes {
		body, err := json.Marshal(event)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode outcome: %w", err))
		} else if err := o.publisher.Publish(ctx, o.cfg.OutcomeChannel, body).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish outcome: %w", err))
		}
	}
	if payload.Amount != nil {
		errs = append(errs, o.storeBalance(ctx, outcome.SlotNumber, *payload.Amount))
	}
	return errors.Join(errs...)
}

func (o *OutcomeService) storeBalance(ctx context.Context, slotNumber int, balance float64) error {
	var errs []error
	if o.publisher != nil {
		value := strconv.FormatFloat(balance, 'f', 2, 64)
		if err := o.publisher.Set(ctx, BalanceKey(slotNumber), value, o.cfg.BalanceKeyTTL).Err(); err != nil {
			errs = append(errs, fmt.Errorf("cache balance: %w", err))
		}
	}
	if o.slots != nil {
		if err := o.slots.UpdateBalance(ctx, slotNumber, balance); err != nil {
			errs = append(errs, fmt.Errorf("store balance: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (o *OutcomeService) handleSlotStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SlotStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	o.logger.Info("SlotStatusChanged",
		zap.Int("slot", event.SlotNumber),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)),
		zap.Bool("deferred", payload.Deferred))
	if o.slots == nil {
		return nil
	}
	if err := o.slots.UpdateStatus(ctx, event.SlotNumber, payload.NewStatus); err != nil {
		return fmt.Errorf("store slot status: %w", err)
	}
	return nil
}

func transactionFromOutcome(outcome domain.UssdOutcome, amount *float64) *domain.UssdTransaction {
	return &domain.UssdTransaction{
		ID:             outcome.ID,
		SlotNumber:     outcome.SlotNumber,
		Operator:       outcome.Operator,
		Code:           outcome.Code,
		Success:        outcome.Success,
		FailureKind:    outcome.FailureKind,
		RawPayload:     outcome.RawPayload,
		DecodedMessage: outcome.DecodedMessage,
		Amount:         amount,
		StartedAt:      outcome.StartedAt,
		FinishedAt:     outcome.FinishedAt,
	}
}
