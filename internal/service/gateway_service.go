package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simgate/sim-gateway/internal/config"
	"github.com/simgate/sim-gateway/internal/domain"
	"github.com/simgate/sim-gateway/internal/events"
	"github.com/simgate/sim-gateway/internal/observability"
	"github.com/simgate/sim-gateway/internal/registry"
	"github.com/simgate/sim-gateway/internal/scheduler"
	"github.com/simgate/sim-gateway/internal/session"
	"github.com/simgate/sim-gateway/internal/ussd"
)

// MsgInternal is the outcome message of a session that faulted internally.
const MsgInternal = "internal gateway error"

// SessionExecutor runs one USSD session on an acquired slot.
type SessionExecutor interface {
	Execute(ctx context.Context, slot domain.SimSlot, code string) session.Result
}

// GatewayService is the single entry point for USSD work on the slot pool.
type GatewayService struct {
	registry   *registry.Registry
	scheduler  *scheduler.Scheduler
	executor   SessionExecutor
	operators  map[string]domain.OperatorProfile
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	region     string
	now        func() time.Time
}

// GatewayDependencies bundles collaborators for the gateway service.
type GatewayDependencies struct {
	Registry   *registry.Registry
	Scheduler  *scheduler.Scheduler
	Executor   SessionExecutor
	Operators  map[string]domain.OperatorProfile
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Region     string
}

// TransferInput describes a balance transfer to another subscriber.
type TransferInput struct {
	Selector  domain.SlotSelector
	Recipient string
	Amount    float64
	PIN       string
}

// BalanceResult is the outcome of a balance check and the amount read from it.
type BalanceResult struct {
	Outcome *domain.UssdOutcome
	Balance *float64
}

// NewGatewayService wires the gateway.
func NewGatewayService(deps GatewayDependencies) *GatewayService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	operators := make(map[string]domain.OperatorProfile, len(deps.Operators))
	for name, profile := range deps.Operators {
		operators[strings.ToLower(name)] = profile
	}
	sched := deps.Scheduler
	if sched == nil {
		sched = scheduler.New(deps.Registry)
	}
	return &GatewayService{
		registry:   deps.Registry,
		scheduler:  sched,
		executor:   deps.Executor,
		operators:  operators,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		region:     deps.Region,
		now:        time.Now,
	}
}

// ListSlots returns every slot in slot-number order.
func (g *GatewayService) ListSlots() []domain.SimSlot {
	return g.registry.List()
}

// GetSlot returns one slot.
func (g *GatewayService) GetSlot(slotNumber int) (domain.SimSlot, error) {
	return g.registry.Get(slotNumber)
}

// SetSlotStatus applies an operator-level status change, for example clearing
// a slot out of error. A busy slot takes the status when its session ends.
func (g *GatewayService) SetSlotStatus(ctx context.Context, slotNumber int, status domain.SlotStatus) (domain.SimSlot, error) {
	before, err := g.registry.Get(slotNumber)
	if err != nil {
		return domain.SimSlot{}, err
	}
	after, err := g.registry.SetStatus(slotNumber, status)
	if err != nil {
		return domain.SimSlot{}, err
	}
	deferred := after.Status == domain.SlotStatusBusy
	g.logger.Info("slot status changed",
		zap.Int("slot", slotNumber),
		zap.String("old_status", string(before.Status)),
		zap.String("new_status", string(status)),
		zap.Bool("deferred", deferred))
	g.publish(ctx, events.NewEvent(events.EventSlotStatusChanged, slotNumber, g.now(), events.SlotStatusChangedPayload{
		OldStatus: before.Status,
		NewStatus: status,
		Deferred:  deferred,
	}))
	return after, nil
}

// SendUSSD runs one session and returns its outcome. Operational failures,
// including a busy or missing candidate slot, are reported in the outcome.
// Only malformed input and unknown pinned slots are returned as errors, and
// in that case no slot has been touched.
func (g *GatewayService) SendUSSD(ctx context.Context, req domain.UssdSessionRequest) (*domain.UssdOutcome, error) {
	code := strings.TrimSpace(req.Code)
	if err := ussd.ValidateCode(code); err != nil {
		return nil, err
	}
	if req.Selector.SlotNumber < 0 {
		return nil, fmt.Errorf("%w: slot number must be positive", domain.ErrMalformedRequest)
	}
	if req.Selector.Pinned() {
		if _, err := g.pinnedSlot(req.Selector); err != nil {
			return nil, err
		}
	}

	lease, err := g.scheduler.Acquire(ctx, req.Selector)
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) || errors.Is(err, domain.ErrNoSlotAvailable) {
			outcome := g.busyOutcome(req.Selector, code, err)
			g.finish(ctx, &outcome, nil)
			return &outcome, nil
		}
		return nil, err
	}

	outcome := g.execute(ctx, lease, code)
	var amount *float64
	if outcome.Success && g.isBalanceCode(outcome.Operator, code) {
		if found, ok := ussd.ExtractAmount(outcome.DecodedMessage); ok {
			value := found.Value
			amount = &value
			g.registry.RecordBalance(outcome.SlotNumber, value)
		}
	}
	g.finish(ctx, &outcome, amount)
	return &outcome, nil
}

// CheckBalance dials the operator balance code on the selected slot.
func (g *GatewayService) CheckBalance(ctx context.Context, selector domain.SlotSelector) (*BalanceResult, error) {
	profile, err := g.profileFor(selector)
	if err != nil {
		return nil, err
	}
	if profile.BalanceCode == "" {
		return nil, fmt.Errorf("%w: operator %s has no balance code", domain.ErrMalformedRequest, profile.Name)
	}
	outcome, err := g.SendUSSD(ctx, domain.UssdSessionRequest{Selector: selector, Code: profile.BalanceCode})
	if err != nil {
		return nil, err
	}
	result := &BalanceResult{Outcome: outcome}
	if outcome.Success {
		if found, ok := ussd.ExtractAmount(outcome.DecodedMessage); ok {
			value := found.Value
			result.Balance = &value
		}
	}
	return result, nil
}

// Transfer sends credit to a recipient using the operator transfer template.
func (g *GatewayService) Transfer(ctx context.Context, input TransferInput) (*domain.UssdOutcome, error) {
	profile, err := g.profileFor(input.Selector)
	if err != nil {
		return nil, err
	}
	pin := strings.TrimSpace(input.PIN)
	if !isDigits(pin) {
		return nil, fmt.Errorf("%w: pin must be numeric", domain.ErrMalformedRequest)
	}
	recipient, err := config.NationalPhone(input.Recipient, g.region)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRequest, err)
	}
	code, err := ussd.RenderTransfer(profile.TransferTemplate, input.Amount, recipient, pin)
	if err != nil {
		return nil, err
	}
	g.logger.Info("transfer requested",
		zap.String("operator", profile.Name),
		zap.String("recipient", recipient),
		zap.String("code", ussd.MaskCode(code)))
	return g.SendUSSD(ctx, domain.UssdSessionRequest{Selector: input.Selector, Code: code})
}

// execute runs the session and releases the lease on every exit path,
// including a panic inside the executor.
func (g *GatewayService) execute(ctx context.Context, lease *scheduler.Lease, code string) (outcome domain.UssdOutcome) {
	started := g.now()
	sent := false
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("ussd session panicked",
				zap.Int("slot", lease.Slot.SlotNumber),
				zap.Any("panic", r))
			outcome = domain.UssdOutcome{
				ID:             uuid.NewString(),
				SlotNumber:     lease.Slot.SlotNumber,
				Operator:       lease.Slot.Operator,
				Code:           code,
				DecodedMessage: MsgInternal,
				FailureKind:    domain.FailureUnknown,
				StartedAt:      started,
				FinishedAt:     g.now(),
			}
			sent = true
		}
		usage := 0
		if sent {
			usage = 1
		}
		lease.Release(usage)
		g.metrics.SetBusySlots(g.registry.BusyCount())
	}()

	g.metrics.SetBusySlots(g.registry.BusyCount())
	result := g.executor.Execute(ctx, lease.Slot, code)
	sent = result.Sent
	return result.Outcome
}

func (g *GatewayService) busyOutcome(selector domain.SlotSelector, code string, cause error) domain.UssdOutcome {
	now := g.now()
	outcome := domain.UssdOutcome{
		ID:             uuid.NewString(),
		SlotNumber:     selector.SlotNumber,
		Operator:       selector.Operator,
		Code:           code,
		DecodedMessage: cause.Error(),
		FailureKind:    domain.FailureBusySlot,
		StartedAt:      now,
		FinishedAt:     now,
	}
	if selector.Pinned() {
		if slot, err := g.registry.Get(selector.SlotNumber); err == nil {
			outcome.Operator = slot.Operator
		}
	}
	return outcome
}

// finish masks the dialled PIN and hands the outcome to metrics and consumers.
func (g *GatewayService) finish(ctx context.Context, outcome *domain.UssdOutcome, amount *float64) {
	outcome.Code = ussd.MaskCode(outcome.Code)
	g.metrics.RecordSession(outcome)
	g.publish(ctx, events.NewEvent(events.EventUssdCompleted, outcome.SlotNumber, g.now(), events.UssdCompletedPayload{
		Outcome: *outcome,
		Amount:  amount,
	}))
}

func (g *GatewayService) publish(ctx context.Context, event events.Event) {
	if g.dispatcher == nil {
		return
	}
	if err := g.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		g.logger.Warn("event consumers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// profileFor resolves the operator profile a selector dials through: the
// pinned slot's operator, or the operator named by a logical selector.
func (g *GatewayService) profileFor(selector domain.SlotSelector) (domain.OperatorProfile, error) {
	operator := selector.Operator
	if selector.Pinned() {
		slot, err := g.pinnedSlot(selector)
		if err != nil {
			return domain.OperatorProfile{}, err
		}
		operator = slot.Operator
	}
	if operator == "" {
		return domain.OperatorProfile{}, fmt.Errorf("%w: slot or operator required", domain.ErrMalformedRequest)
	}
	profile, ok := g.operators[strings.ToLower(operator)]
	if !ok {
		return domain.OperatorProfile{}, fmt.Errorf("%w: unknown operator %q", domain.ErrMalformedRequest, operator)
	}
	return profile, nil
}

// pinnedSlot looks up a pinned slot. An operator named alongside the slot
// number must match the slot's operator.
func (g *GatewayService) pinnedSlot(selector domain.SlotSelector) (domain.SimSlot, error) {
	slot, err := g.registry.Get(selector.SlotNumber)
	if err != nil {
		return domain.SimSlot{}, err
	}
	if selector.Operator != "" && !strings.EqualFold(selector.Operator, slot.Operator) {
		return domain.SimSlot{}, fmt.Errorf("%w: slot %d belongs to %s, not %s",
			domain.ErrMalformedRequest, slot.SlotNumber, slot.Operator, selector.Operator)
	}
	return slot, nil
}

func (g *GatewayService) isBalanceCode(operator, code string) bool {
	profile, ok := g.operators[strings.ToLower(operator)]
	return ok && profile.BalanceCode != "" && profile.BalanceCode == code
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
