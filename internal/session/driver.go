// Package session runs one cancel, send, poll exchange against a slot's modem.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simgate/sim-gateway/internal/domain"
	"github.com/simgate/sim-gateway/internal/modem"
	"github.com/simgate/sim-gateway/internal/ussd"
)

// Fixed outcome messages.
const (
	MsgTimeout    = "USSD session timed out"
	MsgStuck      = "stuck in processing"
	MsgNoService  = "no network service"
	MsgConnection = "modem unreachable"
	MsgFetch      = "failed to read USSD response"
	MsgCancelled  = "session cancelled"
)

// Config bounds every phase of a session.
type Config struct {
	CancelTimeout   time.Duration
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxPollErrors   int
}

// DefaultConfig returns the recommended bounds: 5s send, 1s cadence, 20
// polls and 3 consecutive poll transport failures.
func DefaultConfig() Config {
	return Config{
		CancelTimeout:   3 * time.Second,
		RequestTimeout:  5 * time.Second,
		PollInterval:    time.Second,
		MaxPollAttempts: 20,
		MaxPollErrors:   3,
	}
}

// Deadline is the implicit upper bound of one session.
func (c Config) Deadline() time.Duration {
	return c.CancelTimeout + c.RequestTimeout + time.Duration(c.MaxPollAttempts)*(c.PollInterval+c.RequestTimeout) + c.RequestTimeout
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CancelTimeout <= 0 {
		c.CancelTimeout = def.CancelTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = def.MaxPollAttempts
	}
	if c.MaxPollErrors <= 0 {
		c.MaxPollErrors = def.MaxPollErrors
	}
	return c
}

// ModemClient is the control channel of one modem.
type ModemClient interface {
	Cancel(ctx context.Context) error
	Send(ctx context.Context, code string) error
	PollFlag(ctx context.Context) (modem.Flag, error)
	FetchData(ctx context.Context) (modem.DataInfo, error)
}

// ClientFactory builds a ModemClient for a slot endpoint.
type ClientFactory func(endpoint string) ModemClient

// HTTPClientFactory returns a factory sharing one http.Client across modems.
func HTTPClientFactory(httpClient *http.Client) ClientFactory {
	return func(endpoint string) ModemClient {
		return modem.NewClient(endpoint, httpClient)
	}
}

// State is a step of the session state machine.
type State int

const (
	StateIdle State = iota
	StateCancelling
	StateSending
	StatePolling
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCancelling:
		return "cancelling"
	case StateSending:
		return "sending"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Result is the outcome of Execute and whether the code reached the modem.
type Result struct {
	Outcome domain.UssdOutcome
	Sent    bool
}

// Driver executes sessions. It holds no per-slot state and is safe for
// concurrent use across slots.
type Driver struct {
	cfg       Config
	newClient ClientFactory
	logger    *zap.Logger
	now       func() time.Time
}

// NewDriver builds a Driver.
func NewDriver(cfg Config, newClient ClientFactory, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		cfg:       cfg.withDefaults(),
		newClient: newClient,
		logger:    logger,
		now:       time.Now,
	}
}

// Config returns the effective bounds.
func (d *Driver) Config() Config {
	return d.cfg
}

type run struct {
	d       *Driver
	client  ModemClient
	code    string
	logger  *zap.Logger
	outcome domain.UssdOutcome
	sent    bool
}

// Execute runs one session against slot. Operational failures are reported
// in the outcome, never as errors.
func (d *Driver) Execute(ctx context.Context, slot domain.SimSlot, code string) Result {
	r := &run{
		d:      d,
		client: d.newClient(slot.Endpoint),
		code:   code,
		logger: d.logger.With(zap.Int("slot", slot.SlotNumber), zap.String("operator", slot.Operator)),
		outcome: domain.UssdOutcome{
			ID:          uuid.NewString(),
			SlotNumber:  slot.SlotNumber,
			Operator:    slot.Operator,
			Code:        code,
			FailureKind: domain.FailureUnknown,
			StartedAt:   d.now(),
		},
	}

	state := StateCancelling
	for state != StateSucceeded && state != StateFailed {
		r.logger.Debug("ussd session state", zap.Stringer("state", state))
		switch state {
		case StateCancelling:
			state = r.cancel(ctx)
		case StateSending:
			state = r.send(ctx)
		case StatePolling:
			state = r.poll(ctx)
		default:
			state = r.fail(domain.FailureUnknown, "invalid session state")
		}
	}
	r.outcome.FinishedAt = d.now()

	r.logger.Info("ussd session finished",
		zap.Bool("success", r.outcome.Success),
		zap.String("failure_kind", string(r.outcome.FailureKind)),
		zap.Duration("duration", r.outcome.Duration()))
	return Result{Outcome: r.outcome, Sent: r.sent}
}

// cancel is best effort: any failure is logged and the session moves on.
func (r *run) cancel(ctx context.Context) State {
	cctx, cancel := context.WithTimeout(ctx, r.d.cfg.CancelTimeout)
	defer cancel()
	if err := r.client.Cancel(cctx); err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		r.logger.Warn("stale session cancel failed", zap.Error(err))
	}
	return StateSending
}

func (r *run) send(ctx context.Context) State {
	sctx, cancel := context.WithTimeout(ctx, r.d.cfg.RequestTimeout)
	defer cancel()
	r.sent = true
	if err := r.client.Send(sctx, r.code); err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		r.logger.Warn("ussd send failed", zap.Error(err))
		return r.fail(domain.FailureConnectionError, fmt.Sprintf("%s: %v", MsgConnection, err))
	}
	return StatePolling
}

func (r *run) poll(ctx context.Context) State {
	timer := time.NewTimer(r.d.cfg.PollInterval)
	defer timer.Stop()

	consecutiveErrors := 0
	for attempt := 1; attempt <= r.d.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return r.cancelled(ctx)
		case <-timer.C:
		}
		timer.Reset(r.d.cfg.PollInterval)

		flag, err := r.pollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r.cancelled(ctx)
			}
			consecutiveErrors++
			r.logger.Warn("ussd poll failed",
				zap.Int("attempt", attempt),
				zap.Int("consecutive_errors", consecutiveErrors),
				zap.Error(err))
			if consecutiveErrors >= r.d.cfg.MaxPollErrors {
				return r.fail(domain.FailureConnectionError, fmt.Sprintf("%s: %v", MsgConnection, err))
			}
			continue
		}
		consecutiveErrors = 0
		r.logger.Debug("ussd poll", zap.Int("attempt", attempt), zap.Stringer("flag", flag))

		switch flag.Kind {
		case modem.FlagComplete:
			return r.fetch(ctx)
		case modem.FlagNoService:
			return r.fail(domain.FailureNoService, MsgNoService)
		case modem.FlagTimeout, modem.FlagUnknown:
			return r.fail(domain.FailureTimeout, MsgTimeout)
		case modem.FlagUnrecognized:
			r.logger.Warn("unrecognized ussd flag", zap.String("flag", flag.Raw))
			return r.fail(domain.FailureTimeout, MsgTimeout)
		}
	}
	return r.fail(domain.FailureTimeout, MsgStuck)
}

func (r *run) pollOnce(ctx context.Context) (modem.Flag, error) {
	pctx, cancel := context.WithTimeout(ctx, r.d.cfg.RequestTimeout)
	defer cancel()
	return r.client.PollFlag(pctx)
}

func (r *run) fetch(ctx context.Context) State {
	fctx, cancel := context.WithTimeout(ctx, r.d.cfg.RequestTimeout)
	defer cancel()
	info, err := r.client.FetchData(fctx)
	if err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		return r.fail(domain.FailureConnectionError, fmt.Sprintf("%s: %v", MsgFetch, err))
	}
	raw := info.Data
	r.outcome.RawPayload = &raw
	r.outcome.DecodedMessage = ussd.Decode(raw)
	r.outcome.Success = true
	r.outcome.FailureKind = domain.FailureNone
	return StateSucceeded
}

func (r *run) cancelled(ctx context.Context) State {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return r.fail(domain.FailureTimeout, MsgTimeout)
	}
	return r.fail(domain.FailureTimeout, fmt.Sprintf("%s: %v", MsgCancelled, err))
}

func (r *run) fail(kind domain.FailureKind, message string) State {
	r.outcome.Success = false
	r.outcome.FailureKind = kind
	r.outcome.DecodedMessage = message
	return StateFailed
}
