package confirm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"miao-swap/pkg/metrics"
	"miao-swap/pkg/types"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

// Observation is one ledger read for a submission.
type Observation struct {
	State  types.ConfirmationState
	Detail string
}

// StatusSource reads the current ledger status of a submission. A
// submission the ledger has not seen yet is reported as pending.
type StatusSource interface {
	SignatureStatus(ctx context.Context, id types.SubmissionID) (Observation, error)
}

// Sleeper waits between polls. It returns early with ctx.Err() when ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Options struct {
	MaxAttempts int
	Interval    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Confirmer polls a StatusSource until the submission reaches a terminal
// state or the attempt budget is spent.
type Confirmer struct {
	source StatusSource
	sleep  Sleeper
	opts   Options
	logger zerolog.Logger
}

type Option func(*Confirmer)

// WithSleeper replaces the real timer, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Confirmer) {
		c.sleep = s
	}
}

func WithOptions(o Options) Option {
	return func(c *Confirmer) {
		c.opts = o
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Confirmer) {
		c.logger = l
	}
}

func New(source StatusSource, opts ...Option) *Confirmer {
	c := &Confirmer{
		source: source,
		sleep:  Sleep,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.opts = c.opts.withDefaults()
	c.logger = c.logger.With().Str("component", "confirmer").Logger()
	return c
}

// Confirm polls with the configured options.
func (c *Confirmer) Confirm(ctx context.Context, id types.SubmissionID) types.ConfirmationStatus {
	return c.ConfirmWith(ctx, id, c.opts)
}

// ConfirmWith polls at most opts.MaxAttempts times, sleeping opts.Interval
// between polls but never after the last one. It has no error return: a
// transport error consumes an attempt, and a cancelled context ends the loop
// as not-found-after-budget.
func (c *Confirmer) ConfirmWith(ctx context.Context, id types.SubmissionID, opts Options) types.ConfirmationStatus {
	opts = opts.withDefaults()
	logger := c.logger.With().Str("submission", id.String()).Logger()

	attempts := 0
	status := func(state types.ConfirmationState, detail string) types.ConfirmationStatus {
		metrics.ConfirmAttempts.Observe(float64(attempts))
		return types.ConfirmationStatus{State: state, ErrorDetail: detail, Attempts: attempts}
	}

	for attempts < opts.MaxAttempts {
		if attempts > 0 {
			if err := c.sleep(ctx, opts.Interval); err != nil {
				logger.Debug().Err(err).Int("attempts", attempts).Msg("confirmation abandoned")
				return status(types.ConfirmationNotFoundBudget, "")
			}
		}
		attempts++

		obs, err := c.source.SignatureStatus(ctx, id)
		if err != nil {
			metrics.ConfirmPollErrors.Inc()
			logger.Warn().Err(err).Int("attempt", attempts).Msg("status poll failed")
			if ctx.Err() != nil {
				return status(types.ConfirmationNotFoundBudget, "")
			}
			continue
		}

		logger.Debug().Int("attempt", attempts).Str("state", string(obs.State)).Msg("status polled")
		switch obs.State {
		case types.ConfirmationConfirmed:
			return status(types.ConfirmationConfirmed, "")
		case types.ConfirmationFailedOnChain:
			return status(types.ConfirmationFailedOnChain, obs.Detail)
		}
	}

	logger.Info().Int("attempts", attempts).Msg("confirmation budget exhausted")
	return status(types.ConfirmationNotFoundBudget, "")
}
