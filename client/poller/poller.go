package poller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"flowLedger/client/dto"
	"flowLedger/client/models"
)

const (
	DefaultPollInterval = 1500 * time.Millisecond
	DefaultTimeout      = 10 * time.Minute
	DefaultRetryBackoff = 500 * time.Millisecond
)

// FetchFunc reads one status snapshot for a task, usually a GET on the
// backend's task endpoint.
type FetchFunc[T any] func(ctx context.Context, taskID string) (*dto.TaskStatus[T], error)

type Config struct {
	PollInterval time.Duration
	Timeout      time.Duration

	// FetchRetries is how many times a failed fetch is repeated before the
	// error is returned. Zero returns fetch errors unchanged on first failure.
	FetchRetries int
	RetryBackoff time.Duration
	// Retryable limits which fetch errors are retried. Nil retries any error
	// that is not a context error.
	Retryable func(error) bool
}

func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultTimeout,
		RetryBackoff: DefaultRetryBackoff,
	}
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.FetchRetries < 0 {
		c.FetchRetries = 0
	}
	return c
}

// Poller turns a create-then-poll backend workflow into one blocking call.
// A Poller holds no per-task state, so one value can serve any number of
// concurrent Wait calls.
type Poller[T any] struct {
	cfg      Config
	logger   *zap.Logger
	observer func(*dto.TaskStatus[T])

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New[T any](cfg Config, logger *zap.Logger) *Poller[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller[T]{
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// WithObserver registers fn to receive every snapshot in fetch order.
func (p *Poller[T]) WithObserver(fn func(*dto.TaskStatus[T])) *Poller[T] {
	p.observer = fn
	return p
}

// Wait polls taskID until it succeeds, fails, or the timeout elapses.
//
// On success the final snapshot is returned as is, even if its Result is
// nil. A failed task yields *FailedError[T] and an exhausted budget yields
// *TimeoutError[T]. Errors from fetch are returned unchanged. Cancelling
// ctx stops the loop at the next fetch or sleep and returns ctx.Err().
func (p *Poller[T]) Wait(ctx context.Context, taskID string, fetch FetchFunc[T]) (*dto.TaskStatus[T], error) {
	logger := p.logger.With(zap.String("task_id", taskID))
	start := p.now()

	logger.Debug("Polling task",
		zap.Duration("interval", p.cfg.PollInterval),
		zap.Duration("timeout", p.cfg.Timeout),
	)

	var (
		latest   *dto.TaskStatus[T]
		observed models.TaskStatus
		polls    int
	)

	for p.now().Sub(start) < p.cfg.Timeout {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := p.fetch(ctx, logger, taskID, fetch, start)
		if err != nil {
			logger.Debug("Task status fetch failed", zap.Int("polls", polls), zap.Error(err))
			return nil, err
		}
		polls++
		latest = rec

		if p.observer != nil {
			p.observer(rec)
		}

		if rec.Status != observed {
			logger.Info("Task status changed",
				zap.String("status", string(rec.Status)),
				zap.Float64("progress", rec.Progress),
			)
			observed = rec.Status
		}

		switch rec.Status {
		case models.StatusSucceeded:
			logger.Info("Task succeeded",
				zap.Int("polls", polls),
				zap.Duration("elapsed", p.now().Sub(start)),
			)
			return rec, nil
		case models.StatusFailed:
			failed := &FailedError[T]{Record: rec}
			logger.Warn("Task failed",
				zap.Int("polls", polls),
				zap.String("error", failed.Message()),
			)
			return nil, failed
		}

		if err := p.sleep(ctx, p.cfg.PollInterval); err != nil {
			return nil, err
		}
	}

	elapsed := p.now().Sub(start)
	logger.Warn("Task polling timed out",
		zap.Int("polls", polls),
		zap.Duration("elapsed", elapsed),
	)

	return nil, &TimeoutError[T]{
		TaskID:  taskID,
		Record:  latest,
		Elapsed: elapsed,
		Timeout: p.cfg.Timeout,
	}
}

func (p *Poller[T]) fetch(ctx context.Context, logger *zap.Logger, taskID string, fetch FetchFunc[T], start time.Time) (*dto.TaskStatus[T], error) {
	backoff := p.cfg.RetryBackoff

	for attempt := 0; ; attempt++ {
		rec, err := fetch(ctx, taskID)
		if err == nil {
			if rec == nil {
				return nil, ErrNoStatus
			}
			return rec, nil
		}

		if attempt >= p.cfg.FetchRetries || !p.retryable(err) {
			return nil, err
		}
		if p.now().Sub(start)+backoff >= p.cfg.Timeout {
			return nil, err
		}

		logger.Warn("Retrying task status fetch",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		if serr := p.sleep(ctx, backoff); serr != nil {
			return nil, serr
		}
		backoff *= 2
	}
}

func (p *Poller[T]) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.cfg.Retryable == nil {
		return true
	}
	return p.cfg.Retryable(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
