// Package retry wraps data-access calls with a per-attempt timeout and a
// bounded, linearly growing retry delay.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	dbRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blamebot_db_retries_total",
		Help: "Total number of data-access retry attempts by failure category",
	}, []string{"category"})

	dbRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blamebot_db_retry_backoff_seconds",
		Help:    "Backoff duration before data-access retries by failure category",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"category"})

	dbRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blamebot_db_retry_exhausted_total",
		Help: "Total number of data-access operations that exhausted their retries by failure category",
	}, []string{"category"})

	dbOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blamebot_db_operation_duration_seconds",
		Help:    "Duration of data-access operations including retries",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
	}, []string{"operation"})
)

// Operation is a single data-access call. It may run several times and
// must therefore be safe to repeat.
type Operation[T any] func(ctx context.Context) (T, error)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxRetries is the maximum number of attempts (including the first one).
	MaxRetries int

	// BaseDelay is multiplied by the attempt number to get the delay before the next attempt.
	BaseDelay time.Duration

	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		Timeout:    10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

// linearBackOff yields BaseDelay * n before attempt n+1.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func newLinearBackOff(base time.Duration) *linearBackOff {
	return &linearBackOff{base: base}
}

// NextBackOff implements backoff.BackOff.
func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base * time.Duration(b.attempt)
}

// Reset implements backoff.BackOff.
func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// Execute runs op until it succeeds, fails with a non-retryable error, or
// MaxRetries attempts have been made. Failures are returned as *DataAccessError.
func Execute[T any](ctx context.Context, name string, cfg Config, op Operation[T]) (T, error) {
	cfg = cfg.withDefaults()
	logger := log.With().Str("component", "retry").Str("operation", name).Logger()

	start := time.Now()
	defer func() {
		dbOperationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	var (
		result   T
		attempt  int
		category Category
	)

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newLinearBackOff(cfg.BaseDelay), uint64(cfg.MaxRetries-1)),
		ctx,
	)

	err := backoff.RetryNotify(func() error {
		attempt++

		v, err := runAttempt(ctx, cfg.Timeout, op)
		if err == nil {
			result = v
			return nil
		}

		category = Classify(err)
		if ctx.Err() != nil || !category.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		dbRetriesTotal.WithLabelValues(string(category)).Inc()
		dbRetryBackoffSeconds.WithLabelValues(string(category)).Observe(wait.Seconds())

		logger.Warn().
			Err(err).
			Str("category", string(category)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying operation after backoff")
	})

	if err == nil {
		if attempt > 1 {
			logger.Info().
				Int("attempt", attempt).
				Msg("Operation succeeded after retry")
		}
		return result, nil
	}

	dae := &DataAccessError{
		Op:       name,
		Category: Classify(err),
		Attempts: attempt,
		Err:      err,
	}

	if dae.Category.Retryable() && attempt >= cfg.MaxRetries {
		dbRetryExhaustedTotal.WithLabelValues(string(dae.Category)).Inc()
	}

	logger.Error().
		Err(err).
		Str("category", string(dae.Category)).
		Int("attempts", attempt).
		Msg("Operation failed")

	var zero T
	return zero, dae
}

// runAttempt races op against the per-attempt timeout. The operation is
// abandoned, not awaited, once the timeout fires.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op Operation[T]) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		v, err := op(attemptCtx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-attemptCtx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", ErrAttemptTimeout, timeout)
	}
}

// Executor applies one Config to many operations.
type Executor struct {
	config Config
}

// NewExecutor creates an executor with the given configuration.
func NewExecutor(cfg Config) *Executor {
	return &Executor{config: cfg.withDefaults()}
}

// Config returns the executor's effective configuration.
func (e *Executor) Config() Config {
	return e.config
}

// Do runs an operation without a result value.
func (e *Executor) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, name, e.config, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Run is Execute with the executor's configuration.
func Run[T any](ctx context.Context, e *Executor, name string, op Operation[T]) (T, error) {
	return Execute(ctx, name, e.config, op)
}
