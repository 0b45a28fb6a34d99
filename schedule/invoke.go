// Package schedule triggers tasks: once, on a cron schedule, or over a past
// range of logical times. It owns the retry count and the per-attempt
// timeout; the tasks themselves never retry.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/okxcandles/internal/logging"
	"github.com/rustyeddy/okxcandles/task"
)

// Invoker runs one task for one instrument and logical time.
type Invoker interface {
	Run(ctx context.Context, instrumentID, ts string) (task.Outcome, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, instrumentID, ts string) (task.Outcome, error)

func (f InvokerFunc) Run(ctx context.Context, instrumentID, ts string) (task.Outcome, error) {
	return f(ctx, instrumentID, ts)
}

// Policy bounds how a task is retried.
type Policy struct {
	Attempts   int           // total tries, at least 1
	Timeout    time.Duration // per attempt, 0 for none
	RetryDelay time.Duration // pause between attempts
}

// DefaultPolicy is three attempts of ten seconds each.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Timeout: 10 * time.Second, RetryDelay: time.Second}
}

// Result is the final state of one instrument for one logical time.
type Result struct {
	Instrument string
	TS         string
	Outcome    task.Outcome
	Attempts   int
	Err        error
}

// Invoke runs inv under p and returns the first successful outcome or the
// last error.
func Invoke(ctx context.Context, inv Invoker, p Policy, log zerolog.Logger, instrument, ts string) Result {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	res := Result{Instrument: instrument, TS: ts}
	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt

		out, err := runAttempt(ctx, inv, p.Timeout, instrument, ts)
		if err == nil {
			res.Outcome, res.Err = out, nil
			log.Info().
				Str("instrument", instrument).
				Str("ts", ts).
				Int("attempt", attempt).
				Str("outcome", string(out)).
				Msg("task finished")
			return res
		}

		res.Err = err
		logging.Error(log, err, logging.ErrCodeTaskAttemptFailed, "task attempt failed",
			"instrument", instrument, "ts", ts, "attempt", attempt, "attempts", attempts)

		if attempt == attempts || ctx.Err() != nil {
			break
		}
		if p.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return res
			case <-time.After(p.RetryDelay):
			}
		}
	}
	return res
}

type attemptResult struct {
	out task.Outcome
	err error
}

// runAttempt gives up at the deadline even if inv does not watch ctx.
func runAttempt(ctx context.Context, inv Invoker, timeout time.Duration, instrument, ts string) (task.Outcome, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan attemptResult, 1)
	go func() {
		out, err := inv.Run(ctx, instrument, ts)
		done <- attemptResult{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		select {
		case r := <-done:
			return r.out, r.err
		default:
		}
		return "", fmt.Errorf("task %s at %s: %w", instrument, ts, ctx.Err())
	}
}
