package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/okxcandles/internal/id"
	"github.com/rustyeddy/okxcandles/internal/logging"
	"github.com/rustyeddy/okxcandles/task"
)

// DefaultCron fires at the top of every hour.
const DefaultCron = "0 * * * *"

// Runner fans one logical time out to every instrument.
type Runner struct {
	inv         Invoker
	instruments []string
	policy      Policy
	spec        string
	log         zerolog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithPolicy(p Policy) RunnerOption { return func(r *Runner) { r.policy = p } }
func WithCron(spec string) RunnerOption { return func(r *Runner) { r.spec = spec } }

func WithLogger(l zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

func NewRunner(inv Invoker, instruments []string, opts ...RunnerOption) *Runner {
	r := &Runner{
		inv:         inv,
		instruments: append([]string(nil), instruments...),
		policy:      DefaultPolicy(),
		spec:        DefaultCron,
		log:         zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RunOnce runs every instrument for logical concurrently and waits for all
// of them. Results are in instrument order.
func (r *Runner) RunOnce(ctx context.Context, logical time.Time) []Result {
	ts := task.FormatLogicalTime(logical)
	results := make([]Result, len(r.instruments))

	if err := task.CheckLogicalTime(logical); err != nil {
		logging.Error(r.log, err, logging.ErrCodeScheduleFailed, "refusing logical time", "ts", ts)
		for i, inst := range r.instruments {
			results[i] = Result{Instrument: inst, TS: ts, Err: err}
		}
		return results
	}
	l := r.log.With().Str("run_id", id.At(logical)).Str("ts", ts).Logger()

	var wg sync.WaitGroup
	for i, inst := range r.instruments {
		wg.Add(1)
		go func(i int, inst string) {
			defer wg.Done()
			results[i] = Invoke(ctx, r.inv, r.policy, l, inst, ts)
			if results[i].Err != nil {
				logging.Error(l, results[i].Err, logging.ErrCodeTaskFailed, "task failed",
					"instrument", inst, "attempts", results[i].Attempts)
			}
		}(i, inst)
	}
	wg.Wait()
	return results
}

// Summary counts outcomes over several runs.
type Summary struct {
	Runs    int
	Success int
	NoData  int
	Failed  int
}

func (s *Summary) add(results []Result) {
	s.Runs++
	for _, res := range results {
		switch {
		case res.Err != nil:
			s.Failed++
		case res.Outcome == task.NoData:
			s.NoData++
		default:
			s.Success++
		}
	}
}

// Backfill replays every logical time from, from+step, ... before to, one
// after the other. It stops early only when ctx ends.
func (r *Runner) Backfill(ctx context.Context, from, to time.Time, step time.Duration) (Summary, error) {
	if step <= 0 {
		return Summary{}, fmt.Errorf("schedule: backfill step must be positive")
	}
	return r.backfill(ctx, from.UTC(), to, func(t time.Time) time.Time { return t.Add(step) })
}

// BackfillSchedule replays the fire times of the runner's cron spec that
// fall in [from, to), so uneven schedules keep their own spacing.
func (r *Runner) BackfillSchedule(ctx context.Context, from, to time.Time) (Summary, error) {
	sched, err := Parse(r.spec)
	if err != nil {
		return Summary{}, err
	}
	from = from.UTC()
	first := sched.Next(from.Truncate(time.Second).Add(-time.Second))
	if first.Before(from) {
		first = sched.Next(first)
	}
	return r.backfill(ctx, first, to, sched.Next)
}

func (r *Runner) backfill(ctx context.Context, from, to time.Time, next func(time.Time) time.Time) (Summary, error) {
	var sum Summary
	if err := task.CheckLogicalTime(from); err != nil {
		return sum, err
	}
	if from.IsZero() || !from.Before(to) {
		return sum, fmt.Errorf("schedule: backfill from %s is not before %s", from, to)
	}

	for ts := from; ts.Before(to); ts = next(ts) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.add(r.RunOnce(ctx, ts))
	}

	r.log.Info().
		Int("runs", sum.Runs).
		Int("success", sum.Success).
		Int("no_data", sum.NoData).
		Int("failed", sum.Failed).
		Msg("backfill done")
	return sum, nil
}

// Parse reads a standard five-field cron spec or a descriptor like @hourly.
func Parse(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule: bad cron %q: %w", spec, err)
	}
	return sched, nil
}

// maxLookback bounds the search for an earlier fire time.
const maxLookback = 5 * 366 * 24 * time.Hour

// previous is the latest fire time of sched strictly before t.
func previous(sched cron.Schedule, t time.Time) (time.Time, bool) {
	for w := time.Minute; w < 2*maxLookback; w *= 2 {
		cur := sched.Next(t.Add(-w - time.Second))
		if cur.IsZero() || !cur.Before(t) {
			continue
		}
		for {
			n := sched.Next(cur)
			if n.IsZero() || !n.Before(t) {
				return cur, true
			}
			cur = n
		}
	}
	return time.Time{}, false
}

// Previous is the latest fire time of spec strictly before t.
func Previous(spec string, t time.Time) (time.Time, error) {
	sched, err := Parse(spec)
	if err != nil {
		return time.Time{}, err
	}
	prev, ok := previous(sched, t.UTC())
	if !ok {
		return time.Time{}, fmt.Errorf("schedule: %q has no fire time before %s", spec, t)
	}
	return prev, nil
}

// LogicalTime is the start of the interval that ends at the latest fire
// time at or before fire, i.e. the fire before that one.
func LogicalTime(spec string, fire time.Time) (time.Time, error) {
	sched, err := Parse(spec)
	if err != nil {
		return time.Time{}, err
	}
	t := fire.UTC().Truncate(time.Second)

	last := sched.Next(t.Add(-time.Second))
	if !last.Equal(t) {
		var ok bool
		if last, ok = previous(sched, t); !ok {
			return time.Time{}, fmt.Errorf("schedule: %q has no fire time before %s", spec, fire)
		}
	}
	logical, ok := previous(sched, last)
	if !ok {
		return time.Time{}, fmt.Errorf("schedule: %q has no fire time before %s", spec, last)
	}
	return logical, nil
}

// Start runs the schedule until ctx ends, then waits for running tasks.
func (r *Runner) Start(ctx context.Context) error {
	sched, err := Parse(r.spec)
	if err != nil {
		return err
	}

	c := cron.New(cron.WithLocation(time.UTC))
	c.Schedule(sched, cron.FuncJob(func() {
		logical, err := LogicalTime(r.spec, time.Now())
		if err != nil {
			logging.Error(r.log, err, logging.ErrCodeScheduleFailed, "cannot compute logical time")
			return
		}
		r.RunOnce(ctx, logical)
	}))

	r.log.Info().Str("cron", r.spec).Strs("instruments", r.instruments).Msg("scheduler started")
	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	r.log.Info().Msg("scheduler stopped")
	return nil
}
