package schedule

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/okxcandles/task"
)

type call struct {
	instrument string
	ts         string
	deadline   bool
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	fn    func(n int, instrument string) (task.Outcome, error)
	n     int32
}

func (r *recorder) Run(ctx context.Context, instrument, ts string) (task.Outcome, error) {
	_, ok := ctx.Deadline()
	r.mu.Lock()
	r.calls = append(r.calls, call{instrument, ts, ok})
	r.mu.Unlock()

	n := int(atomic.AddInt32(&r.n, 1))
	if r.fn != nil {
		return r.fn(n, instrument)
	}
	return task.Success, nil
}

func TestInvokeRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	rec := &recorder{fn: func(n int, _ string) (task.Outcome, error) {
		if n < 3 {
			return "", errors.New("flaky")
		}
		return task.Success, nil
	}}

	res := Invoke(context.Background(), rec, Policy{Attempts: 3, Timeout: time.Second}, zerolog.Nop(), "BTC-USDT", "2023-01-01T00:00:00+00:00")
	require.NoError(t, res.Err)
	assert.Equal(t, task.Success, res.Outcome)
	assert.Equal(t, 3, res.Attempts)

	require.Len(t, rec.calls, 3)
	for _, c := range rec.calls {
		assert.True(t, c.deadline)
	}
}

func TestInvokeGivesUp(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	rec := &recorder{fn: func(int, string) (task.Outcome, error) { return "", boom }}

	res := Invoke(context.Background(), rec, Policy{Attempts: 3}, zerolog.Nop(), "BTC-USDT", "ts")
	require.ErrorIs(t, res.Err, boom)
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, rec.calls, 3)
}

func TestInvokeNoDataIsNotRetried(t *testing.T) {
	t.Parallel()

	rec := &recorder{fn: func(int, string) (task.Outcome, error) { return task.NoData, nil }}

	res := Invoke(context.Background(), rec, DefaultPolicy(), zerolog.Nop(), "BTC-USDT", "ts")
	require.NoError(t, res.Err)
	assert.Equal(t, task.NoData, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
}

func TestInvokeTimeout(t *testing.T) {
	t.Parallel()

	// ignores ctx on purpose
	stuck := InvokerFunc(func(ctx context.Context, _, _ string) (task.Outcome, error) {
		time.Sleep(200 * time.Millisecond)
		return task.Success, nil
	})

	start := time.Now()
	res := Invoke(context.Background(), stuck, Policy{Attempts: 2, Timeout: 20 * time.Millisecond}, zerolog.Nop(), "BTC-USDT", "ts")
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, 2, res.Attempts)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestInvokeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{fn: func(int, string) (task.Outcome, error) {
		cancel()
		return "", errors.New("down")
	}}

	res := Invoke(ctx, rec, Policy{Attempts: 5, RetryDelay: time.Hour}, zerolog.Nop(), "BTC-USDT", "ts")
	require.Error(t, res.Err)
	assert.Equal(t, 1, res.Attempts)
}

func TestRunOnceFansOut(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	rec := &recorder{fn: func(_ int, inst string) (task.Outcome, error) {
		switch inst {
		case "ETH-USDT":
			return task.NoData, nil
		case "DOGE-USDT":
			return "", boom
		}
		return task.Success, nil
	}}

	r := NewRunner(rec, []string{"BTC-USDT", "ETH-USDT", "DOGE-USDT"}, WithPolicy(Policy{Attempts: 1}))
	logical := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	results := r.RunOnce(context.Background(), logical)

	require.Len(t, results, 3)
	assert.Equal(t, "BTC-USDT", results[0].Instrument)
	assert.Equal(t, task.Success, results[0].Outcome)
	assert.Equal(t, task.NoData, results[1].Outcome)
	assert.ErrorIs(t, results[2].Err, boom)

	for _, c := range rec.calls {
		assert.Equal(t, "2023-01-01T00:00:00+00:00", c.ts)
	}
}

func TestBackfill(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := NewRunner(rec, []string{"BTC-USDT", "ETH-USDT"}, WithPolicy(Policy{Attempts: 1}))

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	sum, err := r.Backfill(context.Background(), from, from.Add(3*time.Hour), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, Summary{Runs: 3, Success: 6}, sum)

	var seen []string
	for _, c := range rec.calls {
		if c.instrument == "BTC-USDT" {
			seen = append(seen, c.ts)
		}
	}
	sort.Strings(seen)
	assert.Equal(t, []string{
		"2023-01-01T00:00:00+00:00",
		"2023-01-01T01:00:00+00:00",
		"2023-01-01T02:00:00+00:00",
	}, seen)

	_, err = r.Backfill(context.Background(), from, from, time.Hour)
	require.Error(t, err)
	_, err = r.Backfill(context.Background(), from, from.Add(time.Hour), 0)
	require.Error(t, err)
}

func TestLogicalTime(t *testing.T) {
	t.Parallel()

	fire := time.Date(2023, 1, 1, 1, 0, 3, 0, time.UTC)
	got, err := LogicalTime(DefaultCron, fire)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), got)

	// between fires: the interval that ended at the last fire
	got, err = LogicalTime(DefaultCron, time.Date(2023, 1, 1, 1, 37, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = LogicalTime("*/15 * * * *", fire)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 45, 0, 0, time.UTC), got)

	_, err = LogicalTime("not cron", fire)
	require.Error(t, err)
}

func TestLogicalTimeUnevenCron(t *testing.T) {
	t.Parallel()

	const spec = "0 1,2,10 * * *"
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		fire time.Time
		want time.Time
	}{
		{day.Add(2 * time.Hour), day.Add(1 * time.Hour)},
		{day.Add(10 * time.Hour), day.Add(2 * time.Hour)},
		{day.Add(1 * time.Hour), day.Add(-14 * time.Hour)},
		{day.Add(5 * time.Hour), day.Add(1 * time.Hour)},
	}
	for _, tt := range tests {
		got, err := LogicalTime(spec, tt.fire)
		require.NoError(t, err, tt.fire)
		assert.Equal(t, tt.want, got, tt.fire)
	}

	prev, err := Previous(spec, day.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, day.Add(time.Hour), prev)
}

func TestBackfillScheduleUnevenCron(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := NewRunner(rec, []string{"BTC-USDT"}, WithPolicy(Policy{Attempts: 1}), WithCron("0 1,2,10 * * *"))

	from := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	sum, err := r.BackfillSchedule(context.Background(), from, from.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Summary{Runs: 3, Success: 3}, sum)

	var seen []string
	for _, c := range rec.calls {
		seen = append(seen, c.ts)
	}
	assert.Equal(t, []string{
		"2024-01-01T01:00:00+00:00",
		"2024-01-01T02:00:00+00:00",
		"2024-01-01T10:00:00+00:00",
	}, seen)

	// a start that is itself a fire time is included
	rec2 := &recorder{}
	r2 := NewRunner(rec2, []string{"BTC-USDT"}, WithPolicy(Policy{Attempts: 1}))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sum, err = r2.BackfillSchedule(context.Background(), start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Runs)
	assert.Equal(t, "2024-01-01T00:00:00+00:00", rec2.calls[0].ts)
}

func TestRunOnceBeforeEpoch(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := NewRunner(rec, []string{"BTC-USDT", "ETH-USDT"}, WithPolicy(Policy{Attempts: 1}))

	var results []Result
	require.NotPanics(t, func() {
		results = r.RunOnce(context.Background(), time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC))
	})
	require.Len(t, results, 2)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, task.ErrInvalidTimestamp)
	}
	assert.Empty(t, rec.calls)

	from := time.Date(1969, 12, 31, 22, 0, 0, 0, time.UTC)
	_, err := r.Backfill(context.Background(), from, from.Add(4*time.Hour), time.Hour)
	require.ErrorIs(t, err, task.ErrInvalidTimestamp)
	_, err = r.BackfillSchedule(context.Background(), from, from.Add(4*time.Hour))
	require.ErrorIs(t, err, task.ErrInvalidTimestamp)
	assert.Empty(t, rec.calls)
}

func TestStartRejectsBadCron(t *testing.T) {
	t.Parallel()

	r := NewRunner(&recorder{}, []string{"BTC-USDT"}, WithCron("every hour"))
	require.Error(t, r.Start(context.Background()))
}
