// Package task is the unit of work run once per instrument and scheduled
// time: fetch the bars after that time, normalize them and append them to
// the sink.
package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/okxcandles/okx"
	"github.com/rustyeddy/okxcandles/table"
)

// Outcome is reported back to the scheduler.
type Outcome string

const (
	Success Outcome = "Success"
	NoData  Outcome = "No data"
)

const (
	DefaultTable = "candlesticks_history"
	DefaultLimit = 60
)

// ErrInvalidTimestamp is returned when the logical time cannot be parsed.
var ErrInvalidTimestamp = errors.New("task: invalid logical timestamp")

// Fetcher is the part of the exchange client a task needs.
type Fetcher interface {
	FetchCandlesticks(ctx context.Context, req okx.CandlesticksRequest) (table.Table, error)
}

// Sink receives normalized tables.
type Sink interface {
	Append(ctx context.Context, name string, t table.Table) error
}

// Task fetches and stores candlesticks. It keeps no state between runs and
// may be invoked concurrently.
type Task struct {
	fetcher Fetcher
	sink    Sink
	table   string
	limit   int
	bar     string
	log     zerolog.Logger
}

// Option configures a Task.
type Option func(*Task)

func WithTable(name string) Option { return func(t *Task) { t.table = name } }
func WithLimit(n int) Option       { return func(t *Task) { t.limit = n } }
func WithBar(bar string) Option    { return func(t *Task) { t.bar = bar } }

func WithLogger(l zerolog.Logger) Option {
	return func(t *Task) { t.log = l }
}

func New(fetcher Fetcher, sink Sink, opts ...Option) *Task {
	t := &Task{
		fetcher: fetcher,
		sink:    sink,
		table:   DefaultTable,
		limit:   DefaultLimit,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Run fetches the bars of instrumentID after the logical time ts. An empty
// reply is NoData and writes nothing. Every failure is returned as is for
// the scheduler to retry.
func (t *Task) Run(ctx context.Context, instrumentID, ts string) (Outcome, error) {
	logical, err := ParseLogicalTime(ts)
	if err != nil {
		return "", err
	}
	after := logical.UnixMilli()

	l := t.log.With().Str("instrument", instrumentID).Str("ts", ts).Int64("after", after).Logger()

	raw, err := t.fetcher.FetchCandlesticks(ctx, okx.CandlesticksRequest{
		InstrumentID: instrumentID,
		After:        after,
		Bar:          t.bar,
		Limit:        t.limit,
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", instrumentID, err)
	}

	if raw.Len() == 0 {
		l.Info().Msg("no data")
		return NoData, nil
	}

	typed, err := table.Normalize(raw, okx.CandlestickSchema)
	if err != nil {
		return "", fmt.Errorf("normalize %s: %w", instrumentID, err)
	}

	l.Info().Int("rows", typed.Len()).Str("table", t.table).Msg("loading data")
	if err := t.sink.Append(ctx, t.table, typed); err != nil {
		return "", fmt.Errorf("append %s: %w", instrumentID, err)
	}
	return Success, nil
}

var logicalLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseLogicalTime reads the scheduler's logical time. Forms without an
// offset are taken as UTC.
func ParseLogicalTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range logicalLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			if err := CheckLogicalTime(t); err != nil {
				return time.Time{}, err
			}
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// CheckLogicalTime rejects times at or before the Unix epoch. Their epoch
// milliseconds are not a usable after bound.
func CheckLogicalTime(t time.Time) error {
	if t.UnixMilli() <= 0 {
		return fmt.Errorf("%w: %s is not after the Unix epoch", ErrInvalidTimestamp, t.UTC().Format(time.RFC3339))
	}
	return nil
}

// FormatLogicalTime is the inverse of ParseLogicalTime used by the
// scheduler when it builds a logical time from a fire time.
func FormatLogicalTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05-07:00")
}
