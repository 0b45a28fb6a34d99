// Package sink appends normalized tables to an external store. Every sink
// is insert-only: appending the same rows twice stores them twice.
package sink

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rustyeddy/okxcandles/table"
)

// ErrWrite wraps every failed append.
var ErrWrite = errors.New("sink: write failed")

const (
	DriverSQLite     = "sqlite3"
	DriverPostgres   = "postgres"
	DriverClickHouse = "clickhouse"
	DriverCSV        = "csv"
)

// Drivers lists the supported sink drivers.
var Drivers = []string{DriverSQLite, DriverPostgres, DriverClickHouse, DriverCSV}

// Config selects and locates a sink.
type Config struct {
	Driver string
	DSN    string // database drivers
	Dir    string // csv
}

// Sink is an append-only table store.
type Sink interface {
	Append(ctx context.Context, name string, t table.Table) error
	EnsureTable(ctx context.Context, name string, schema table.Schema) error
	Tail(ctx context.Context, name, ticker string, n int) (table.Table, error)
	Close() error
}

// Open connects to the sink described by cfg.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres, DriverClickHouse:
		return OpenSQL(ctx, cfg.Driver, cfg.DSN)
	case DriverCSV:
		return NewCSV(cfg.Dir)
	default:
		return nil, fmt.Errorf("sink: unknown driver %q, use one of %v", cfg.Driver, Drivers)
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkIdents rejects names that would need quoting in SQL or a file path.
func checkIdents(names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return fmt.Errorf("sink: invalid identifier %q", n)
		}
	}
	return nil
}

func checkTail(name string, n int) error {
	if n < 1 {
		return fmt.Errorf("sink: tail of %s needs a positive row count, got %d", name, n)
	}
	return checkIdents(name)
}
