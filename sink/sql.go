package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/okxcandles/table"
)

// SQL appends tables through database/sql. The *sql.DB pool is shared by
// every task in the process.
type SQL struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQL opens and pings a database for one of the SQL drivers.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("sink: %q is not a sql driver", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("sink: missing dsn for %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// one writer at a time, otherwise concurrent tasks hit SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sink: ping %s: %w", driver, err)
	}
	return &SQL{db: db, dialect: d}, nil
}

// NewSQL wraps an already open database.
func NewSQL(db *sql.DB, driver string) (*SQL, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("sink: %q is not a sql driver", driver)
	}
	return &SQL{db: db, dialect: d}, nil
}

// EnsureTable creates name from schema when it does not exist yet. An
// existing table is left as it is; an incompatible one makes Append fail.
func (s *SQL) EnsureTable(ctx context.Context, name string, schema table.Schema) error {
	if err := checkIdents(append([]string{name}, schema.Names()...)...); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.create(name, schema)); err != nil {
		return fmt.Errorf("sink: create %s: %w", name, err)
	}
	return nil
}

// Append inserts every row of t into name in one transaction.
func (s *SQL) Append(ctx context.Context, name string, t table.Table) error {
	if t.Len() == 0 {
		return nil
	}
	if err := checkIdents(append([]string{name}, t.Columns...)...); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin %s: %w", ErrWrite, name, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.insert(name, t.Columns))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: prepare %s: %w", ErrWrite, name, err)
	}
	defer stmt.Close()

	for i, r := range t.Rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: insert %s row %d: %w", ErrWrite, name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %w", ErrWrite, name, err)
	}
	return nil
}

// Count returns the number of rows stored in name.
func (s *SQL) Count(ctx context.Context, name string) (int64, error) {
	if err := checkIdents(name); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&n)
	return n, err
}

// Tail returns the latest n rows of ticker ordered by ts, newest first.
func (s *SQL) Tail(ctx context.Context, name, ticker string, n int) (table.Table, error) {
	if err := checkTail(name, n); err != nil {
		return table.Table{}, err
	}
	q := fmt.Sprintf("SELECT * FROM %s WHERE ticker = %s ORDER BY ts DESC LIMIT %d", name, s.dialect.placeholder(1), n)
	return s.Query(ctx, q, ticker)
}

// Query runs q and collects the result set as a table.
func (s *SQL) Query(ctx context.Context, q string, args ...any) (table.Table, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return table.Table{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return table.Table{}, err
	}

	out := table.New(cols...)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return table.Table{}, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		if err := out.Append(vals); err != nil {
			return table.Table{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, err
	}
	return out, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
