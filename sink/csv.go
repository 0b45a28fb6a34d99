package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/okxcandles/table"
)

// CSV appends tables to <dir>/<name>.csv. The first append writes the
// header; later appends must carry the same columns.
type CSV struct {
	dir string
	mu  sync.Mutex
}

func NewCSV(dir string) (*CSV, error) {
	if dir == "" {
		return nil, fmt.Errorf("sink: missing csv directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CSV{dir: dir}, nil
}

func (c *CSV) path(name string) string {
	return filepath.Join(c.dir, name+".csv")
}

// EnsureTable writes the header of an empty file. An existing file with a
// different header is an error.
func (c *CSV) EnsureTable(ctx context.Context, name string, schema table.Schema) error {
	if err := checkIdents(name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open(name, schema.Names(), func(*csv.Writer) error { return nil })
}

func (c *CSV) Append(ctx context.Context, name string, t table.Table) error {
	if t.Len() == 0 {
		return nil
	}
	if err := checkIdents(name); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.open(name, t.Columns, func(w *csv.Writer) error {
		for _, r := range t.Rows {
			rec := make([]string, len(r))
			for i, v := range r {
				rec[i] = formatCell(v)
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, name, err)
	}
	return nil
}

// open checks or writes the header of name and hands write an appending
// writer.
func (c *CSV) open(name string, cols []string, write func(*csv.Writer) error) error {
	f, err := os.OpenFile(c.path(name), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	switch {
	case errors.Is(err, io.EOF):
		header = nil
	case err != nil:
		return err
	}

	w := csv.NewWriter(f)
	if header == nil {
		if err := w.Write(cols); err != nil {
			return err
		}
	} else if !slices.Equal(header, cols) {
		return fmt.Errorf("columns %v do not match stored header %v", cols, header)
	}

	if err := write(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Tail reads the file back and returns the newest n rows of ticker.
func (c *CSV) Tail(ctx context.Context, name, ticker string, n int) (table.Table, error) {
	if err := checkTail(name, n); err != nil {
		return table.Table{}, err
	}

	c.mu.Lock()
	f, err := os.Open(c.path(name))
	if err != nil {
		c.mu.Unlock()
		return table.Table{}, err
	}
	recs, err := csv.NewReader(f).ReadAll()
	f.Close()
	c.mu.Unlock()
	if err != nil {
		return table.Table{}, err
	}
	if len(recs) == 0 {
		return table.Table{}, fmt.Errorf("sink: %s is empty", name)
	}

	out := table.New(recs[0]...)
	ti, si := out.Index("ticker"), out.Index("ts")
	if ti < 0 || si < 0 {
		return table.Table{}, fmt.Errorf("sink: %s has no ticker/ts columns", name)
	}

	type keyed struct {
		ts  time.Time
		row table.Row
	}
	var rows []keyed
	for _, rec := range recs[1:] {
		if rec[ti] != ticker {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, rec[si])
		if err != nil {
			return table.Table{}, fmt.Errorf("sink: %s: bad ts %q: %w", name, rec[si], err)
		}
		r := make(table.Row, len(rec))
		for i, v := range rec {
			r[i] = v
		}
		rows = append(rows, keyed{ts, r})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.After(rows[j].ts) })
	for i := 0; i < len(rows) && i < n; i++ {
		out.Rows = append(out.Rows, rows[i].row)
	}
	return out, nil
}

func (c *CSV) Close() error {
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return x.String()
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
