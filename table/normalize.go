package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrTypeCoercion is matched by every CoercionError.
var ErrTypeCoercion = errors.New("type coercion failed")

// CoercionError reports a cell that cannot be read as its declared type.
type CoercionError struct {
	Column string
	Row    int
	Value  any
	Type   Type
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot coerce %q to %s: %v", e.Column, e.Row, fmt.Sprint(e.Value), e.Type, e.Err)
}

func (e *CoercionError) Unwrap() []error {
	return []error{ErrTypeCoercion, e.Err}
}

// Normalize converts the wire values of raw into the types declared by
// schema. Timestamp columns are read as epoch milliseconds and become UTC
// times, string columns pass through, decimal and integer columns are
// parsed. Columns the schema does not mention are left as they are and
// schema columns missing from raw are not added. Nil cells stay nil.
//
// raw is not modified; rows keep their count and order.
func Normalize(raw Table, schema Schema) (Table, error) {
	types := make([]Type, len(raw.Columns))
	known := make([]bool, len(raw.Columns))
	for i, c := range raw.Columns {
		types[i], known[i] = schema.Lookup(c)
	}

	out := Table{
		Columns: append([]string(nil), raw.Columns...),
		Rows:    make([]Row, len(raw.Rows)),
	}
	for ri, r := range raw.Rows {
		nr := make(Row, len(r))
		for ci, v := range r {
			if !known[ci] || v == nil {
				nr[ci] = v
				continue
			}
			cv, err := coerce(v, types[ci])
			if err != nil {
				return Table{}, &CoercionError{
					Column: raw.Columns[ci],
					Row:    ri,
					Value:  v,
					Type:   types[ci],
					Err:    err,
				}
			}
			nr[ci] = cv
		}
		out.Rows[ri] = nr
	}
	return out, nil
}

func coerce(v any, t Type) (any, error) {
	switch t {
	case String:
		return v, nil

	case Timestamp:
		if ts, ok := v.(time.Time); ok {
			return ts.UTC(), nil
		}
		ms, err := strconv.ParseInt(strings.TrimSpace(text(v)), 10, 64)
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(ms).UTC(), nil

	case Decimal:
		if d, ok := v.(decimal.Decimal); ok {
			return d, nil
		}
		return decimal.NewFromString(text(v))

	case Integer:
		if n, ok := v.(int64); ok {
			return n, nil
		}
		return strconv.ParseInt(text(v), 10, 64)

	default:
		return nil, fmt.Errorf("unknown column type %s", t)
	}
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Millis renders t as an epoch millisecond string, the wire form of
// timestamp columns.
func Millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
