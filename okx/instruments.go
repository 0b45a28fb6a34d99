package okx

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/okxcandles/table"
)

// InstrumentType is the instType query parameter.
type InstrumentType string

const (
	Spot   InstrumentType = "SPOT"
	Margin InstrumentType = "MARGIN"
	Swap   InstrumentType = "SWAP"
)

// InstrumentTypes lists the supported instrument types.
var InstrumentTypes = []InstrumentType{Spot, Margin, Swap}

// Valid reports whether t is one of InstrumentTypes.
func (t InstrumentType) Valid() bool {
	for _, it := range InstrumentTypes {
		if t == it {
			return true
		}
	}
	return false
}

// ParseInstrumentType accepts any case.
func ParseInstrumentType(s string) (InstrumentType, error) {
	t := InstrumentType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q is not a type of an instrument, use one of %v", ErrInvalidArgument, s, InstrumentTypes)
	}
	return t, nil
}

// InstrumentsRequest holds the query for GET /api/v5/public/instruments.
type InstrumentsRequest struct {
	Type         InstrumentType
	Underlying   string // uly, only for derivatives
	InstrumentID string
}

// FetchInstruments lists instruments of one type. The result carries the
// InstrumentSchema columns in schema order with empty strings replaced by
// nil. Values are still wire strings; pass the table through
// table.Normalize with InstrumentSchema to type it.
func (c *Client) FetchInstruments(ctx context.Context, req InstrumentsRequest) (table.Table, error) {
	if !req.Type.Valid() {
		return table.Table{}, fmt.Errorf("%w: %q is not a type of an instrument, use one of %v", ErrInvalidArgument, req.Type, InstrumentTypes)
	}

	params := map[string]string{"instType": string(req.Type)}
	if req.Underlying != "" {
		params["uly"] = req.Underlying
	}
	if req.InstrumentID != "" {
		params["instId"] = req.InstrumentID
	}

	data, err := c.get(ctx, instrumentsPath, params)
	if err != nil {
		return table.Table{}, err
	}

	var objs []map[string]any
	if err := decodeJSON(data, &objs); err != nil {
		return table.Table{}, fmt.Errorf("%w: decode instruments: %w", ErrTransport, err)
	}

	wire := InstrumentWireColumns()
	if err := checkFieldSet(objs, wire); err != nil {
		return table.Table{}, err
	}

	raw := table.New(wire...)
	for _, o := range objs {
		r := make(table.Row, len(wire))
		for i, k := range wire {
			r[i] = cell(o[k])
		}
		if err := raw.Append(r); err != nil {
			return table.Table{}, err
		}
	}

	out := raw.Rename(instrumentRenames()).Map(func(v any) any {
		if s, ok := v.(string); ok && s == "" {
			return nil
		}
		return v
	})
	return out.Select(InstrumentSchema.Names()...)
}

// checkFieldSet compares the union of keys across objs with want.
func checkFieldSet(objs []map[string]any, want []string) error {
	got := make(map[string]struct{})
	for _, o := range objs {
		for k := range o {
			got[k] = struct{}{}
		}
	}

	var missing, extra []string
	wantSet := make(map[string]struct{}, len(want))
	for _, k := range want {
		wantSet[k] = struct{}{}
		if _, ok := got[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range got {
		if _, ok := wantSet[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	return fmt.Errorf("%w: please fill underlying asset as uly parameter (missing %v, unexpected %v)", ErrSchemaMismatch, missing, extra)
}
