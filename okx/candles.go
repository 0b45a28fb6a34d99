package okx

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rustyeddy/okxcandles/table"
)

// CandlesticksRequest holds the query for GET /api/v5/market/history-candles.
// Zero values are left out of the query.
type CandlesticksRequest struct {
	InstrumentID string
	After        int64 // epoch ms
	Before       int64 // epoch ms
	Bar          string
	Limit        int
}

func (r CandlesticksRequest) params() map[string]string {
	p := map[string]string{"instId": r.InstrumentID}
	if r.After > 0 {
		p["after"] = strconv.FormatInt(r.After, 10)
	}
	if r.Before > 0 {
		p["before"] = strconv.FormatInt(r.Before, 10)
	}
	if r.Bar != "" {
		p["bar"] = r.Bar
	}
	if r.Limit > 0 {
		p["limit"] = strconv.Itoa(r.Limit)
	}
	return p
}

// FetchCandlesticks returns historical bars for one instrument, newest
// first as the exchange sends them. The table has a leading ticker column
// followed by CandlestickColumns; an empty reply gives a zero-row table with
// the same columns.
func (c *Client) FetchCandlesticks(ctx context.Context, req CandlesticksRequest) (table.Table, error) {
	if req.InstrumentID == "" {
		return table.Table{}, fmt.Errorf("%w: missing instrument id", ErrInvalidArgument)
	}

	data, err := c.get(ctx, candlesPath, req.params())
	if err != nil {
		return table.Table{}, err
	}

	var entries [][]any
	if err := decodeJSON(data, &entries); err != nil {
		return table.Table{}, fmt.Errorf("%w: decode candles: %w", ErrTransport, err)
	}

	raw := table.New(CandlestickColumns...)
	for i, e := range entries {
		if len(e) != len(CandlestickColumns) {
			return table.Table{}, fmt.Errorf("%w: candle %d has %d fields, want %d", ErrSchemaMismatch, i, len(e), len(CandlestickColumns))
		}
		r := make(table.Row, len(e))
		for j, v := range e {
			r[j] = cell(v)
		}
		if err := raw.Append(r); err != nil {
			return table.Table{}, err
		}
	}

	c.log.Debug().Str("instrument", req.InstrumentID).Int("rows", raw.Len()).Msg("fetched candlesticks")
	return raw.InsertColumn(0, "ticker", req.InstrumentID), nil
}
