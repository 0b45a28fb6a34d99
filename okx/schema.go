package okx

import "github.com/rustyeddy/okxcandles/table"

// CandlestickColumns is the positional layout of one history-candles entry.
var CandlestickColumns = []string{"ts", "open", "high", "low", "close", "vol", "vol_ccy", "vol_ccy_quote", "confirm"}

// CandlestickSchema is the stored layout of a candlestick row.
var CandlestickSchema = table.Schema{
	{Name: "ticker", Type: table.String},
	{Name: "ts", Type: table.Timestamp},
	{Name: "open", Type: table.Decimal},
	{Name: "high", Type: table.Decimal},
	{Name: "low", Type: table.Decimal},
	{Name: "close", Type: table.Decimal},
	{Name: "vol", Type: table.Decimal},
	{Name: "vol_ccy", Type: table.Decimal},
	{Name: "vol_ccy_quote", Type: table.Decimal},
	{Name: "confirm", Type: table.Integer},
}

// InstrumentSchema is the canonical layout of an instrument metadata row.
var InstrumentSchema = table.Schema{
	{Name: "inst_type", Type: table.String},
	{Name: "inst_id", Type: table.String},
	{Name: "uly", Type: table.String},
	{Name: "category", Type: table.Integer},
	{Name: "base_ccy", Type: table.String},
	{Name: "quote_ccy", Type: table.String},
	{Name: "settle_ccy", Type: table.String},
	{Name: "ct_val", Type: table.Decimal},
	{Name: "ct_mult", Type: table.Decimal},
	{Name: "ct_val_ccy", Type: table.String},
	{Name: "opt_type", Type: table.String},
	{Name: "stk", Type: table.Decimal},
	{Name: "list_time", Type: table.Timestamp},
	{Name: "exp_time", Type: table.Timestamp},
	{Name: "lever", Type: table.Decimal},
	{Name: "tick_sz", Type: table.Decimal},
	{Name: "lot_sz", Type: table.Decimal},
	{Name: "min_sz", Type: table.Decimal},
	{Name: "ct_type", Type: table.String},
	{Name: "alias", Type: table.String},
	{Name: "state", Type: table.String},
}

// instrumentWireNames maps wire field names to InstrumentSchema names, in
// schema order.
var instrumentWireNames = []struct{ wire, name string }{
	{"instType", "inst_type"},
	{"instId", "inst_id"},
	{"uly", "uly"},
	{"category", "category"},
	{"baseCcy", "base_ccy"},
	{"quoteCcy", "quote_ccy"},
	{"settleCcy", "settle_ccy"},
	{"ctVal", "ct_val"},
	{"ctMult", "ct_mult"},
	{"ctValCcy", "ct_val_ccy"},
	{"optType", "opt_type"},
	{"stk", "stk"},
	{"listTime", "list_time"},
	{"expTime", "exp_time"},
	{"lever", "lever"},
	{"tickSz", "tick_sz"},
	{"lotSz", "lot_sz"},
	{"minSz", "min_sz"},
	{"ctType", "ct_type"},
	{"alias", "alias"},
	{"state", "state"},
}

// InstrumentWireColumns returns the wire field names in schema order.
func InstrumentWireColumns() []string {
	out := make([]string, len(instrumentWireNames))
	for i, w := range instrumentWireNames {
		out[i] = w.wire
	}
	return out
}

func instrumentRenames() map[string]string {
	m := make(map[string]string, len(instrumentWireNames))
	for _, w := range instrumentWireNames {
		m[w.wire] = w.name
	}
	return m
}
