package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/okxcandles/internal/logging"
	"github.com/rustyeddy/okxcandles/okx"
	"github.com/rustyeddy/okxcandles/table"
)

var instrumentsCmd = &cobra.Command{
	Use:   "instruments",
	Short: "List exchange instruments of one type",
	Long: `Fetch instrument metadata from GET /api/v5/public/instruments, normalize
it and print it.

Example:
  okxcandles instruments --type SPOT --inst-id BTC-USDT
  okxcandles instruments --type SWAP --uly BTC-USD`,
	RunE: runInstruments,
}

var (
	instType   string
	instUly    string
	instID     string
	instColumn []string
)

func init() {
	rootCmd.AddCommand(instrumentsCmd)

	instrumentsCmd.Flags().StringVar(&instType, "type", "SPOT", "instrument type: SPOT, MARGIN or SWAP")
	instrumentsCmd.Flags().StringVar(&instUly, "uly", "", "underlying, for derivatives")
	instrumentsCmd.Flags().StringVar(&instID, "inst-id", "", "a single instrument id")
	instrumentsCmd.Flags().StringSliceVar(&instColumn, "columns", []string{"inst_type", "inst_id", "base_ccy", "quote_ccy", "tick_sz", "lot_sz", "min_sz", "list_time", "state"}, "columns to print")
}

func runInstruments(cmd *cobra.Command, args []string) error {
	typ, err := okx.ParseInstrumentType(instType)
	if err != nil {
		return err
	}

	raw, err := newClient().FetchInstruments(cmd.Context(), okx.InstrumentsRequest{
		Type:         typ,
		Underlying:   instUly,
		InstrumentID: instID,
	})
	if err != nil {
		logging.Error(logger, err, logging.ErrCodeFetchFailed, "failed to fetch instruments", "type", typ)
		return err
	}

	typed, err := table.Normalize(raw, okx.InstrumentSchema)
	if err != nil {
		return err
	}

	out, err := typed.Select(instColumn...)
	if err != nil {
		return fmt.Errorf("bad --columns: %w", err)
	}
	return printTable(cmd.OutOrStdout(), out)
}
