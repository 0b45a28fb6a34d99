package cmd

import (
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the latest stored candlesticks of an instrument",
	Long: `Read back the newest rows of one instrument from the sink table.

Example:
  okxcandles history --instrument BTC-USDT -n 10`,
	RunE: runHistory,
}

var (
	historyInstrument string
	historyRows       int
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyInstrument, "instrument", "", "instrument id (required)")
	historyCmd.Flags().IntVarP(&historyRows, "rows", "n", 20, "number of rows")
	historyCmd.MarkFlagRequired("instrument")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSink(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.Tail(ctx, cfg.Fetch.Table, historyInstrument, historyRows)
	if err != nil {
		return err
	}
	return printTable(cmd.OutOrStdout(), t)
}
