package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/okxcandles/schedule"
	"github.com/rustyeddy/okxcandles/task"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one scheduled fetch for one instrument",
	Long: `Fetch the candlesticks after a logical time for one instrument and
append them to the sink, with the configured attempts and timeout.

Example:
  okxcandles fetch --instrument ETH-USDT --ts 2023-01-01T00:00:00+00:00`,
	RunE: runFetch,
}

var (
	fetchInstrument string
	fetchTS         string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchInstrument, "instrument", "", "instrument id, e.g. BTC-USDT (required)")
	fetchCmd.Flags().StringVar(&fetchTS, "ts", "", "logical time, ISO-8601 (default: the last completed schedule interval)")
	fetchCmd.MarkFlagRequired("instrument")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ts := fetchTS
	if ts == "" {
		logical, err := schedule.LogicalTime(cfg.Schedule.Cron, time.Now())
		if err != nil {
			return err
		}
		ts = task.FormatLogicalTime(logical)
	}

	t, s, err := newTask(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	res := schedule.Invoke(ctx, t, cfg.Policy(), logger, fetchInstrument, ts)
	if res.Err != nil {
		return fmt.Errorf("fetch %s at %s failed after %d attempts: %w", fetchInstrument, ts, res.Attempts, res.Err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Outcome)
	return nil
}
