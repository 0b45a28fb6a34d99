package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/okxcandles/schedule"
	"github.com/rustyeddy/okxcandles/task"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Replay past scheduled times",
	Long: `Run every scheduled fire time between --from and --to, one after the
other, for all configured instruments. Rows already stored for an
overlapping window are appended again.

Example:
  okxcandles backfill --from 2024-01-01T00:00:00Z --to 2024-01-02T00:00:00Z`,
	RunE: runBackfill,
}

var (
	backfillFrom string
	backfillTo   string
)

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "first logical time (default: schedule.start_date)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "stop before this logical time (default: start of the last completed interval)")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	from := cfg.StartDate()
	if backfillFrom != "" {
		t, err := task.ParseLogicalTime(backfillFrom)
		if err != nil {
			return fmt.Errorf("bad --from: %w", err)
		}
		from = t
	}
	if from.IsZero() {
		return fmt.Errorf("no start: pass --from or set schedule.start_date")
	}

	to, err := schedule.LogicalTime(cfg.Schedule.Cron, time.Now())
	if err != nil {
		return err
	}
	to = to.Add(time.Nanosecond)
	if backfillTo != "" {
		to, err = task.ParseLogicalTime(backfillTo)
		if err != nil {
			return fmt.Errorf("bad --to: %w", err)
		}
	}

	t, s, err := newTask(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	r := schedule.NewRunner(t, cfg.Instruments,
		schedule.WithCron(cfg.Schedule.Cron),
		schedule.WithPolicy(cfg.Policy()),
		schedule.WithLogger(logger),
	)
	sum, err := r.BackfillSchedule(ctx, from, to)
	fmt.Fprintf(cmd.OutOrStdout(), "runs: %d  success: %d  no data: %d  failed: %d\n", sum.Runs, sum.Success, sum.NoData, sum.Failed)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d tasks failed", sum.Failed)
	}
	return nil
}
