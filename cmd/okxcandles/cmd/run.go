package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/okxcandles/schedule"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch every configured instrument on the cron schedule",
	Long: `Start the scheduler. On every fire each configured instrument is fetched
concurrently for the interval that just ended. Stops on SIGINT or SIGTERM
after running tasks finish.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	return r.Start(ctx)
}
