package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/okxcandles/config"
	"github.com/rustyeddy/okxcandles/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	pretty   bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "okxcandles",
	Short: "Load OKX candlestick history into an analytical database",
	Long: `okxcandles fetches OHLCV candlesticks for a list of instruments from the
OKX v5 REST API, normalizes them and appends them to a table.

It can run a single fetch, run hourly on a cron schedule, or backfill a
past range of scheduled times.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations["skip-config"] == "true" {
			logger = logging.Setup(logLevel, pretty)
			return nil
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			logger = logging.Setup(logLevel, pretty)
			logging.Error(logger, err, logging.ErrCodeConfigLoadFailed, "failed to load config", "path", cfgFile)
			return err
		}
		cfg = loaded

		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		logger = logging.Setup(level, pretty)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.Error().Err(err).Msg("command failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON, defaults built in)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human readable console logs")
}
