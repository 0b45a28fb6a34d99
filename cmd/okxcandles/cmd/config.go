package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/okxcandles/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  okxcandles config init -o okxcandles.yaml
  okxcandles config validate -f okxcandles.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Generate a default configuration file",
	Annotations: map[string]string{"skip-config": "true"},
	RunE:        runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Validate a configuration file",
	Annotations: map[string]string{"skip-config": "true"},
	RunE:        runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "okxcandles.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.Default().SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  okxcandles run --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Instruments: %v\n", c.Instruments)
	fmt.Fprintf(out, "  Sink: %s -> %s\n", c.Sink.Driver, c.Fetch.Table)
	fmt.Fprintf(out, "  Schedule: %s (%d attempts, %s timeout)\n", c.Schedule.Cron, c.Schedule.Attempts, c.Schedule.Timeout)
	return nil
}
