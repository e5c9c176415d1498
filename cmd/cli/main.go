package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carloswilll/dashboard-cartolaFC2025/cmd/cli/commands"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/config"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/logger"
)

var verbose bool

func main() {
	app := &commands.AppContext{Ctx: context.Background()}

	rootCmd := &cobra.Command{
		Use:          "cartola",
		Short:        "Cartola FC lineup optimizer",
		Long:         `Scores the Cartola FC market and builds the lineup with the highest expected points under a budget, a formation and a per-club cap.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			app.Cfg = cfg

			level := "warn"
			if verbose {
				level = "debug"
			}
			app.Logger = logger.InitLogger(level, true)
			app.Logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(commands.OptimizeCmd(app))
	rootCmd.AddCommand(commands.PlayersCmd(app))
	rootCmd.AddCommand(commands.FormationsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
