// Package root implements the command line interface for Berth.
package root

import (
	"log"
	"os"

	"github.com/berth-cd/berth/cmd/deploy"
	"github.com/berth-cd/berth/cmd/history"
	"github.com/berth-cd/berth/cmd/list"
	"github.com/berth-cd/berth/cmd/output"
	"github.com/berth-cd/berth/cmd/rollback"
	"github.com/berth-cd/berth/cmd/server"
	"github.com/berth-cd/berth/cmd/status"
	"github.com/berth-cd/berth/cmd/version"
	"github.com/berth-cd/berth/internal/app"
	"github.com/berth-cd/berth/logging"
	"github.com/berth-cd/berth/services"
	"github.com/spf13/cobra"
)

var config *services.Config

func Execute() {
	if err := NewCmdRoot(services.GetDefaultDataDir()).Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCmdRoot(defaultDataDir string) *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "berth",
		Short: "Deployment orchestrator for single-container services",
		Long: `Berth drives a long-running service container from its current state to a
desired state described by a deployment plan, with health verification,
rollback on failure, and a durable per-slot deployment history.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize configuration for CLI with data directory override
			var err error
			config, err = services.NewConfigForCLI(dataDir)
			if err != nil {
				log.Fatalf("Failed to initialize configuration: %s", err)
			}

			// Initialize colors (CLI flag overrides config)
			colorDisabled := !config.ColorEnabled
			if output.NoColor.IsSet() {
				colorDisabled = true // --no-color flag overrides config
			}
			output.InitColors(colorDisabled)

			// Initialize logging (CLI flag overrides config)
			logLevel := config.LogLevel
			if logging.LogLevel.IsSet() {
				logLevel = logging.LogLevel.String()
			}
			logging.InitLogging(logLevel)

			// Initialize application with config
			if err := app.InitializeWithConfig(config); err != nil {
				log.Fatalf("Failed to initialize application: %s", err)
			}
		},
	}

	cmd.PersistentFlags().
		StringVarP(&dataDir, "data-dir", "d", defaultDataDir, "Data directory for Berth state and database")
	cmd.PersistentFlags().VarP(logging.LogLevel, "log-level", "l", "Set log verbosity level")
	cmd.PersistentFlags().VarP(output.NoColor, "no-color", "c", "Disable colored terminal output")

	cmd.AddCommand(deploy.NewCmdDeploy())
	cmd.AddCommand(status.NewCmdStatus())
	cmd.AddCommand(rollback.NewCmdRollback())
	cmd.AddCommand(list.NewCmdList())
	cmd.AddCommand(history.NewCmdHistory())
	cmd.AddCommand(server.NewCmdServer())
	cmd.AddCommand(version.NewCmdVersion())
	return cmd
}
