// Package history implements the history command.
package history

import (
	"fmt"

	"github.com/berth-cd/berth/cmd/output"
	"github.com/berth-cd/berth/internal/app"
	"github.com/spf13/cobra"
)

func NewCmdHistory() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <container-name>",
		Short: "Show the deployment history of a slot",
		Long:  `List all recorded deployment attempts for a slot, newest first.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args[0])
		},
	}

	return cmd
}

func runHistory(cmd *cobra.Command, name string) error {
	deployments, err := app.GetDeployer().History(name)
	if err != nil {
		return fmt.Errorf("failed to get deployment history: %w", err)
	}

	table, err := output.PrintHistory(deployments)
	if err != nil {
		return err
	}
	return output.FprintPlain(cmd, "%s", table)
}
