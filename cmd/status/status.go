// Package status implements the status command.
package status

import (
	"fmt"

	"github.com/berth-cd/berth/cmd/output"
	"github.com/berth-cd/berth/internal/app"
	"github.com/spf13/cobra"
)

func NewCmdStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <container-name>",
		Short: "Show the status of a deployment slot",
		Long: `Display the current phase of a slot, the container presently serving
traffic, and the retained previous container. Reads the last persisted
snapshot; a deployment in flight may be one transition ahead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args[0])
		},
	}

	return cmd
}

func runStatus(cmd *cobra.Command, name string) error {
	slot, err := app.GetDeployer().Status(name)
	if err != nil {
		return fmt.Errorf("failed to get slot status: %w", err)
	}

	details, err := output.PrintSlotDetails(slot)
	if err != nil {
		return err
	}
	return output.FprintPlain(cmd, "%s", details)
}
