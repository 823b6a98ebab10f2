// Package list implements the list command.
package list

import (
	"fmt"

	"github.com/berth-cd/berth/cmd/output"
	"github.com/berth-cd/berth/internal/app"
	"github.com/spf13/cobra"
)

func NewCmdList() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all deployment slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	slots, err := app.GetDeployer().List()
	if err != nil {
		return fmt.Errorf("failed to list slots: %w", err)
	}

	table, err := output.PrintSlotList(slots)
	if err != nil {
		return err
	}
	return output.FprintPlain(cmd, "%s", table)
}
