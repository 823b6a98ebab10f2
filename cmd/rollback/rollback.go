// Package rollback implements the rollback command.
package rollback

import (
	"os"

	"github.com/berth-cd/berth/cmd/output"
	"github.com/berth-cd/berth/cmd/utils"
	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/internal/app"
	"github.com/spf13/cobra"
)

func NewCmdRollback() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <container-name>",
		Short: "Roll a slot back to its previous container",
		Long: `Stop the container currently occupying the slot and restore the retained
previous container. Also usable to recover a slot left mid-deployment by a
crash.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if !runRollback(cmd, args[0]) {
				os.Exit(1)
			}
		},
	}

	return cmd
}

func runRollback(cmd *cobra.Command, name string) bool {
	slot, err := app.GetDeployer().Rollback(cmd.Context(), name)
	if err != nil {
		utils.HandleCommandError(cmd, "rolling back slot", err, "slot", name)
		return false
	}

	if slot.Phase != domain.PhaseRolledBack {
		_ = output.FprintError(cmd, "Rollback of slot '%s' did not restore a running container", name)
		if slot.LastError != nil {
			_ = output.FprintPlain(cmd, "Error: %s", *slot.LastError)
		}
		return false
	}

	_ = output.FprintSuccess(cmd, "Slot '%s' rolled back", slot.Name)
	if slot.CurrentContainerID != nil {
		_ = output.FprintPlain(cmd, "Running container: %s", *slot.CurrentContainerID)
	}
	return true
}
