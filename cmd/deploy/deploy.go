// Package deploy implements the deploy command.
package deploy

import (
	"os"

	"github.com/berth-cd/berth/cmd/output"
	"github.com/berth-cd/berth/cmd/utils"
	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/internal/app"
	"github.com/berth-cd/berth/services"
	"github.com/spf13/cobra"
)

// Exit codes reported by the deploy command
const (
	ExitCommitted  = 0 // the new container is committed and serving
	ExitRolledBack = 1 // the previous container was restored
	ExitFailed     = 2 // no safe state could be established
)

func NewCmdDeploy() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy <plan-file>",
		Short: "Apply a deployment plan",
		Long: `Pull the plan's image, replace the slot's running container, and verify the
new container's health. On health check failure the previous container is
restored. Exits 0 on commit, 1 on rollback, 2 when no safe state remains.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if code := runDeploy(cmd, args[0]); code != ExitCommitted {
				os.Exit(code)
			}
		},
	}

	return cmd
}

// runDeploy handles the main logic for applying a plan
func runDeploy(cmd *cobra.Command, planPath string) int {
	plan, err := services.LoadPlanFile(planPath)
	if err != nil {
		utils.HandleCommandError(cmd, "loading plan", err, "path", planPath)
		return ExitFailed
	}

	if err := output.FprintPlain(cmd, "Deploying '%s' to slot '%s'", plan.Image, plan.ContainerName); err != nil {
		return ExitFailed
	}

	slot, err := app.GetDeployer().Apply(cmd.Context(), plan)
	if err != nil {
		utils.HandleCommandError(cmd, "deploying plan", err, "slot", plan.ContainerName)
		return ExitFailed
	}

	switch slot.Phase {
	case domain.PhaseCommitted:
		_ = output.FprintSuccess(cmd, "Slot '%s' committed", slot.Name)
		_ = output.FprintPlain(cmd, "Phase: %s", slot.Phase)
		return ExitCommitted
	case domain.PhaseRolledBack:
		_ = output.FprintWarning(cmd, "Slot '%s' rolled back to previous container", slot.Name)
		printFailure(cmd, slot)
		return ExitRolledBack
	default:
		_ = output.FprintError(cmd, "Slot '%s' failed with no safe state", slot.Name)
		printFailure(cmd, slot)
		return ExitFailed
	}
}

func printFailure(cmd *cobra.Command, slot *domain.Slot) {
	_ = output.FprintPlain(cmd, "Phase: %s", slot.Phase)
	if slot.LastError != nil {
		_ = output.FprintPlain(cmd, "Error: %s", *slot.LastError)
	}
}
