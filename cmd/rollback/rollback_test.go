package rollback

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/internal/app"
	"github.com/berth-cd/berth/services"
	"github.com/berth-cd/berth/testing/mocks"
)

func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := NewCmdRollback()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	return cmd, &stdout, &stderr
}

func stringPtr(s string) *string {
	return &s
}

func TestRunRollback_Success(t *testing.T) {
	slot := domain.NewSlot("web")
	slot.Phase = domain.PhaseRolledBack
	slot.CurrentContainerID = stringPtr("ctr-previous")
	app.SetDeployerForTesting(&mocks.MockDeployer{
		RollbackFunc: func(ctx context.Context, name string) (*domain.Slot, error) {
			assert.Equal(t, "web", name)
			return slot, nil
		},
	})

	cmd, stdout, _ := newTestCommand()
	assert.True(t, runRollback(cmd, "web"))
	assert.Contains(t, stdout.String(), "rolled back")
	assert.Contains(t, stdout.String(), "ctr-previous")
}

func TestRunRollback_NoPreviousContainer(t *testing.T) {
	app.SetDeployerForTesting(&mocks.MockDeployer{
		RollbackFunc: func(ctx context.Context, name string) (*domain.Slot, error) {
			return nil, services.ErrNoPreviousContainer
		},
	})

	cmd, _, stderr := newTestCommand()
	assert.False(t, runRollback(cmd, "web"))
	assert.Contains(t, stderr.String(), "nothing to roll back to")
}

func TestRunRollback_SlotNotFound(t *testing.T) {
	app.SetDeployerForTesting(&mocks.MockDeployer{
		RollbackFunc: func(ctx context.Context, name string) (*domain.Slot, error) {
			return nil, services.ErrSlotNotFound
		},
	})

	cmd, _, stderr := newTestCommand()
	assert.False(t, runRollback(cmd, "missing"))
	assert.Contains(t, stderr.String(), "no deployment slot with this name exists")
}

func TestRunRollback_RestoreFailed(t *testing.T) {
	slot := domain.NewSlot("web")
	slot.Phase = domain.PhaseFailed
	slot.LastError = stringPtr("rollback failed: oom killed on start")
	app.SetDeployerForTesting(&mocks.MockDeployer{
		RollbackFunc: func(ctx context.Context, name string) (*domain.Slot, error) {
			return slot, nil
		},
	})

	cmd, stdout, stderr := newTestCommand()
	assert.False(t, runRollback(cmd, "web"))
	assert.Contains(t, stderr.String(), "did not restore a running container")
	assert.Contains(t, stdout.String(), "rollback failed")
}

func TestNewCmdRollbackCommand(t *testing.T) {
	cmd := NewCmdRollback()

	assert.Equal(t, "rollback <container-name>", cmd.Use)
	assert.Equal(t, "Roll a slot back to its previous container", cmd.Short)
	assert.NotNil(t, cmd.Run)
	assert.Equal(t, "rollback", cmd.Name())
}
