package status

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/internal/app"
	"github.com/berth-cd/berth/services"
	"github.com/berth-cd/berth/testing/mocks"
)

func stringPtr(s string) *string {
	return &s
}

func TestRunStatus(t *testing.T) {
	slot := domain.NewSlot("web")
	slot.Phase = domain.PhaseCommitted
	slot.CurrentContainerID = stringPtr("ctr-1")
	slot.CurrentImageID = "sha256:abc123"
	slot.LastGoodPlan = &domain.DeploymentPlan{Image: "nginx:1.25", ContainerName: "web"}
	app.SetDeployerForTesting(&mocks.MockDeployer{
		StatusFunc: func(name string) (*domain.Slot, error) {
			assert.Equal(t, "web", name)
			return slot, nil
		},
	})

	cmd := NewCmdStatus()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	require.NoError(t, runStatus(cmd, "web"))

	out := stdout.String()
	assert.Contains(t, out, "web")
	assert.Contains(t, out, "committed")
	assert.Contains(t, out, "ctr-1")
	assert.Contains(t, out, "nginx:1.25")
}

func TestRunStatus_NotFound(t *testing.T) {
	app.SetDeployerForTesting(&mocks.MockDeployer{
		StatusFunc: func(name string) (*domain.Slot, error) {
			return nil, services.ErrSlotNotFound
		},
	})

	cmd := NewCmdStatus()
	err := runStatus(cmd, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrSlotNotFound)
}

func TestNewCmdStatusCommand(t *testing.T) {
	cmd := NewCmdStatus()

	assert.Equal(t, "status <container-name>", cmd.Use)
	assert.NotNil(t, cmd.RunE)
	assert.Equal(t, "status", cmd.Name())
}
