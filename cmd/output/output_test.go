package output

import (
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berth-cd/berth/domain"
)

func stringPtr(s string) *string {
	return &s
}

func TestPrintMessage_PlainWithoutInit(t *testing.T) {
	maybeColorize = nil

	msg := PrintMessage(Plain, "slot %s", "web")
	assert.Equal(t, "slot web\n", msg)
}

func TestPrintMessage_ColorsDisabled(t *testing.T) {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()
	color.NoColor = false

	InitColors(true)
	msg := PrintMessage(Success, "slot %s committed", "web")
	assert.Equal(t, "slot web committed\n", msg)
}

func TestDerefOr(t *testing.T) {
	assert.Equal(t, "ctr-1", derefOr(stringPtr("ctr-1"), "none"))
	assert.Equal(t, "none", derefOr(nil, "none"))
	assert.Equal(t, "none", derefOr(stringPtr(""), "none"))
}

func TestPrintSlotDetails(t *testing.T) {
	InitColors(true)

	slot := &domain.Slot{
		ID:                 uuid.New(),
		Name:               "web",
		Phase:              domain.PhaseRolledBack,
		CurrentContainerID: stringPtr("ctr-old"),
		CurrentImageID:     "sha256:abc123",
		LastError:          stringPtr("health check failed"),
		LastGoodPlan:       &domain.DeploymentPlan{Image: "nginx:1.25", ContainerName: "web"},
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	out, err := PrintSlotDetails(slot)
	require.NoError(t, err)
	assert.Contains(t, out, "web")
	assert.Contains(t, out, "rolled-back")
	assert.Contains(t, out, "ctr-old")
	// No previous container retained
	assert.Contains(t, out, "none")
	assert.Contains(t, out, "sha256:abc123")
	assert.Contains(t, out, "nginx:1.25")
	assert.Contains(t, out, "health check failed")
}

func TestPrintSlotList(t *testing.T) {
	InitColors(true)

	web := domain.NewSlot("web")
	web.Phase = domain.PhaseCommitted
	web.LastGoodPlan = &domain.DeploymentPlan{Image: "nginx:1.25", ContainerName: "web"}

	out, err := PrintSlotList([]*domain.Slot{web})
	require.NoError(t, err)
	assert.Contains(t, out, "web")
	assert.Contains(t, out, "committed")
	assert.Contains(t, out, "nginx:1.25")
}

func TestPrintSlotList_Empty(t *testing.T) {
	out, err := PrintSlotList(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No slots found.")
}

func TestPrintHistory(t *testing.T) {
	InitColors(true)

	deployments := []*domain.Deployment{
		{ID: uuid.New(), Image: "app:v2", Status: domain.DeploymentStatusFailed, CreatedAt: time.Now()},
		{ID: uuid.New(), Image: "app:v1", Status: domain.DeploymentStatusCommitted, CreatedAt: time.Now()},
	}

	out, err := PrintHistory(deployments)
	require.NoError(t, err)
	assert.Contains(t, out, "app:v1")
	assert.Contains(t, out, "app:v2")
	assert.Contains(t, out, "committed")
	assert.Contains(t, out, "failed")
}

func TestPrintHistory_Empty(t *testing.T) {
	out, err := PrintHistory(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No deployments found.")
}

func TestNoColorFlag(t *testing.T) {
	flag := &noColorFlag{}

	assert.False(t, flag.IsSet())
	assert.Equal(t, "false", flag.String())
	assert.Equal(t, "bool", flag.Type())
	assert.True(t, flag.IsBoolFlag())

	require.NoError(t, flag.Set("true"))
	assert.True(t, flag.IsSet())
	assert.Equal(t, "true", flag.String())
}
