package services

import (
	"errors"
	"strings"
)

// Typed failures surfaced by the container runtime adapter. The adapter never
// retries internally; retry policy belongs to the orchestrator.
var (
	ErrNotFound           = errors.New("container not found")
	ErrConflict           = errors.New("container name already in use")
	ErrPermissionDenied   = errors.New("permission denied by container runtime")
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
	ErrTimeout            = errors.New("operation timed out")
)

// Orchestrator-level failures
var (
	// ErrLockContention means another deployment already holds the slot.
	// The caller should retry later; nothing was applied.
	ErrLockContention = errors.New("another deployment is in progress for this slot")

	ErrSlotNotFound        = errors.New("slot not found")
	ErrNoPreviousContainer = errors.New("no previous container to roll back to")

	ErrPullFailed        = errors.New("image pull failed")
	ErrStartFailed       = errors.New("container start failed")
	ErrHealthCheckFailed = errors.New("health check failed")
	ErrRollbackFailed    = errors.New("rollback failed")
	ErrCanceled          = errors.New("deployment canceled")
)

// FormatErrorForUser converts technical errors to user-friendly messages
// This should only be called at the command/handler level
func FormatErrorForUser(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrLockContention):
		return "another deployment is already in progress for this slot, retry later"
	case errors.Is(err, ErrSlotNotFound):
		return "no deployment slot with this name exists"
	case errors.Is(err, ErrNoPreviousContainer):
		return "nothing to roll back to: no previous container is retained for this slot"
	case errors.Is(err, ErrRuntimeUnavailable):
		return "cannot reach the container runtime, is the Docker daemon running?"
	case errors.Is(err, ErrPermissionDenied):
		return "permission denied by the container runtime"
	case errors.Is(err, ErrTimeout):
		return "operation timed out"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "unique constraint") && strings.Contains(errStr, "name"):
		return "a slot with this name already exists"
	case strings.Contains(errStr, "record not found"):
		return "no deployment slot with this name exists"
	case strings.Contains(errStr, "connection"):
		return "database connection failed"
	default:
		return err.Error()
	}
}
