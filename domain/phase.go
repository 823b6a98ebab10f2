package domain

import "fmt"

// Phase represents the position of a slot in the deployment state machine
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePulling
	PhaseStoppingOld
	PhaseStartingNew
	PhaseHealthChecking
	PhaseCommitted
	PhaseRolledBack
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePulling:
		return "pulling"
	case PhaseStoppingOld:
		return "stopping-old"
	case PhaseStartingNew:
		return "starting-new"
	case PhaseHealthChecking:
		return "health-checking"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled-back"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

func ParsePhase(s string) (Phase, error) {
	switch s {
	case "idle":
		return PhaseIdle, nil
	case "pulling":
		return PhasePulling, nil
	case "stopping-old":
		return PhaseStoppingOld, nil
	case "starting-new":
		return PhaseStartingNew, nil
	case "health-checking":
		return PhaseHealthChecking, nil
	case "committed":
		return PhaseCommitted, nil
	case "rolled-back":
		return PhaseRolledBack, nil
	case "failed":
		return PhaseFailed, nil
	default:
		return PhaseIdle, fmt.Errorf("invalid phase: %q", s)
	}
}

// Settled reports whether the phase is a terminal state from which a new
// deployment may be started.
func (p Phase) Settled() bool {
	switch p {
	case PhaseIdle, PhaseCommitted, PhaseRolledBack, PhaseFailed:
		return true
	default:
		return false
	}
}

// DeploymentStatus represents the final outcome of a single deployment attempt
type DeploymentStatus int

const (
	DeploymentStatusStarted DeploymentStatus = iota
	DeploymentStatusCommitted
	DeploymentStatusRolledBack
	DeploymentStatusFailed
)

func (s DeploymentStatus) String() string {
	switch s {
	case DeploymentStatusStarted:
		return "started"
	case DeploymentStatusCommitted:
		return "committed"
	case DeploymentStatusRolledBack:
		return "rolled-back"
	case DeploymentStatusFailed:
		return "failed"
	default:
		return "started"
	}
}

func ParseDeploymentStatus(s string) (DeploymentStatus, error) {
	switch s {
	case "started":
		return DeploymentStatusStarted, nil
	case "committed":
		return DeploymentStatusCommitted, nil
	case "rolled-back":
		return DeploymentStatusRolledBack, nil
	case "failed":
		return DeploymentStatusFailed, nil
	default:
		return DeploymentStatusStarted, fmt.Errorf("invalid deployment status: %q", s)
	}
}
