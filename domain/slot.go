package domain

import (
	"time"

	"github.com/google/uuid"
)

// Slot is the durable state of one deployment target, identified by a stable
// container name independent of which underlying container currently
// occupies it. A slot is created on first deployment and never deleted, only
// transitioned, so the last two revisions remain reconstructable for
// rollback and audit.
type Slot struct {
	ID                  uuid.UUID
	Name                string
	Phase               Phase
	CurrentContainerID  *string
	PreviousContainerID *string
	CurrentImageID      string
	LastError           *string
	LastGoodPlan        *DeploymentPlan
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func NewSlot(name string) *Slot {
	return &Slot{
		ID:    uuid.New(),
		Name:  name,
		Phase: PhaseIdle,
	}
}

// SetError records the failure detail for the current attempt
func (s *Slot) SetError(err error) {
	if err == nil {
		s.LastError = nil
		return
	}
	msg := err.Error()
	s.LastError = &msg
}

// Deployment is the audit record of a single apply or rollback attempt
type Deployment struct {
	ID        uuid.UUID
	SlotID    uuid.UUID
	Image     string
	Status    DeploymentStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewDeployment(slotID uuid.UUID, image string) *Deployment {
	return &Deployment{
		ID:     uuid.New(),
		SlotID: slotID,
		Image:  image,
		Status: DeploymentStatusStarted,
	}
}
