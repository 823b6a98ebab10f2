// Package repository provides the data access layer for slots and deployments.
package repository

import (
	"log/slog"

	"github.com/berth-cd/berth/db"
	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/encryption"
)

// SlotMapper converts between slot models and domain objects. When an
// encryption service is configured, the persisted plan snapshot is encrypted
// at rest because it may embed inline environment values.
type SlotMapper struct {
	encryption *encryption.EncryptionService
}

func NewSlotMapper(encryptionSvc *encryption.EncryptionService) *SlotMapper {
	return &SlotMapper{encryption: encryptionSvc}
}

func (m *SlotMapper) ToDomain(s *db.SlotModel) *domain.Slot {
	phase, err := domain.ParsePhase(s.Phase)
	if err != nil {
		phase = domain.PhaseIdle
	}

	var plan *domain.DeploymentPlan
	if s.LastGoodPlan != nil && *s.LastGoodPlan != "" {
		raw := *s.LastGoodPlan
		if m.encryption != nil {
			decrypted, err := m.encryption.Decrypt(raw)
			if err != nil {
				// Log but don't fail - the slot must stay usable even if the
				// encryption key changed. Idempotence checks degrade; rollback
				// of the retained container still works.
				slog.Error("Failed to decrypt stored plan",
					"slot_id", s.ID,
					"slot_name", s.Name,
					"error", err)
				raw = ""
			} else {
				raw = decrypted
			}
		}
		if raw != "" {
			parsed, err := domain.UnmarshalPlan([]byte(raw))
			if err != nil {
				slog.Error("Failed to parse stored plan",
					"slot_id", s.ID,
					"slot_name", s.Name,
					"error", err)
			} else {
				plan = parsed
			}
		}
	}

	return &domain.Slot{
		ID:                  s.ID,
		Name:                s.Name,
		Phase:               phase,
		CurrentContainerID:  s.CurrentContainerID,
		PreviousContainerID: s.PreviousContainerID,
		CurrentImageID:      s.CurrentImageID,
		LastError:           s.LastError,
		LastGoodPlan:        plan,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func (m *SlotMapper) ToModel(s *domain.Slot) (*db.SlotModel, error) {
	model := &db.SlotModel{
		BaseModel: db.BaseModel{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
		Name:                s.Name,
		Phase:               s.Phase.String(),
		CurrentContainerID:  s.CurrentContainerID,
		PreviousContainerID: s.PreviousContainerID,
		CurrentImageID:      s.CurrentImageID,
		LastError:           s.LastError,
	}

	if s.LastGoodPlan != nil {
		snapshot, err := domain.MarshalPlan(s.LastGoodPlan)
		if err != nil {
			return nil, err
		}
		if m.encryption != nil {
			snapshot, err = m.encryption.Encrypt(snapshot)
			if err != nil {
				return nil, err
			}
		}
		model.LastGoodPlan = &snapshot
	}

	return model, nil
}

type DeploymentMapper struct{}

func (m *DeploymentMapper) ToDomain(d *db.DeploymentModel) *domain.Deployment {
	status, err := domain.ParseDeploymentStatus(d.Status)
	if err != nil {
		status = domain.DeploymentStatusStarted
	}

	return &domain.Deployment{
		ID:        d.ID,
		SlotID:    d.SlotID,
		Image:     d.Image,
		Status:    status,
		Error:     d.Error,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (m *DeploymentMapper) ToModel(d *domain.Deployment) *db.DeploymentModel {
	return &db.DeploymentModel{
		BaseModel: db.BaseModel{
			ID:        d.ID,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		SlotID: d.SlotID,
		Image:  d.Image,
		Status: d.Status.String(),
		Error:  d.Error,
	}
}
