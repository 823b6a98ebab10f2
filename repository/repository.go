package repository

import (
	"log/slog"

	"github.com/berth-cd/berth/db"
	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/encryption"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SlotRepository interface {
	FindByID(id uuid.UUID) (*domain.Slot, error)
	FindByName(name string) (*domain.Slot, error)
	Create(slot *domain.Slot) (*domain.Slot, error)
	Update(slot *domain.Slot) error
	List() ([]*domain.Slot, error)
}

type slotRepository struct {
	db     *gorm.DB
	mapper *SlotMapper
}

func (r *slotRepository) List() ([]*domain.Slot, error) {
	var models []db.SlotModel
	if err := r.db.Order("name").Find(&models).Error; err != nil {
		return nil, err
	}

	slots := make([]*domain.Slot, len(models))
	for i, model := range models {
		slots[i] = r.mapper.ToDomain(&model)
	}
	return slots, nil
}

func (r *slotRepository) FindByID(id uuid.UUID) (*domain.Slot, error) {
	var m db.SlotModel
	if err := r.db.First(&m, id).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "find_slot",
			"slot_id", id,
			"error", err)
		return nil, err // Pass through as-is
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *slotRepository) FindByName(name string) (*domain.Slot, error) {
	var m db.SlotModel
	if err := r.db.Where("name = ?", name).First(&m).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *slotRepository) Create(slot *domain.Slot) (*domain.Slot, error) {
	m, err := r.mapper.ToModel(slot)
	if err != nil {
		return nil, err
	}

	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_slot",
			"slot_id", slot.ID,
			"slot_name", slot.Name,
			"error", err)
		return nil, err // Pass through as-is
	}
	return r.mapper.ToDomain(m), nil
}

func (r *slotRepository) Update(slot *domain.Slot) error {
	m, err := r.mapper.ToModel(slot)
	if err != nil {
		return err
	}

	// Use Select to explicitly update all fields except CreatedAt, including
	// cleared (nil) container IDs and errors
	return r.db.Model(&db.SlotModel{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("created_at").
		Updates(m).
		Error
}

func NewSlotRepository(db *gorm.DB, encryptionSvc *encryption.EncryptionService) SlotRepository {
	return &slotRepository{
		db:     db,
		mapper: NewSlotMapper(encryptionSvc),
	}
}

type DeploymentRepository interface {
	FindByID(id uuid.UUID) (*domain.Deployment, error)
	Create(deployment *domain.Deployment) error
	Update(deployment *domain.Deployment) error
	ListBySlotID(slotID uuid.UUID) ([]*domain.Deployment, error)
}

type deploymentRepository struct {
	db     *gorm.DB
	mapper *DeploymentMapper
}

func (r *deploymentRepository) FindByID(id uuid.UUID) (*domain.Deployment, error) {
	var m db.DeploymentModel
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *deploymentRepository) Create(deployment *domain.Deployment) error {
	m := r.mapper.ToModel(deployment)
	if err := r.db.Create(m).Error; err != nil {
		return err
	}
	// Update the domain object with the timestamps that GORM populated
	*deployment = *r.mapper.ToDomain(m)
	return nil
}

func (r *deploymentRepository) Update(deployment *domain.Deployment) error {
	m := r.mapper.ToModel(deployment)
	if err := r.db.Save(m).Error; err != nil {
		return err
	}
	*deployment = *r.mapper.ToDomain(m)
	return nil
}

func (r *deploymentRepository) ListBySlotID(slotID uuid.UUID) ([]*domain.Deployment, error) {
	var models []db.DeploymentModel
	if err := r.db.Where("slot_id = ?", slotID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	deployments := make([]*domain.Deployment, len(models))
	for i, m := range models {
		deployments[i] = r.mapper.ToDomain(&m)
	}
	return deployments, nil
}

func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepository{
		db:     db,
		mapper: &DeploymentMapper{},
	}
}
