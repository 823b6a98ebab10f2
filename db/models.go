// Package db provides database models and utilities for Berth.
package db

import (
	"time"

	"github.com/google/uuid"
)

type BaseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotModel is the durable record of one deployment slot. Records are never
// deleted, only transitioned, so the last two container revisions stay
// reconstructable for rollback.
type SlotModel struct {
	BaseModel
	Name                string  `gorm:"not null;unique;check:name <> ''"`
	Phase               string  `gorm:"not null;check:phase <> ''"` // idle, pulling, ..., committed, rolled-back, failed
	CurrentContainerID  *string `gorm:"type:varchar(64)"`
	PreviousContainerID *string `gorm:"type:varchar(64)"`
	CurrentImageID      string  // image digest of the committed container
	LastError           *string `gorm:"type:text"`
	LastGoodPlan        *string `gorm:"type:text"` // YAML plan snapshot, encrypted when a key is configured

	Deployments []DeploymentModel `gorm:"foreignKey:SlotID;constraint:OnDelete:CASCADE"`
}

func (SlotModel) TableName() string {
	return "slots"
}

// DeploymentModel is the audit record of a single deployment attempt
type DeploymentModel struct {
	BaseModel
	SlotID uuid.UUID `gorm:"not null;index"`
	Image  string    `gorm:"not null;check:image <> ''"`
	Status string    `gorm:"not null;check:status <> ''"` // started, committed, rolled-back, failed
	Error  string    `gorm:"type:text"`

	Slot SlotModel `gorm:"foreignKey:SlotID;constraint:OnDelete:CASCADE"`
}

func (DeploymentModel) TableName() string {
	return "deployments"
}

// MigrationModel tracks which named migrations have been applied
type MigrationModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;unique"`
	AppliedAt time.Time
}

func (MigrationModel) TableName() string {
	return "migrations"
}
