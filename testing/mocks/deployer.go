// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"

	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/services"
)

// MockDeployer implements the Deployer interface for testing
type MockDeployer struct {
	ApplyFunc    func(ctx context.Context, plan *domain.DeploymentPlan) (*domain.Slot, error)
	RollbackFunc func(ctx context.Context, name string) (*domain.Slot, error)
	StatusFunc   func(name string) (*domain.Slot, error)
	ListFunc     func() ([]*domain.Slot, error)
	HistoryFunc  func(name string) ([]*domain.Deployment, error)
}

var _ services.Deployer = (*MockDeployer)(nil)

func (m *MockDeployer) Apply(ctx context.Context, plan *domain.DeploymentPlan) (*domain.Slot, error) {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, plan)
	}
	return domain.NewSlot(plan.ContainerName), nil
}

func (m *MockDeployer) Rollback(ctx context.Context, name string) (*domain.Slot, error) {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx, name)
	}
	return domain.NewSlot(name), nil
}

func (m *MockDeployer) Status(name string) (*domain.Slot, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(name)
	}
	return domain.NewSlot(name), nil
}

func (m *MockDeployer) List() ([]*domain.Slot, error) {
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	return []*domain.Slot{}, nil
}

func (m *MockDeployer) History(name string) ([]*domain.Deployment, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(name)
	}
	return []*domain.Deployment{}, nil
}
