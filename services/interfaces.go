package services

import (
	"context"

	"github.com/berth-cd/berth/domain"
)

// ContainerInfo is the inspection record returned by the runtime adapter
type ContainerInfo struct {
	ID       string
	Name     string
	ImageID  string
	Running  bool
	ExitCode int
}

// ContainerRuntime defines the contract for container engine operations.
// Every operation is synchronous, performs no internal retries, and maps
// engine failures to the typed errors in errors.go.
type ContainerRuntime interface {
	// Pull fetches the image and returns its image ID (digest)
	Pull(ctx context.Context, image string) (string, error)
	// Run creates and starts a container from the plan. The container ID is
	// returned even when the start step fails, so the caller can clean up.
	Run(ctx context.Context, plan *domain.DeploymentPlan, env []string) (string, error)
	Start(ctx context.Context, containerID string) error
	Stop(ctx context.Context, containerID string) error
	Remove(ctx context.Context, containerID string) error
	Rename(ctx context.Context, containerID, name string) error
	Inspect(ctx context.Context, nameOrID string) (*ContainerInfo, error)
	// Logs returns up to tail demultiplexed log lines
	Logs(ctx context.Context, containerID string, tail int) (string, error)
	// Exec runs a command inside the container and returns its exit code
	Exec(ctx context.Context, containerID string, command string) (int, error)
}

// HealthChecker decides whether a started container is ready to serve
type HealthChecker interface {
	Verify(ctx context.Context, plan *domain.DeploymentPlan, containerID string) error
}

// Deployer is the contract the CLI commands and HTTP handlers program against
type Deployer interface {
	Apply(ctx context.Context, plan *domain.DeploymentPlan) (*domain.Slot, error)
	Rollback(ctx context.Context, name string) (*domain.Slot, error)
	Status(name string) (*domain.Slot, error)
	List() ([]*domain.Slot, error)
	History(name string) ([]*domain.Deployment, error)
}
