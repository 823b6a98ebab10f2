package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/berth-cd/berth/domain"
)

// MockHealthChecker for testing
type MockHealthChecker struct {
	VerifyFunc func(ctx context.Context, plan *domain.DeploymentPlan, containerID string) error
}

func (m *MockHealthChecker) Verify(ctx context.Context, plan *domain.DeploymentPlan, containerID string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, plan, containerID)
	}
	return nil
}

// MockContainerRuntime for testing with per-operation overrides
type MockContainerRuntime struct {
	PullFunc    func(ctx context.Context, image string) (string, error)
	RunFunc     func(ctx context.Context, plan *domain.DeploymentPlan, env []string) (string, error)
	StartFunc   func(ctx context.Context, containerID string) error
	StopFunc    func(ctx context.Context, containerID string) error
	RemoveFunc  func(ctx context.Context, containerID string) error
	RenameFunc  func(ctx context.Context, containerID, name string) error
	InspectFunc func(ctx context.Context, nameOrID string) (*ContainerInfo, error)
	LogsFunc    func(ctx context.Context, containerID string, tail int) (string, error)
	ExecFunc    func(ctx context.Context, containerID string, command string) (int, error)
}

func (m *MockContainerRuntime) Pull(ctx context.Context, image string) (string, error) {
	if m.PullFunc != nil {
		return m.PullFunc(ctx, image)
	}
	return "sha256:mock", nil
}

func (m *MockContainerRuntime) Run(ctx context.Context, plan *domain.DeploymentPlan, env []string) (string, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, plan, env)
	}
	return "mock-container-id", nil
}

func (m *MockContainerRuntime) Start(ctx context.Context, containerID string) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, containerID)
	}
	return nil
}

func (m *MockContainerRuntime) Stop(ctx context.Context, containerID string) error {
	if m.StopFunc != nil {
		return m.StopFunc(ctx, containerID)
	}
	return nil
}

func (m *MockContainerRuntime) Remove(ctx context.Context, containerID string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, containerID)
	}
	return nil
}

func (m *MockContainerRuntime) Rename(ctx context.Context, containerID, name string) error {
	if m.RenameFunc != nil {
		return m.RenameFunc(ctx, containerID, name)
	}
	return nil
}

func (m *MockContainerRuntime) Inspect(ctx context.Context, nameOrID string) (*ContainerInfo, error) {
	if m.InspectFunc != nil {
		return m.InspectFunc(ctx, nameOrID)
	}
	return &ContainerInfo{ID: nameOrID, Running: true}, nil
}

func (m *MockContainerRuntime) Logs(ctx context.Context, containerID string, tail int) (string, error) {
	if m.LogsFunc != nil {
		return m.LogsFunc(ctx, containerID, tail)
	}
	return "", nil
}

func (m *MockContainerRuntime) Exec(ctx context.Context, containerID string, command string) (int, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, containerID, command)
	}
	return 0, nil
}

// fakeRuntime is a stateful in-memory container engine for orchestrator
// tests. It tracks containers by ID and name so tests can assert how many
// containers are running for a slot after an attempt.
type fakeContainer struct {
	id      string
	name    string
	imageID string
	running bool
}

type fakeRuntime struct {
	mu         sync.Mutex
	containers map[string]*fakeContainer
	nextID     int

	pullCalls int
	runCalls  int

	// error injection
	pullErr          error
	runErr           error
	startErrByID     map[string]error
	stopErr          error
	unavailablePulls int // fail the first N pulls with ErrRuntimeUnavailable
	logTail          string

	// hang injection: Run/Start block for the duration or until the
	// context expires, whichever comes first
	runDelay   time.Duration
	startDelay time.Duration
}

// hang simulates an engine call that does not return for d, honoring the
// caller's deadline the way the real client does
func hang(ctx context.Context, d time.Duration) error {
	if d == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("engine request aborted: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		containers:   make(map[string]*fakeContainer),
		startErrByID: make(map[string]error),
	}
}

func fakeImageID(image string) string {
	return "sha256:" + image
}

func (f *fakeRuntime) Pull(ctx context.Context, image string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pullCalls++
	if f.unavailablePulls > 0 {
		f.unavailablePulls--
		return "", fmt.Errorf("pull image: %w", ErrRuntimeUnavailable)
	}
	if f.pullErr != nil {
		return "", f.pullErr
	}
	return fakeImageID(image), nil
}

func (f *fakeRuntime) Run(ctx context.Context, plan *domain.DeploymentPlan, env []string) (string, error) {
	if err := hang(ctx, f.runDelay); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.runCalls++
	if f.runErr != nil {
		return "", f.runErr
	}
	for _, c := range f.containers {
		if c.name == plan.ContainerName {
			return "", fmt.Errorf("create container: %w", ErrConflict)
		}
	}

	f.nextID++
	c := &fakeContainer{
		id:      "ctr-" + strconv.Itoa(f.nextID),
		name:    plan.ContainerName,
		imageID: fakeImageID(plan.Image),
		running: true,
	}
	f.containers[c.id] = c
	return c.id, nil
}

func (f *fakeRuntime) Start(ctx context.Context, containerID string) error {
	if err := hang(ctx, f.startDelay); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.startErrByID[containerID]; err != nil {
		return err
	}
	c, ok := f.containers[containerID]
	if !ok {
		return fmt.Errorf("start container: %w", ErrNotFound)
	}
	c.running = true
	return nil
}

func (f *fakeRuntime) Stop(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopErr != nil {
		return f.stopErr
	}
	c, ok := f.containers[containerID]
	if !ok {
		return fmt.Errorf("stop container: %w", ErrNotFound)
	}
	c.running = false
	return nil
}

func (f *fakeRuntime) Remove(ctx context.Context, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.containers[containerID]; !ok {
		return fmt.Errorf("remove container: %w", ErrNotFound)
	}
	delete(f.containers, containerID)
	return nil
}

func (f *fakeRuntime) Rename(ctx context.Context, containerID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[containerID]
	if !ok {
		return fmt.Errorf("rename container: %w", ErrNotFound)
	}
	for _, other := range f.containers {
		if other.id != containerID && other.name == name {
			return fmt.Errorf("rename container: %w", ErrConflict)
		}
	}
	c.name = name
	return nil
}

func (f *fakeRuntime) Inspect(ctx context.Context, nameOrID string) (*ContainerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[nameOrID]
	if !ok {
		for _, candidate := range f.containers {
			if candidate.name == nameOrID {
				c = candidate
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("inspect container: %w", ErrNotFound)
	}

	return &ContainerInfo{
		ID:      c.id,
		Name:    c.name,
		ImageID: c.imageID,
		Running: c.running,
	}, nil
}

func (f *fakeRuntime) Logs(ctx context.Context, containerID string, tail int) (string, error) {
	return f.logTail, nil
}

func (f *fakeRuntime) Exec(ctx context.Context, containerID string, command string) (int, error) {
	return 0, nil
}

// running returns all currently running containers
func (f *fakeRuntime) running() []*fakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*fakeContainer
	for _, c := range f.containers {
		if c.running {
			result = append(result, c)
		}
	}
	return result
}

func (f *fakeRuntime) byName(name string) *fakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.containers {
		if c.name == name {
			return c
		}
	}
	return nil
}
