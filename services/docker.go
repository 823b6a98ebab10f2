package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/berth-cd/berth/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// DockerClient wraps Docker SDK operations behind the ContainerRuntime
// contract. It holds no state of its own; side effects are confined to the
// external engine.
type DockerClient struct {
	cli *client.Client
}

// Ensure DockerClient implements ContainerRuntime
var _ ContainerRuntime = (*DockerClient)(nil)

// NewDockerClient creates a new Docker client for the configured host
func NewDockerClient(config *Config) (*DockerClient, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if config != nil && config.DockerHost != "" {
		opts = append(opts, client.WithHost(config.DockerHost))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &DockerClient{cli: cli}, nil
}

// Close closes the Docker client
func (dc *DockerClient) Close() error {
	if dc.cli != nil {
		return dc.cli.Close()
	}
	return nil
}

// Pull pulls an image and returns its image ID for idempotence checks
func (dc *DockerClient) Pull(ctx context.Context, imageName string) (string, error) {
	reader, err := dc.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return "", mapRuntimeError("pull image", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			slog.Debug("Failed to close image pull reader", "error", closeErr)
		}
	}()

	// Must consume the reader completely for the pull operation to finish
	if _, err = io.Copy(io.Discard, reader); err != nil {
		return "", mapRuntimeError("pull image", err)
	}

	inspect, err := dc.cli.ImageInspect(ctx, imageName)
	if err != nil {
		return "", mapRuntimeError("inspect image", err)
	}

	return inspect.ID, nil
}

// Run creates and starts a container described by the plan. Environment
// values are passed through opaquely and never logged.
func (dc *DockerClient) Run(ctx context.Context, plan *domain.DeploymentPlan, env []string) (string, error) {
	exposedPorts := nat.PortSet{}
	portBindings := nat.PortMap{}
	for _, binding := range plan.Ports {
		containerPort := nat.Port(fmt.Sprintf("%d/tcp", binding.Container))
		exposedPorts[containerPort] = struct{}{}
		portBindings[containerPort] = []nat.PortBinding{
			{
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(binding.Host),
			},
		}
	}

	mounts := make([]mount.Mount, 0, len(plan.Volumes))
	for _, volume := range plan.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   volume.HostPath,
			Target:   volume.ContainerPath,
			ReadOnly: volume.ReadOnly,
		})
	}

	config := &container.Config{
		Image:        plan.Image,
		Env:          env,
		ExposedPorts: exposedPorts,
	}
	hostConfig := &container.HostConfig{
		PortBindings:  portBindings,
		Mounts:        mounts,
		DNS:           plan.DNS,
		RestartPolicy: restartPolicy(plan.RestartPolicy),
	}

	slog.Debug("Creating container",
		"container_name", plan.ContainerName,
		"image", plan.Image,
		"ports", len(plan.Ports),
		"volumes", len(plan.Volumes))

	resp, err := dc.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, plan.ContainerName)
	if err != nil {
		return "", mapRuntimeError("create container", err)
	}

	if err := dc.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return resp.ID, mapRuntimeError("start container", err)
	}

	return resp.ID, nil
}

// Start starts an existing (stopped) container
func (dc *DockerClient) Start(ctx context.Context, containerID string) error {
	if err := dc.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return mapRuntimeError("start container", err)
	}
	return nil
}

// Stop stops a running container, waiting for the engine's default grace period
func (dc *DockerClient) Stop(ctx context.Context, containerID string) error {
	if err := dc.cli.ContainerStop(ctx, containerID, container.StopOptions{}); err != nil {
		return mapRuntimeError("stop container", err)
	}
	return nil
}

// Remove removes a container, killing it first if it is still running
func (dc *DockerClient) Remove(ctx context.Context, containerID string) error {
	if err := dc.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return mapRuntimeError("remove container", err)
	}
	return nil
}

// Rename renames a container
func (dc *DockerClient) Rename(ctx context.Context, containerID, name string) error {
	if err := dc.cli.ContainerRename(ctx, containerID, name); err != nil {
		return mapRuntimeError("rename container", err)
	}
	return nil
}

// Inspect returns the runtime's view of a container by name or ID
func (dc *DockerClient) Inspect(ctx context.Context, nameOrID string) (*ContainerInfo, error) {
	info, err := dc.cli.ContainerInspect(ctx, nameOrID)
	if err != nil {
		return nil, mapRuntimeError("inspect container", err)
	}

	result := &ContainerInfo{
		ID:      info.ID,
		Name:    strings.TrimPrefix(info.Name, "/"),
		ImageID: info.Image,
	}
	if info.State != nil {
		result.Running = info.State.Running
		result.ExitCode = info.State.ExitCode
	}
	return result, nil
}

// Logs returns up to tail lines of demultiplexed container output
func (dc *DockerClient) Logs(ctx context.Context, containerID string, tail int) (string, error) {
	logs, err := dc.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return "", mapRuntimeError("container logs", err)
	}
	defer func() {
		if closeErr := logs.Close(); closeErr != nil {
			slog.Debug("Failed to close container logs reader", "error", closeErr)
		}
	}()

	// Demultiplex Docker logs to remove stream headers
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return "", mapRuntimeError("container logs", err)
	}

	combined := strings.TrimSpace(stdout.String())
	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += errOut
	}
	return combined, nil
}

// Exec runs a command inside the container and returns its exit code
func (dc *DockerClient) Exec(ctx context.Context, containerID string, command string) (int, error) {
	execResp, err := dc.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          []string{"sh", "-c", command},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return -1, mapRuntimeError("exec create", err)
	}

	attach, err := dc.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return -1, mapRuntimeError("exec start", err)
	}
	defer attach.Close()

	// Drain output; the exec is finished once the stream closes
	if _, err := io.Copy(io.Discard, attach.Reader); err != nil {
		return -1, mapRuntimeError("exec output", err)
	}

	inspect, err := dc.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return -1, mapRuntimeError("exec inspect", err)
	}
	return inspect.ExitCode, nil
}

// restartPolicy maps a plan restart policy to the engine's representation
func restartPolicy(policy domain.RestartPolicy) container.RestartPolicy {
	switch policy {
	case domain.RestartPolicyOnFailure:
		return container.RestartPolicy{Name: container.RestartPolicyOnFailure}
	case domain.RestartPolicyAlways:
		return container.RestartPolicy{Name: container.RestartPolicyAlways}
	case domain.RestartPolicyUnlessStopped:
		return container.RestartPolicy{Name: container.RestartPolicyUnlessStopped}
	default:
		return container.RestartPolicy{Name: container.RestartPolicyDisabled}
	}
}

// mapRuntimeError translates engine failures into the typed taxonomy. The
// original error text is kept for operators; errors.Is matching works on the
// sentinel.
func mapRuntimeError(op string, err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch {
	case errdefs.IsNotFound(err):
		sentinel = ErrNotFound
	case errdefs.IsConflict(err):
		sentinel = ErrConflict
	case errdefs.IsUnauthorized(err) || errdefs.IsForbidden(err):
		sentinel = ErrPermissionDenied
	case client.IsErrConnectionFailed(err):
		sentinel = ErrRuntimeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		sentinel = ErrTimeout
	default:
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %v", op, sentinel, err)
}
