package services

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/berth-cd/berth/domain"
)

// HealthVerifier polls a newly started container for readiness. Polling runs
// at the declared interval up to the declared retry count or until the
// timeout elapses, whichever bounds first; it never blocks past the timeout.
type HealthVerifier struct {
	runtime ContainerRuntime
	// grace is waited before the single process-running check used when a
	// plan declares no health check
	grace  time.Duration
	client *http.Client
}

// Ensure HealthVerifier implements HealthChecker
var _ HealthChecker = (*HealthVerifier)(nil)

func NewHealthVerifier(runtime ContainerRuntime, grace time.Duration) *HealthVerifier {
	return &HealthVerifier{
		runtime: runtime,
		grace:   grace,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Verify returns nil when the container is ready to serve. A plan without a
// health check degrades to a single "process still running" check after the
// startup grace period.
func (v *HealthVerifier) Verify(ctx context.Context, plan *domain.DeploymentPlan, containerID string) error {
	if plan.HealthCheck == nil {
		return v.verifyRunning(ctx, containerID)
	}

	check := plan.HealthCheck
	ctx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	ticker := time.NewTicker(check.Interval)
	defer ticker.Stop()

	attempts := 0
	var lastErr error
	for {
		lastErr = v.probe(ctx, plan, check, containerID)
		if lastErr == nil {
			slog.Debug("Health check passed",
				"container_name", plan.ContainerName,
				"kind", check.Kind.String(),
				"attempts", attempts+1)
			return nil
		}

		attempts++
		if check.Retries > 0 && attempts >= check.Retries {
			return fmt.Errorf("unhealthy after %d attempts: %w", attempts, lastErr)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("unhealthy after %v (%d attempts): %w", check.Timeout, attempts, lastErr)
		case <-ticker.C:
		}
	}
}

// verifyRunning inspects the container once after the grace period
func (v *HealthVerifier) verifyRunning(ctx context.Context, containerID string) error {
	if v.grace > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(v.grace):
		}
	}

	info, err := v.runtime.Inspect(ctx, containerID)
	if err != nil {
		return fmt.Errorf("failed to inspect container: %w", err)
	}
	if !info.Running {
		return fmt.Errorf("container exited with code %d", info.ExitCode)
	}
	return nil
}

func (v *HealthVerifier) probe(ctx context.Context, plan *domain.DeploymentPlan, check *domain.HealthCheck, containerID string) error {
	// Bound each probe by the poll interval so a stuck probe cannot eat the
	// whole timeout window
	probeCtx, cancel := context.WithTimeout(ctx, check.Interval)
	defer cancel()

	switch check.Kind {
	case domain.HealthCheckTCP:
		return v.probeTCP(probeCtx, check.Target)
	case domain.HealthCheckHTTP:
		return v.probeHTTP(probeCtx, plan, check.Target)
	case domain.HealthCheckExec:
		return v.probeExec(probeCtx, containerID, check.Target)
	default:
		return fmt.Errorf("unsupported health check kind: %s", check.Kind)
	}
}

// probeTCP opens a connection to the published host port. The target is a
// bare port, ":port", or "host:port".
func (v *HealthVerifier) probeTCP(ctx context.Context, target string) error {
	address := target
	if !strings.Contains(address, ":") {
		address = "127.0.0.1:" + address
	} else if strings.HasPrefix(address, ":") {
		address = "127.0.0.1" + address
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("tcp dial %s: %w", address, err)
	}
	return conn.Close()
}

// probeHTTP issues a GET and treats any 2xx status as healthy. The target is
// a full URL or a path served on the plan's first published host port.
func (v *HealthVerifier) probeHTTP(ctx context.Context, plan *domain.DeploymentPlan, target string) error {
	url := target
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		if len(plan.Ports) == 0 {
			return fmt.Errorf("http health check needs a published port or a full URL")
		}
		if !strings.HasPrefix(url, "/") {
			url = "/" + url
		}
		url = "http://127.0.0.1:" + strconv.Itoa(plan.Ports[0].Host) + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http get %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// probeExec runs the target command inside the container; exit 0 is healthy
func (v *HealthVerifier) probeExec(ctx context.Context, containerID, command string) error {
	exitCode, err := v.runtime.Exec(ctx, containerID, command)
	if err != nil {
		return fmt.Errorf("exec check: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("exec check exited with code %d", exitCode)
	}
	return nil
}
