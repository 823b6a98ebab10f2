package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/berth-cd/berth/domain"
	"github.com/berth-cd/berth/repository"
	"gorm.io/gorm"
)

// previousSuffix is appended to the container name of the retained last-good
// container while a newer one occupies the slot name.
const previousSuffix = "-previous"

// logTailLines bounds how much failed-container output is attached to errors
const logTailLines = 20

// Orchestrator drives a slot from its current state to the state described
// by a deployment plan. One deployment is in flight per slot at any time;
// deployments to different slots proceed in parallel. Status readers do not
// take the slot lock and may observe a stale snapshot.
type Orchestrator struct {
	slots       repository.SlotRepository
	deployments repository.DeploymentRepository
	runtime     ContainerRuntime
	health      HealthChecker
	config      *Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Ensure Orchestrator implements Deployer
var _ Deployer = (*Orchestrator)(nil)

func NewOrchestrator(
	slots repository.SlotRepository,
	deployments repository.DeploymentRepository,
	runtime ContainerRuntime,
	health HealthChecker,
	config *Config,
) *Orchestrator {
	return &Orchestrator{
		slots:       slots,
		deployments: deployments,
		runtime:     runtime,
		health:      health,
		config:      config,
		locks:       make(map[string]*sync.Mutex),
	}
}

// acquire takes the slot lock without blocking. ErrLockContention means
// another deployment already holds the slot; nothing was applied.
func (o *Orchestrator) acquire(name string) (func(), error) {
	o.mu.Lock()
	lock, ok := o.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[name] = lock
	}
	o.mu.Unlock()

	if !lock.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrLockContention, name)
	}
	return lock.Unlock, nil
}

// Apply drives the slot named by the plan to the plan's desired state. The
// deployment outcome is encoded in the returned slot's phase (committed,
// rolled-back or failed); a non-nil error means the deployment was rejected
// before anything was applied.
func (o *Orchestrator) Apply(ctx context.Context, plan *domain.DeploymentPlan) (*domain.Slot, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	// Resolve the environment up front: a broken env file rejects the plan
	// before any runtime call
	env, err := ResolveEnvironment(plan)
	if err != nil {
		return nil, err
	}

	release, err := o.acquire(plan.ContainerName)
	if err != nil {
		return nil, err
	}
	defer release()

	slot, err := o.slots.FindByName(plan.ContainerName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slot, err = o.slots.Create(domain.NewSlot(plan.ContainerName))
	}
	if err != nil {
		return nil, err
	}

	attempt := domain.NewDeployment(slot.ID, plan.Image)
	if err := o.deployments.Create(attempt); err != nil {
		return nil, err
	}

	slog.Info("Starting deployment",
		"slot", slot.Name,
		"image", plan.Image,
		"phase", slot.Phase.String())

	return o.apply(ctx, slot, plan, env, attempt)
}

func (o *Orchestrator) apply(
	ctx context.Context,
	slot *domain.Slot,
	plan *domain.DeploymentPlan,
	env []string,
	attempt *domain.Deployment,
) (*domain.Slot, error) {
	// Phase: pulling. The serving container is not touched until the new
	// image is known to be available.
	o.transition(slot, domain.PhasePulling)

	imageID, err := o.pullImage(ctx, plan.Image)
	if err != nil {
		// No runtime-level change was made; surface directly
		return o.fail(slot, attempt, fmt.Errorf("%w: %v", ErrPullFailed, err)), nil
	}

	// Idempotent re-apply: identical plan, committed, and the running
	// container already matches the pulled image digest
	if o.alreadyCommitted(ctx, slot, plan, imageID) {
		slog.Info("Plan already applied, nothing to do", "slot", slot.Name, "image", plan.Image)
		slot.SetError(nil)
		o.transition(slot, domain.PhaseCommitted)
		o.settleAttempt(attempt, domain.DeploymentStatusCommitted, nil)
		return slot, nil
	}

	if err := ctx.Err(); err != nil {
		// Canceled before the serving container was touched
		return o.fail(slot, attempt, fmt.Errorf("%w: %v", ErrCanceled, err)), nil
	}

	// Phase: stopping-old. The retained grandparent container is retired
	// first so its name and slot become available for the new previous.
	var oldID *string
	if slot.CurrentContainerID != nil {
		id := *slot.CurrentContainerID
		oldID = &id

		o.transition(slot, domain.PhaseStoppingOld)

		if slot.PreviousContainerID != nil {
			if err := o.runtime.Remove(ctx, *slot.PreviousContainerID); err != nil && !errors.Is(err, ErrNotFound) {
				return o.fail(slot, attempt, err), nil
			}
			slot.PreviousContainerID = nil
			o.save(slot)
		}

		if err := o.retireOld(ctx, id, plan.ContainerName); err != nil {
			if errors.Is(err, ErrNotFound) {
				// The recorded container is gone; nothing to stop or restore
				oldID = nil
				slot.CurrentContainerID = nil
				o.save(slot)
			} else {
				return o.rollback(ctx, slot, attempt, oldID, plan.ContainerName, err), nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return o.rollback(ctx, slot, attempt, oldID, plan.ContainerName,
			fmt.Errorf("%w: %v", ErrCanceled, err)), nil
	}

	// Phase: starting-new
	o.transition(slot, domain.PhaseStartingNew)

	newID, err := o.startNew(ctx, plan, env)
	if err != nil {
		if newID != "" {
			o.cleanupContainer(ctx, newID)
		}
		return o.rollback(ctx, slot, attempt, oldID, plan.ContainerName,
			fmt.Errorf("%w: %v", ErrStartFailed, err)), nil
	}

	// Phase: health-checking. From here on, cancellation means rollback, not
	// abort, so the slot is never left with zero containers on purpose.
	o.transition(slot, domain.PhaseHealthChecking)

	if herr := o.health.Verify(ctx, plan, newID); herr != nil {
		cause := fmt.Errorf("%w: %v", ErrHealthCheckFailed, herr)
		if tail := o.containerLogTail(newID); tail != "" {
			cause = fmt.Errorf("%w\ncontainer output:\n%s", cause, tail)
		}
		o.cleanupContainer(ctx, newID)
		return o.rollback(ctx, slot, attempt, oldID, plan.ContainerName, cause), nil
	}

	// Commit: the new container becomes the system of record; its
	// predecessor is retained, stopped, for rollback
	slot.PreviousContainerID = oldID
	slot.CurrentContainerID = &newID
	slot.CurrentImageID = imageID
	slot.LastGoodPlan = plan
	slot.SetError(nil)
	o.transition(slot, domain.PhaseCommitted)
	o.settleAttempt(attempt, domain.DeploymentStatusCommitted, nil)

	slog.Info("Deployment committed",
		"slot", slot.Name,
		"image", plan.Image,
		"container_id", shortID(newID))
	return slot, nil
}

// Rollback forces the slot back onto its retained previous container. It is
// also the recovery path after a crash mid-deployment.
func (o *Orchestrator) Rollback(ctx context.Context, name string) (*domain.Slot, error) {
	release, err := o.acquire(name)
	if err != nil {
		return nil, err
	}
	defer release()

	slot, err := o.slots.FindByName(name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	if slot.PreviousContainerID == nil {
		return nil, fmt.Errorf("%w: slot %s", ErrNoPreviousContainer, name)
	}
	prevID := *slot.PreviousContainerID

	image := ""
	if slot.LastGoodPlan != nil {
		image = slot.LastGoodPlan.Image
	}
	attempt := domain.NewDeployment(slot.ID, image)
	if err := o.deployments.Create(attempt); err != nil {
		return nil, err
	}

	slog.Info("Forcing rollback", "slot", name, "previous_container_id", shortID(prevID))

	if slot.CurrentContainerID != nil && *slot.CurrentContainerID != prevID {
		o.cleanupContainer(ctx, *slot.CurrentContainerID)
		slot.CurrentContainerID = nil
		o.save(slot)
	}

	if err := o.restorePrevious(ctx, prevID, name); err != nil {
		cause := fmt.Errorf("%w: %v", ErrRollbackFailed, err)
		return o.fail(slot, attempt, cause), nil
	}

	info, err := o.runtime.Inspect(ctx, prevID)
	if err == nil {
		slot.CurrentImageID = info.ImageID
	}
	slot.CurrentContainerID = &prevID
	slot.PreviousContainerID = nil
	slot.SetError(nil)
	o.transition(slot, domain.PhaseRolledBack)
	o.settleAttempt(attempt, domain.DeploymentStatusRolledBack, nil)
	return slot, nil
}

// Status returns the slot's last persisted snapshot without taking the slot
// lock; callers tolerate staleness.
func (o *Orchestrator) Status(name string) (*domain.Slot, error) {
	slot, err := o.slots.FindByName(name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	return slot, err
}

// List returns all slots
func (o *Orchestrator) List() ([]*domain.Slot, error) {
	return o.slots.List()
}

// History returns the audit trail of deployment attempts for a slot
func (o *Orchestrator) History(name string) ([]*domain.Deployment, error) {
	slot, err := o.Status(name)
	if err != nil {
		return nil, err
	}
	return o.deployments.ListBySlotID(slot.ID)
}

// pullImage pulls with the pull timeout and bounded runtime retries
func (o *Orchestrator) pullImage(ctx context.Context, image string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.PullTimeout)
	defer cancel()

	var imageID string
	err := o.withRetry(ctx, func() error {
		var err error
		imageID, err = o.runtime.Pull(ctx, image)
		return err
	})
	return imageID, err
}

// startNew creates and starts the replacement container with the start
// timeout, so a hung engine start fails the phase instead of hanging the
// deployment after the old container was already retired.
func (o *Orchestrator) startNew(ctx context.Context, plan *domain.DeploymentPlan, env []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.StartTimeout)
	defer cancel()
	return o.runtime.Run(ctx, plan, env)
}

// alreadyCommitted reports whether re-applying the plan would change nothing
func (o *Orchestrator) alreadyCommitted(ctx context.Context, slot *domain.Slot, plan *domain.DeploymentPlan, imageID string) bool {
	if slot.Phase != domain.PhaseCommitted || slot.CurrentContainerID == nil {
		return false
	}
	if !plan.Equal(slot.LastGoodPlan) || slot.CurrentImageID != imageID {
		return false
	}

	info, err := o.runtime.Inspect(ctx, *slot.CurrentContainerID)
	return err == nil && info.Running && info.ImageID == imageID
}

// retireOld renames the serving container aside and stops it. It is not
// removed until the replacement commits, so rollback can restart it.
func (o *Orchestrator) retireOld(ctx context.Context, oldID, name string) error {
	if err := o.runtime.Rename(ctx, oldID, name+previousSuffix); err != nil {
		return err
	}

	stopCtx, cancel := context.WithTimeout(ctx, o.config.StopTimeout)
	defer cancel()
	return o.withRetry(stopCtx, func() error {
		return o.runtime.Stop(stopCtx, oldID)
	})
}

// restorePrevious renames the retained container back to the slot name,
// starts it, and confirms it is running.
func (o *Orchestrator) restorePrevious(ctx context.Context, prevID, name string) error {
	if err := o.runtime.Rename(ctx, prevID, name); err != nil && !errors.Is(err, ErrConflict) {
		return err
	}
	startCtx, cancel := context.WithTimeout(ctx, o.config.StartTimeout)
	defer cancel()
	if err := o.runtime.Start(startCtx, prevID); err != nil {
		return err
	}

	info, err := o.runtime.Inspect(ctx, prevID)
	if err != nil {
		return err
	}
	if !info.Running {
		return fmt.Errorf("restored container exited with code %d", info.ExitCode)
	}
	return nil
}

// rollback handles a failed attempt. When a previous good container exists
// it is restored and the slot ends rolled-back; on a first-ever deployment
// there is nothing to restore, so the failure surfaces directly with phase
// failed and zero running containers.
func (o *Orchestrator) rollback(
	ctx context.Context,
	slot *domain.Slot,
	attempt *domain.Deployment,
	oldID *string,
	name string,
	cause error,
) *domain.Slot {
	if oldID == nil {
		return o.fail(slot, attempt, cause)
	}

	// The triggering context may already be canceled; the restore must still
	// run so the slot is not left empty
	restoreCtx := context.WithoutCancel(ctx)

	if err := o.restorePrevious(restoreCtx, *oldID, name); err != nil {
		// The restore itself failed - do not loop, surface both failures
		return o.fail(slot, attempt, errors.Join(cause, fmt.Errorf("%w: %v", ErrRollbackFailed, err)))
	}

	slot.CurrentContainerID = oldID
	slot.SetError(cause)
	o.transition(slot, domain.PhaseRolledBack)
	o.settleAttempt(attempt, domain.DeploymentStatusRolledBack, cause)

	slog.Warn("Deployment rolled back",
		"slot", slot.Name,
		"restored_container_id", shortID(*oldID),
		"error", cause)
	return slot
}

// fail marks the attempt failed and surfaces the error through the slot
func (o *Orchestrator) fail(slot *domain.Slot, attempt *domain.Deployment, cause error) *domain.Slot {
	slot.SetError(cause)
	o.transition(slot, domain.PhaseFailed)
	o.settleAttempt(attempt, domain.DeploymentStatusFailed, cause)

	slog.Error("Deployment failed", "slot", slot.Name, "error", cause)
	return slot
}

// transition advances the slot's phase and persists it immediately so the
// state survives a crash mid-deployment
func (o *Orchestrator) transition(slot *domain.Slot, phase domain.Phase) {
	slot.Phase = phase
	o.save(slot)
	slog.Debug("Phase transition", "slot", slot.Name, "phase", phase.String())
}

func (o *Orchestrator) save(slot *domain.Slot) {
	if err := o.slots.Update(slot); err != nil {
		slog.Error("Failed to persist slot state",
			"slot", slot.Name,
			"phase", slot.Phase.String(),
			"error", err)
	}
}

func (o *Orchestrator) settleAttempt(attempt *domain.Deployment, status domain.DeploymentStatus, cause error) {
	attempt.Status = status
	if cause != nil {
		attempt.Error = cause.Error()
	}
	if err := o.deployments.Update(attempt); err != nil {
		slog.Error("Failed to persist deployment record",
			"deployment_id", attempt.ID,
			"error", err)
	}
}

// cleanupContainer force-removes a container that must not keep its name or
// ports. Best effort; failures are logged, not surfaced.
func (o *Orchestrator) cleanupContainer(ctx context.Context, containerID string) {
	removeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.StopTimeout)
	defer cancel()

	if err := o.runtime.Remove(removeCtx, containerID); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Warn("Failed to remove container", "container_id", shortID(containerID), "error", err)
	}
}

// containerLogTail fetches the failed container's last output for the error
// detail. Best effort.
func (o *Orchestrator) containerLogTail(containerID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tail, err := o.runtime.Logs(ctx, containerID, logTailLines)
	if err != nil {
		return ""
	}
	return tail
}

// withRetry retries fn with exponential backoff while the failure is the
// runtime being unreachable. All other failures return immediately.
func (o *Orchestrator) withRetry(ctx context.Context, fn func() error) error {
	backoff := o.config.RuntimeRetryBackoff
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, ErrRuntimeUnavailable) || attempt >= o.config.RuntimeRetries {
			return err
		}

		slog.Warn("Container runtime unavailable, retrying",
			"attempt", attempt+1,
			"backoff", backoff.String())
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
