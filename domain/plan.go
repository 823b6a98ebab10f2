package domain

import (
	"fmt"
	"net"
	"path/filepath"
	"reflect"
	"time"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

// RestartPolicy controls how the container runtime restarts a container
// after it exits.
type RestartPolicy int

const (
	RestartPolicyNever RestartPolicy = iota
	RestartPolicyOnFailure
	RestartPolicyAlways
	RestartPolicyUnlessStopped
)

func (p RestartPolicy) String() string {
	switch p {
	case RestartPolicyOnFailure:
		return "on-failure"
	case RestartPolicyAlways:
		return "always"
	case RestartPolicyUnlessStopped:
		return "unless-stopped"
	case RestartPolicyNever:
		return "never"
	default:
		return "never"
	}
}

func ParseRestartPolicy(s string) (RestartPolicy, error) {
	switch s {
	case "never", "":
		return RestartPolicyNever, nil
	case "on-failure":
		return RestartPolicyOnFailure, nil
	case "always":
		return RestartPolicyAlways, nil
	case "unless-stopped":
		return RestartPolicyUnlessStopped, nil
	default:
		return RestartPolicyNever, fmt.Errorf("invalid restart policy: %q", s)
	}
}

func (p RestartPolicy) MarshalYAML() (any, error) {
	return p.String(), nil
}

func (p *RestartPolicy) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseRestartPolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// HealthCheckKind selects the probe used to decide container readiness
type HealthCheckKind int

const (
	HealthCheckTCP HealthCheckKind = iota
	HealthCheckHTTP
	HealthCheckExec
)

func (k HealthCheckKind) String() string {
	switch k {
	case HealthCheckHTTP:
		return "http"
	case HealthCheckExec:
		return "exec"
	case HealthCheckTCP:
		return "tcp"
	default:
		return "tcp"
	}
}

func ParseHealthCheckKind(s string) (HealthCheckKind, error) {
	switch s {
	case "tcp":
		return HealthCheckTCP, nil
	case "http":
		return HealthCheckHTTP, nil
	case "exec":
		return HealthCheckExec, nil
	default:
		return HealthCheckTCP, fmt.Errorf("invalid health check kind: %q", s)
	}
}

// HealthCheck describes an application-level readiness probe. Polling stops
// at Timeout or after Retries attempts, whichever bounds first.
type HealthCheck struct {
	Kind     HealthCheckKind
	Target   string
	Timeout  time.Duration
	Interval time.Duration
	Retries  int
}

// healthCheckDoc is the wire form of HealthCheck. Durations are encoded as
// strings accepted by time.ParseDuration.
type healthCheckDoc struct {
	Kind     string `yaml:"kind"`
	Target   string `yaml:"target"`
	Timeout  string `yaml:"timeout,omitempty"`
	Interval string `yaml:"interval,omitempty"`
	Retries  int    `yaml:"retries,omitempty"`
}

const (
	DefaultHealthCheckTimeout  = 30 * time.Second
	DefaultHealthCheckInterval = 2 * time.Second
)

func (h HealthCheck) MarshalYAML() (any, error) {
	return healthCheckDoc{
		Kind:     h.Kind.String(),
		Target:   h.Target,
		Timeout:  h.Timeout.String(),
		Interval: h.Interval.String(),
		Retries:  h.Retries,
	}, nil
}

func (h *HealthCheck) UnmarshalYAML(node *yaml.Node) error {
	var doc healthCheckDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}

	kind, err := ParseHealthCheckKind(doc.Kind)
	if err != nil {
		return err
	}
	h.Kind = kind
	h.Target = doc.Target
	h.Retries = doc.Retries

	h.Timeout = DefaultHealthCheckTimeout
	if doc.Timeout != "" {
		d, err := time.ParseDuration(doc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid health check timeout: %w", err)
		}
		h.Timeout = d
	}

	h.Interval = DefaultHealthCheckInterval
	if doc.Interval != "" {
		d, err := time.ParseDuration(doc.Interval)
		if err != nil {
			return fmt.Errorf("invalid health check interval: %w", err)
		}
		h.Interval = d
	}

	return nil
}

// PortBinding publishes a container port on a host port
type PortBinding struct {
	Host      int `yaml:"host"`
	Container int `yaml:"container"`
}

// VolumeMount binds a host path into the container
type VolumeMount struct {
	HostPath      string `yaml:"host_path"`
	ContainerPath string `yaml:"container_path"`
	ReadOnly      bool   `yaml:"read_only,omitempty"`
}

// DeploymentPlan is an immutable description of the desired end state of one
// deployment slot. A plan is fully validated before it reaches the
// orchestrator; an invalid plan is rejected, never partially applied.
type DeploymentPlan struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Ports         []PortBinding     `yaml:"ports,omitempty"`
	Volumes       []VolumeMount     `yaml:"volumes,omitempty"`
	EnvFile       string            `yaml:"env_file,omitempty"`
	Env           map[string]string `yaml:"env,omitempty"`
	RestartPolicy RestartPolicy     `yaml:"restart_policy,omitempty"`
	DNS           []string          `yaml:"dns,omitempty"`
	HealthCheck   *HealthCheck      `yaml:"health_check,omitempty"`
}

// Validate checks the plan for structural problems. It returns a
// *ValidationError naming the offending field.
func (p *DeploymentPlan) Validate() error {
	if p.Image == "" {
		return NewValidationError("image", "must not be empty")
	}
	if p.ContainerName == "" {
		return NewValidationError("container_name", "must not be empty")
	}
	if slug.Make(p.ContainerName) != p.ContainerName {
		return NewValidationError("container_name",
			fmt.Sprintf("must be a clean identifier, e.g. %q", slug.Make(p.ContainerName)))
	}

	seenHostPorts := make(map[int]bool)
	for _, binding := range p.Ports {
		if binding.Host < 1 || binding.Host > 65535 {
			return NewValidationError("ports", fmt.Sprintf("invalid host port %d", binding.Host))
		}
		if binding.Container < 1 || binding.Container > 65535 {
			return NewValidationError("ports", fmt.Sprintf("invalid container port %d", binding.Container))
		}
		if seenHostPorts[binding.Host] {
			return NewValidationError("ports", fmt.Sprintf("duplicate host port %d", binding.Host))
		}
		seenHostPorts[binding.Host] = true
	}

	for _, volume := range p.Volumes {
		if !filepath.IsAbs(volume.HostPath) {
			return NewValidationError("volumes", fmt.Sprintf("host path %q must be absolute", volume.HostPath))
		}
		if !filepath.IsAbs(volume.ContainerPath) {
			return NewValidationError("volumes", fmt.Sprintf("container path %q must be absolute", volume.ContainerPath))
		}
	}

	for _, addr := range p.DNS {
		if net.ParseIP(addr) == nil {
			return NewValidationError("dns", fmt.Sprintf("invalid IP address %q", addr))
		}
	}

	if p.HealthCheck != nil {
		if err := p.HealthCheck.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (h *HealthCheck) validate() error {
	if h.Target == "" {
		return NewValidationError("health_check.target", "must not be empty")
	}
	if h.Timeout <= 0 {
		return NewValidationError("health_check.timeout", "must be positive")
	}
	if h.Interval <= 0 {
		return NewValidationError("health_check.interval", "must be positive")
	}
	if h.Retries < 0 {
		return NewValidationError("health_check.retries", "must not be negative")
	}
	return nil
}

// Equal reports whether two plans describe the same desired state. A plan
// that round-trips through its persisted form compares equal to the
// original, so re-applying it does not trigger a spurious deployment.
func (p *DeploymentPlan) Equal(other *DeploymentPlan) bool {
	if p == nil || other == nil {
		return p == other
	}
	return reflect.DeepEqual(p.normalized(), other.normalized())
}

func (p *DeploymentPlan) normalized() *DeploymentPlan {
	c := *p
	if len(c.Ports) == 0 {
		c.Ports = nil
	}
	if len(c.Volumes) == 0 {
		c.Volumes = nil
	}
	if len(c.Env) == 0 {
		c.Env = nil
	}
	if len(c.DNS) == 0 {
		c.DNS = nil
	}
	return &c
}

// MarshalPlan serializes a plan to its persisted YAML form.
func MarshalPlan(p *DeploymentPlan) (string, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to serialize plan: %w", err)
	}
	return string(data), nil
}

// UnmarshalPlan parses a persisted plan. Unknown fields are ignored so plans
// written by newer versions still load.
func UnmarshalPlan(data []byte) (*DeploymentPlan, error) {
	var p DeploymentPlan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return &p, nil
}
