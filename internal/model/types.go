// types.go defines the core domain types for tmuctl: service roles,
// stack status, port mappings, and the runtime entities reconstructed
// from Docker container labels.
package model

import (
	"fmt"
	"strings"
)

// ServiceRole identifies which tier of the application a service belongs to.
// The stack always declares exactly one service per role: the frontend
// serves the static build, the backend serves the HTTP API. The database
// is remote and never appears as a service.
type ServiceRole string

const (
	// RoleFrontend is the static web tier. Its image is built in two
	// stages (build the assets, then serve them) and it publishes the
	// web port.
	RoleFrontend ServiceRole = "frontend"

	// RoleBackend is the API tier. Its image is built in a single stage
	// and it publishes the API port. It is the only service that
	// receives the database connection string.
	RoleBackend ServiceRole = "backend"
)

// String returns the string representation of the service role.
func (r ServiceRole) String() string {
	return string(r)
}

// IsValid reports whether the role is one of the defined values.
func (r ServiceRole) IsValid() bool {
	switch r {
	case RoleFrontend, RoleBackend:
		return true
	}
	return false
}

// ParseServiceRole converts a string to a ServiceRole.
// The comparison is case-insensitive. Returns an error for unknown values.
func ParseServiceRole(s string) (ServiceRole, error) {
	role := ServiceRole(strings.ToLower(s))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid service role %q (must be %q or %q)", s, RoleFrontend, RoleBackend)
	}
	return role, nil
}

// StackStatus represents the aggregate state of a deployed stack,
// derived from the states of its containers and the existence of the
// project directory recorded in their labels.
type StackStatus string

const (
	// StatusRunning means every container in the stack is running.
	StatusRunning StackStatus = "running"

	// StatusDegraded means at least one container is running but not all.
	// Typically the backend failed its healthcheck and the frontend was
	// never started, or one container exited after startup.
	StatusDegraded StackStatus = "degraded"

	// StatusStopped means all containers exist but none are running.
	StatusStopped StackStatus = "stopped"

	// StatusOrphaned means containers exist but the project directory
	// recorded in their labels no longer exists on disk. This happens
	// when the checkout is deleted without running `tmuctl down` first.
	StatusOrphaned StackStatus = "orphaned"
)

// String returns the string representation of the stack status.
func (s StackStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is one of the defined values.
func (s StackStatus) IsValid() bool {
	switch s {
	case StatusRunning, StatusDegraded, StatusStopped, StatusOrphaned:
		return true
	}
	return false
}

// ParseStackStatus converts a string to a StackStatus.
// The comparison is case-insensitive. Returns an error for unknown values.
func ParseStackStatus(s string) (StackStatus, error) {
	status := StackStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid stack status %q", s)
	}
	return status, nil
}

// Container health states as reported by the Docker Engine for
// containers that declare a healthcheck. HealthNone is used for
// containers without a healthcheck (the frontend).
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthStarting  = "starting"
	HealthNone      = ""
)

// ValidateName checks that a stack or service name is valid.
//
// Rules:
//   - must not be empty
//   - only lowercase letters, digits, and hyphens
//   - must start and end with a letter or digit
//
// These rules match what Docker Compose accepts for project and service
// names, so a valid name here never needs escaping downstream.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}

	for i, r := range name {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		isHyphen := r == '-'

		if !isAlnum && !isHyphen {
			return fmt.Errorf("name %q contains invalid character %q (only lowercase letters, digits, and hyphens are allowed)", name, r)
		}
		if isHyphen && (i == 0 || i == len(name)-1) {
			return fmt.Errorf("name %q must start and end with a letter or digit", name)
		}
	}

	return nil
}

// PortMapping describes one published port: a container port exposed on
// a host port. Mappings come from the deploy config in "host:container"
// form and are compared against live container state at status time.
type PortMapping struct {
	// ServiceName is the service this mapping belongs to.
	ServiceName string `json:"serviceName"`

	// ContainerPort is the port the process listens on inside the
	// container (e.g., 80 for the frontend web server, 3000 for the API).
	ContainerPort int `json:"containerPort"`

	// HostPort is the port published on the host. The defaults publish
	// the same number on both sides (80:80, 3000:3000).
	HostPort int `json:"hostPort"`

	// Protocol is "tcp" or "udp". Empty is treated as "tcp".
	Protocol string `json:"protocol"`
}

// Validate checks a single port mapping for correctness.
//
// Both ports must be in the range 1-65535. Host ports below 1024 are
// allowed: the default frontend mapping publishes port 80, and whether
// the daemon may bind it is the engine's concern, not ours.
func (m PortMapping) Validate() error {
	if m.ServiceName == "" {
		return fmt.Errorf("port mapping has no service name")
	}
	if m.ContainerPort < 1 || m.ContainerPort > 65535 {
		return fmt.Errorf("service %q: container port %d out of range (1-65535)", m.ServiceName, m.ContainerPort)
	}
	if m.HostPort < 1 || m.HostPort > 65535 {
		return fmt.Errorf("service %q: host port %d out of range (1-65535)", m.ServiceName, m.HostPort)
	}

	switch m.Protocol {
	case "", "tcp", "udp":
		// Empty defaults to tcp.
	default:
		return fmt.Errorf("service %q: invalid protocol %q (must be tcp or udp)", m.ServiceName, m.Protocol)
	}

	return nil
}

// String returns a human-readable representation used in CLI tables,
// e.g. "frontend 80:80/tcp".
func (m PortMapping) String() string {
	proto := m.Protocol
	if proto == "" {
		proto = "tcp"
	}
	return fmt.Sprintf("%s %d:%d/%s", m.ServiceName, m.HostPort, m.ContainerPort, proto)
}

// ValidatePortMappings checks a set of port mappings across the whole
// stack. Beyond per-mapping validation, it rejects two services (or the
// same service twice) publishing the same host port with the same
// protocol, since the second bind would fail at container start.
//
// The same host port with different protocols (tcp vs udp) is allowed.
func ValidatePortMappings(mappings []PortMapping) error {
	// seen maps "hostPort/protocol" to the service that claimed it first.
	seen := make(map[string]string)

	for _, m := range mappings {
		if err := m.Validate(); err != nil {
			return err
		}

		proto := m.Protocol
		if proto == "" {
			proto = "tcp"
		}
		key := fmt.Sprintf("%d/%s", m.HostPort, proto)

		if owner, exists := seen[key]; exists {
			return fmt.Errorf("host port %s is published by both %q and %q", key, owner, m.ServiceName)
		}
		seen[key] = m.ServiceName
	}

	return nil
}

// ContainerInfo is the subset of Docker Engine container state that
// tmuctl cares about, flattened from the Engine API list response.
type ContainerInfo struct {
	// ContainerID is the full container ID. CLI output shortens it to 12
	// characters, matching `docker ps`.
	ContainerID string `json:"containerId"`

	// ContainerName is the container name without the leading slash the
	// Engine API prepends.
	ContainerName string `json:"containerName"`

	// ServiceName is the Compose service this container belongs to,
	// read from the com.docker.compose.service label.
	ServiceName string `json:"serviceName"`

	// Role is the application tier, read from the tmu.role label.
	Role ServiceRole `json:"role"`

	// State is the engine state string: "running", "exited", "created", etc.
	State string `json:"state"`

	// Health is the healthcheck state ("healthy", "unhealthy",
	// "starting") or empty for containers without a healthcheck.
	Health string `json:"health,omitempty"`

	// CreatedAt is the container creation time as a Unix timestamp.
	// Creation order between the backend and frontend is part of the
	// deployment contract, so this is kept in seconds as the engine
	// reports it.
	CreatedAt int64 `json:"createdAt"`

	// Labels holds all labels on the container, including the tmu.*
	// management labels.
	Labels map[string]string `json:"labels,omitempty"`

	// Networks lists the names of the networks the container is
	// attached to. Both services must share a network for the frontend
	// to reach the backend by service name.
	Networks []string `json:"networks,omitempty"`

	// Ports are the currently published port mappings as reported by
	// the engine (not the configured ones).
	Ports []PortMapping `json:"ports,omitempty"`
}

// StackLabels is the management metadata tmuctl stamps onto every
// container it creates, parsed back from the tmu.* labels. Labels are
// the only persistent state: everything needed to discover, group, and
// diagnose a stack is reconstructed from them.
type StackLabels struct {
	// Stack is the stack name (Compose project name).
	Stack string `json:"stack"`

	// StackID is the UUID assigned when the deploy config was created.
	// It survives renames of the stack and ties containers back to a
	// specific deploy.json.
	StackID string `json:"stackId"`

	// ProjectPath is the absolute path of the project directory the
	// stack was deployed from. Used for orphan detection.
	ProjectPath string `json:"projectPath"`

	// Role is the application tier of the service.
	Role ServiceRole `json:"role"`
}

// StackInfo is the aggregate runtime view of one deployed stack,
// reconstructed from its containers.
type StackInfo struct {
	// Name is the stack name from the tmu.stack label.
	Name string `json:"name"`

	// StackID is the deploy config UUID from the tmu.stack-id label.
	StackID string `json:"stackId"`

	// ProjectPath is the project directory from the tmu.project-path label.
	ProjectPath string `json:"projectPath"`

	// Status is the aggregate state derived from the containers.
	Status StackStatus `json:"status"`

	// CreatedAt is the creation time of the oldest container in the
	// stack, as a Unix timestamp.
	CreatedAt int64 `json:"createdAt"`

	// Containers are all containers belonging to this stack, running or not.
	Containers []ContainerInfo `json:"containers"`
}

// ExitCode represents the process exit code for CLI error reporting.
// Scripts and CI pipelines rely on these values, so they are part of
// the CLI contract and must not be renumbered.
type ExitCode int

const (
	// ExitSuccess indicates the command completed without error.
	ExitSuccess ExitCode = 0

	// ExitGeneralError is the catch-all for unexpected failures.
	ExitGeneralError ExitCode = 1

	// ExitConfigNotFound indicates deploy.json (or a required companion
	// file such as the env file) could not be found.
	ExitConfigNotFound ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is unreachable.
	ExitDockerNotRunning ExitCode = 3

	// ExitPortConflict indicates a host port required by the stack is
	// already in use by something else.
	ExitPortConflict ExitCode = 4

	// ExitConfigInvalid indicates deploy.json was found but failed
	// validation.
	ExitConfigInvalid ExitCode = 5

	// ExitStackNotFound indicates no containers belonging to the stack
	// were found.
	ExitStackNotFound ExitCode = 6

	// ExitUserCancelled indicates the user declined a confirmation prompt.
	ExitUserCancelled ExitCode = 7

	// ExitHealthCheckFailed indicates the stack came up but did not
	// become healthy within the wait timeout, or a smoke check failed.
	ExitHealthCheckFailed ExitCode = 8
)

// CLIError is an error that carries an exit code and a user-facing
// message. The root command translates it into the process exit code
// and formats the message as text or JSON.
type CLIError struct {
	// Code is the process exit code to use.
	Code ExitCode

	// Message is the user-facing error description.
	Message string

	// Err is the underlying error, if any. Exposed via Unwrap so
	// errors.Is and errors.As work through the chain.
	Err error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain inspection.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError without an underlying error.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError that wraps an underlying error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
