// container.go implements container discovery and lifecycle operations
// against the Docker Engine API.
//
// Discovery always goes through the tmu.managed-by label filter, so
// tmuctl only ever sees (and touches) containers it created. The
// lifecycle wrappers here operate on single containers; whole-stack
// lifecycle goes through the Compose CLI in compose.go.
package docker

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	// types.Container is the struct returned by ContainerList.
	"github.com/docker/docker/api/types"

	// container provides ListOptions, StartOptions, StopOptions,
	// RemoveOptions for Docker container operations.
	"github.com/docker/docker/api/types/container"

	// filters provides the Args type for server-side Docker API filtering.
	"github.com/docker/docker/api/types/filters"

	"github.com/jude-san/TMU-app/internal/model"
)

// containerLister is the slice of the Engine API that discovery needs.
// Tests substitute a fake so listing logic runs without a daemon.
type containerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// ListManagedContainers queries the Docker daemon for all containers
// created by tmuctl, across every stack on the host.
//
// Stopped and exited containers are included: a stack that was stopped
// with `tmuctl stop` still exists and must show up in `tmuctl status`.
func ListManagedContainers(ctx context.Context, cli *Client) ([]model.ContainerInfo, error) {
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)
	return listContainers(ctx, cli.Inner(), filterArgs)
}

// ListStackContainers queries the Docker daemon for the containers of a
// single named stack. The result includes stopped containers.
func ListStackContainers(ctx context.Context, cli *Client, stackName string) ([]model.ContainerInfo, error) {
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
		filters.Arg("label", LabelStack+"="+stackName),
	)
	return listContainers(ctx, cli.Inner(), filterArgs)
}

// listContainers runs a filtered ContainerList call and converts the
// results to domain ContainerInfo values. Filtering happens server-side
// in the daemon, which is cheaper than listing everything and filtering
// in Go.
func listContainers(ctx context.Context, api containerLister, filterArgs filters.Args) ([]model.ContainerInfo, error) {
	containers, err := api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}

	return result, nil
}

// containerToInfo converts a Docker API container struct to the domain
// ContainerInfo. This is a pure mapping function; it decouples the rest
// of the application from the Docker SDK types.
//
// The Engine API returns container names with a leading "/" prefix
// (e.g. "/todo-backend"), which is stripped for display. The service
// name comes from the label Docker Compose stamps on every container it
// creates, and the role from our own tmu.role label.
func containerToInfo(c types.Container) model.ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	serviceName := c.Labels[composeServiceLabel]

	// An unparseable role means the container predates the current label
	// schema. Leave the role empty rather than failing the whole listing.
	role, err := model.ParseServiceRole(c.Labels[LabelRole])
	if err != nil {
		role = ""
	}

	// Network names, sorted so repeated status calls print them in a
	// stable order.
	var networks []string
	if c.NetworkSettings != nil {
		for netName := range c.NetworkSettings.Networks {
			networks = append(networks, netName)
		}
		sort.Strings(networks)
	}

	// Only published ports matter for diagnostics; ports that are
	// exposed but not bound to the host are omitted.
	var ports []model.PortMapping
	for _, p := range c.Ports {
		if p.PublicPort == 0 {
			continue
		}
		ports = append(ports, model.PortMapping{
			ServiceName:   serviceName,
			ContainerPort: int(p.PrivatePort),
			HostPort:      int(p.PublicPort),
			Protocol:      p.Type,
		})
	}
	sort.Slice(ports, func(i, j int) bool {
		return ports[i].HostPort < ports[j].HostPort
	})

	return model.ContainerInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		ServiceName:   serviceName,
		Role:          role,
		State:         c.State,
		Health:        parseHealth(c.Status),
		CreatedAt:     c.Created,
		Labels:        c.Labels,
		Networks:      networks,
		Ports:         ports,
	}
}

// parseHealth extracts the healthcheck state from the human-readable
// status string in the container list response, e.g.
// "Up 2 minutes (healthy)" or "Up 5 seconds (health: starting)".
//
// Containers without a healthcheck have no parenthesized suffix and
// report HealthNone.
func parseHealth(status string) string {
	switch {
	case strings.Contains(status, "(healthy)"):
		return model.HealthHealthy
	case strings.Contains(status, "(unhealthy)"):
		return model.HealthUnhealthy
	case strings.Contains(status, "(health: starting)"):
		return model.HealthStarting
	}
	return model.HealthNone
}

// GroupContainersByStack groups containers by their tmu.stack label.
// This backs `tmuctl status --all`, which displays every stack on the
// host organized by name.
//
// Containers that are not tmuctl-managed or carry no stack label are
// skipped; they cannot be attributed to any stack. ListManagedContainers
// already filters on the management label, so in practice this only
// drops containers with damaged labels.
func GroupContainersByStack(containers []model.ContainerInfo) map[string][]model.ContainerInfo {
	groups := make(map[string][]model.ContainerInfo)

	for _, c := range containers {
		if !IsManaged(c.Labels) {
			continue
		}
		stackName := c.Labels[LabelStack]
		if stackName == "" {
			continue
		}
		groups[stackName] = append(groups[stackName], c)
	}

	return groups
}

// BuildStackInfo constructs a StackInfo domain object from the
// containers that belong to one stack.
//
// The base metadata (stack ID, project path) comes from the first
// container's labels: all containers in a stack carry identical stack
// labels, so any one of them is sufficient. The aggregate status is
// derived from container states plus an on-disk check of the project
// path.
func BuildStackInfo(stackName string, containers []model.ContainerInfo) (*model.StackInfo, error) {
	if len(containers) == 0 {
		return nil, fmt.Errorf("cannot build stack %q: no containers provided", stackName)
	}

	labels, err := ParseStackLabels(containers[0].Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels for stack %q: %w", stackName, err)
	}

	// Order containers by creation time so display output and the
	// creation-order check in `tmuctl check` see the backend (created
	// first) before the frontend.
	sorted := make([]model.ContainerInfo, len(containers))
	copy(sorted, containers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})

	return &model.StackInfo{
		Name:        stackName,
		StackID:     labels.StackID,
		ProjectPath: labels.ProjectPath,
		Status:      determineStatus(sorted, labels.ProjectPath),
		CreatedAt:   EarliestCreation(sorted),
		Containers:  sorted,
	}, nil
}

// determineStatus calculates the aggregate status of a stack from its
// containers' states and whether the project directory still exists.
//
// The priority order is:
//  1. Orphaned: project path no longer exists on disk. The user deleted
//     the checkout without running `tmuctl down` first.
//  2. Running: every container is running.
//  3. Degraded: some containers are running, some are not. Typically
//     the backend failed its healthcheck so the frontend never started.
//  4. Stopped: no containers are running.
func determineStatus(containers []model.ContainerInfo, projectPath string) model.StackStatus {
	if _, err := os.Stat(projectPath); os.IsNotExist(err) {
		return model.StatusOrphaned
	}

	running := 0
	for _, c := range containers {
		if c.State == "running" {
			running++
		}
	}

	switch running {
	case len(containers):
		return model.StatusRunning
	case 0:
		return model.StatusStopped
	}
	return model.StatusDegraded
}

// EarliestCreation returns the creation time of the oldest container in
// the slice, as a Unix timestamp. Returns 0 for an empty slice.
func EarliestCreation(containers []model.ContainerInfo) int64 {
	var earliest int64
	for i, c := range containers {
		if i == 0 || c.CreatedAt < earliest {
			earliest = c.CreatedAt
		}
	}
	return earliest
}

// StartContainer starts a stopped container by ID. The daemon resumes
// the container's main process; starting an already-running container
// is an error from the engine.
//
// Whole-stack startup goes through Compose, but `tmuctl start` drives
// containers individually so it can wait for backend health before
// starting the frontend.
func StartContainer(ctx context.Context, cli *Client, containerID string) error {
	// container.StartOptions is currently empty in the Docker SDK but is
	// included for forward compatibility with future API versions.
	err := cli.Inner().ContainerStart(ctx, containerID, container.StartOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %q", containerID),
			err,
		)
	}
	return nil
}

// StopContainer stops a running container by ID. The daemon sends
// SIGTERM and escalates to SIGKILL after its default grace period
// (typically 10 seconds).
func StopContainer(ctx context.Context, cli *Client, containerID string) error {
	// StopOptions with nil Timeout uses the daemon's default timeout,
	// which gives the process a chance to shut down gracefully.
	err := cli.Inner().ContainerStop(ctx, containerID, container.StopOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to stop container %q", containerID),
			err,
		)
	}
	return nil
}

// RemoveContainer removes a container by ID. The container must be
// stopped first unless force is true, in which case the daemon kills it
// before removal.
//
// This is the fallback path for orphaned stacks, where the project
// directory (and with it the Compose manifest) is gone and
// `docker compose down` can no longer be used.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}

// RemoveNetwork removes a Docker network by ID or name. Used by the
// orphaned-stack cleanup path after all containers are removed; the
// network Compose created would otherwise leak.
//
// "not found" responses are tolerated: the network may already be gone
// if the engine pruned it.
func RemoveNetwork(ctx context.Context, cli *Client, networkID string) error {
	err := cli.Inner().NetworkRemove(ctx, networkID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil
		}
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove network %q", networkID),
			err,
		)
	}
	return nil
}
