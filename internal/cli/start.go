package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jude-san/TMU-app/internal/docker"
	"github.com/jude-san/TMU-app/internal/health"
	"github.com/jude-san/TMU-app/internal/model"
)

type startFlags struct {
	timeout time.Duration
}

// startResult records which containers were started, in order.
type startResult struct {
	Stack   string   `json:"stack"`
	Started []string `json:"started"`
	Skipped []string `json:"skipped,omitempty"`
}

// NewStartCommand creates the 'start' command.
func NewStartCommand() *cobra.Command {
	flags := &startFlags{}

	cmd := &cobra.Command{
		Use:   "start [stack]",
		Short: "Start an existing stopped stack in dependency order",
		Long: `Start brings an existing stack back up without rebuilding anything.
The backend container is started first and, when it declares a
healthcheck, the frontend is held back until the backend reports
healthy. Containers already running are left alone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, args, flags)
		},
	}

	cmd.Flags().DurationVar(&flags.timeout, "timeout", 90*time.Second, "how long to wait for the backend healthcheck")

	return cmd
}

func runStart(cmd *cobra.Command, args []string, flags *startFlags) error {
	ctx := cmd.Context()

	name, err := resolveStackName(args)
	if err != nil {
		return err
	}

	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	if err := cli.Ping(ctx); err != nil {
		return err
	}

	info, err := findStack(ctx, cli, name)
	if err != nil {
		return err
	}

	// Same preflight as up: while the stack was stopped, another
	// process may have taken one of its host ports.
	if cfg := stackConfig(info); cfg != nil {
		if err := checkHostPorts(ctx, cli, cfg); err != nil {
			return err
		}
	}

	result := &startResult{Stack: name}
	for _, c := range startOrder(info.Containers) {
		if c.State == "running" {
			log.Debugf("container %s is already running", c.ContainerName)
			result.Skipped = append(result.Skipped, c.ContainerName)
			continue
		}

		log.Debugf("starting container %s", c.ContainerName)
		if err := docker.StartContainer(ctx, cli, c.ContainerID); err != nil {
			return err
		}
		result.Started = append(result.Started, c.ContainerName)

		// Startup ordering alone does not make the stack usable: the
		// frontend proxies API calls to the backend, so wait for the
		// backend healthcheck before starting anything that depends on it.
		if c.Role == model.RoleBackend {
			if err := waitForContainerHealth(ctx, cli, name, c.ContainerID, flags.timeout); err != nil {
				return err
			}
		}
	}

	printStartResult(result)
	return nil
}

// startOrder sorts stack containers for startup: backends first,
// frontends last. Within a role, creation order is preserved.
func startOrder(containers []model.ContainerInfo) []model.ContainerInfo {
	ordered := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		if c.Role == model.RoleBackend {
			ordered = append(ordered, c)
		}
	}
	for _, c := range containers {
		if c.Role != model.RoleBackend && c.Role != model.RoleFrontend {
			ordered = append(ordered, c)
		}
	}
	for _, c := range containers {
		if c.Role == model.RoleFrontend {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

// waitForContainerHealth polls the engine until the container reports
// healthy. Containers without a healthcheck pass immediately, so the
// gate degenerates to plain start ordering for them.
func waitForContainerHealth(ctx context.Context, cli *docker.Client, stackName, containerID string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	timeoutErr := func() error {
		return model.WrapCLIError(model.ExitHealthCheckFailed,
			fmt.Sprintf("timed out after %s waiting for container %s to report healthy", timeout, shortID(containerID)),
			waitCtx.Err())
	}

	ticker := time.NewTicker(health.DefaultPollInterval)
	defer ticker.Stop()

	for {
		// The ticker can fire in the same instant the deadline expires;
		// don't let a dead context turn into a misleading engine error.
		if waitCtx.Err() != nil {
			return timeoutErr()
		}

		containers, err := docker.ListStackContainers(waitCtx, cli, stackName)
		if err != nil {
			return err
		}

		state := model.HealthNone
		found := false
		for _, c := range containers {
			if c.ContainerID == containerID {
				state = c.Health
				found = true
				break
			}
		}
		if !found {
			return model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("container %s disappeared while waiting for its healthcheck", shortID(containerID)))
		}

		switch state {
		case model.HealthHealthy, model.HealthNone:
			return nil
		case model.HealthUnhealthy:
			return model.NewCLIError(model.ExitHealthCheckFailed,
				fmt.Sprintf("container %s reported unhealthy; check its logs with `docker logs %s`",
					shortID(containerID), shortID(containerID)))
		}

		select {
		case <-waitCtx.Done():
			return timeoutErr()
		case <-ticker.C:
		}
	}
}

func printStartResult(result *startResult) {
	if IsJSONOutput() {
		if result.Started == nil {
			result.Started = make([]string, 0)
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Started stack %q\n", result.Stack)
	for _, c := range result.Started {
		fmt.Printf("  - %s\n", c)
	}
	for _, c := range result.Skipped {
		fmt.Printf("  - %s (already running)\n", c)
	}
}
