package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jude-san/TMU-app/internal/docker"
	"github.com/jude-san/TMU-app/internal/health"
	"github.com/jude-san/TMU-app/internal/model"
)

// checkEntry is one verification step in the smoke test.
type checkEntry struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// checkResult is the full smoke test report.
type checkResult struct {
	Stack  string       `json:"stack"`
	Passed bool         `json:"passed"`
	Checks []checkEntry `json:"checks"`
}

// NewCheckCommand creates the 'check' command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify a running stack end to end",
		Long: `Check probes a deployed stack the way a user would reach it: the
frontend must serve its page on the published host port, the backend
must answer its health endpoint with JSON, and the backend container
must have been created no later than the frontend.

All probes go through localhost, so check verifies the port mappings
and not just the containers themselves.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd)
		},
	}

	return cmd
}

func runCheck(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, _, err := loadProject()
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

	info, err := findStack(ctx, cli, cfg.Name)
	if err != nil {
		return err
	}

	result := &checkResult{Stack: cfg.Name, Passed: true}
	record := func(entry checkEntry) {
		if !entry.Passed {
			result.Passed = false
		}
		result.Checks = append(result.Checks, entry)
	}

	record(checkContainersRunning(info.Containers))
	record(checkCreationOrder(info.Containers))

	checker := health.NewChecker()
	for _, c := range stackChecks(cfg) {
		entry := checkEntry{Name: c.Name + "-responds", Passed: true, Detail: c.URL}
		if err := checker.Run(ctx, c); err != nil {
			entry.Passed = false
			entry.Detail = err.Error()
		}
		record(entry)
	}

	printCheckResult(result)
	if !result.Passed {
		return model.NewCLIError(model.ExitHealthCheckFailed,
			fmt.Sprintf("stack %q failed verification", cfg.Name))
	}
	return nil
}

// checkContainersRunning verifies that every stack container is in the
// running state.
func checkContainersRunning(containers []model.ContainerInfo) checkEntry {
	entry := checkEntry{Name: "containers-running", Passed: true}

	var down []string
	for _, c := range containers {
		if c.State != "running" {
			down = append(down, fmt.Sprintf("%s is %s", c.ContainerName, c.State))
		}
	}
	if len(down) > 0 {
		entry.Passed = false
		entry.Detail = strings.Join(down, "; ")
		return entry
	}

	entry.Detail = fmt.Sprintf("%d containers running", len(containers))
	return entry
}

// checkCreationOrder verifies the backend container was created no
// later than the frontend. Engine timestamps have second granularity,
// so equal timestamps pass.
func checkCreationOrder(containers []model.ContainerInfo) checkEntry {
	entry := checkEntry{Name: "creation-order", Passed: true}

	var backend, frontend *model.ContainerInfo
	for i := range containers {
		switch containers[i].Role {
		case model.RoleBackend:
			backend = &containers[i]
		case model.RoleFrontend:
			frontend = &containers[i]
		}
	}

	if backend == nil || frontend == nil {
		entry.Passed = false
		entry.Detail = "stack does not have both a backend and a frontend container"
		return entry
	}

	if backend.CreatedAt > frontend.CreatedAt {
		entry.Passed = false
		entry.Detail = fmt.Sprintf("backend created at %s, after frontend at %s",
			formatTimestamp(backend.CreatedAt), formatTimestamp(frontend.CreatedAt))
		return entry
	}

	entry.Detail = "backend container created before frontend"
	return entry
}

func printCheckResult(result *checkResult) {
	if IsJSONOutput() {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	for _, c := range result.Checks {
		status := "ok"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Printf("[%4s] %-22s %s\n", status, c.Name, c.Detail)
	}
	fmt.Println()
	if result.Passed {
		fmt.Printf("Stack %q passed all checks\n", result.Stack)
	} else {
		fmt.Printf("Stack %q failed verification\n", result.Stack)
	}
}
