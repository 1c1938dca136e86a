package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jude-san/TMU-app/internal/compose"
	"github.com/jude-san/TMU-app/internal/docker"
	"github.com/jude-san/TMU-app/internal/envfile"
	"github.com/jude-san/TMU-app/internal/health"
	"github.com/jude-san/TMU-app/internal/model"
	"github.com/jude-san/TMU-app/internal/port"
	"github.com/jude-san/TMU-app/internal/stack"
)

type upFlags struct {
	build   bool
	noWait  bool
	timeout time.Duration
}

// upResult describes the started stack for both output modes.
type upResult struct {
	Stack      string                `json:"stack"`
	Waited     bool                  `json:"healthWaited"`
	Containers []model.ContainerInfo `json:"containers"`
	Endpoints  map[string]string     `json:"endpoints,omitempty"`
}

// NewUpCommand creates the 'up' command.
func NewUpCommand() *cobra.Command {
	flags := &upFlags{}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Build and start the stack, waiting until it responds",
		Long: `Up re-renders the Dockerfiles and Compose manifest, checks that the
required environment file and host ports are in place, and starts the
stack through Compose. The backend starts first; the frontend is held
back until the backend's healthcheck passes.

After starting, up probes both services over HTTP from the host and
only returns success once they respond.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.build, "build", false, "force image rebuild even if images exist")
	cmd.Flags().BoolVar(&flags.noWait, "no-wait", false, "return as soon as containers are started, without health probing")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "health wait timeout (default: healthWaitTimeout from deploy.json)")

	return cmd
}

func runUp(cmd *cobra.Command, flags *upFlags) error {
	ctx := cmd.Context()

	cfg, root, err := loadProject()
	if err != nil {
		return err
	}

	if err := checkEnvFile(cfg, root); err != nil {
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

	if err := checkHostPorts(ctx, cli, cfg); err != nil {
		return err
	}

	if _, err := renderArtifacts(cfg, root); err != nil {
		return err
	}

	log.Debugf("starting stack %q via compose", cfg.Name)
	composeFiles := []string{compose.ManifestFileName}
	if err := docker.ComposeUp(ctx, root, composeFiles, flags.build, nil); err != nil {
		return err
	}

	waited := false
	if !flags.noWait {
		timeout := flags.timeout
		if timeout == 0 {
			timeout = cfg.HealthWait()
		}
		if err := waitForStack(ctx, cfg, timeout); err != nil {
			return err
		}
		waited = true
	}

	containers, err := docker.ListStackContainers(ctx, cli, cfg.Name)
	if err != nil {
		return err
	}

	result := &upResult{
		Stack:      cfg.Name,
		Waited:     waited,
		Containers: containers,
		Endpoints:  stackEndpoints(cfg),
	}
	printUpResult(result)
	return nil
}

// checkEnvFile verifies that every variable the services declare has a
// value in the configured env file. Missing credentials otherwise only
// surface as a backend crash loop after startup.
func checkEnvFile(cfg *stack.Config, root string) error {
	var required []string
	for _, svc := range cfg.Services {
		required = append(required, svc.Env...)
	}
	if len(required) == 0 || cfg.EnvFile == "" {
		return nil
	}

	envPath := filepath.Join(root, cfg.EnvFile)
	vars, err := envfile.Load(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewCLIError(model.ExitConfigNotFound,
				fmt.Sprintf("env file %s not found. Copy %s to %s and fill in your credentials.",
					envPath, envfile.ExampleFileName, cfg.EnvFile))
		}
		return fmt.Errorf("failed to read env file %s: %w", envPath, err)
	}

	if missing := envfile.MissingKeys(vars, required); len(missing) > 0 {
		return model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("env file %s is missing values for: %s", envPath, strings.Join(missing, ", ")))
	}
	return nil
}

// conflictingPorts returns the configured host ports that are already
// bound on this machine. Ports held by the stack's own containers are
// not conflicts: Compose recreates those in place. A nil client skips
// the own-container lookup.
func conflictingPorts(ctx context.Context, cli *docker.Client, cfg *stack.Config) ([]model.PortMapping, error) {
	mappings, err := stack.ParseStackPorts(cfg)
	if err != nil {
		return nil, err
	}

	own := make(map[int]bool)
	if cli != nil {
		containers, err := docker.ListStackContainers(ctx, cli, cfg.Name)
		if err != nil {
			return nil, err
		}
		for _, c := range containers {
			for _, p := range c.Ports {
				own[p.HostPort] = true
			}
		}
	}

	scanner := port.NewScanner()
	var conflicts []model.PortMapping
	for _, busy := range scanner.CheckMappings(mappings) {
		if own[busy.HostPort] {
			continue
		}
		conflicts = append(conflicts, busy)
	}
	return conflicts, nil
}

// checkHostPorts fails fast when a published host port is taken by
// something outside the stack.
func checkHostPorts(ctx context.Context, cli *docker.Client, cfg *stack.Config) error {
	conflicts, err := conflictingPorts(ctx, cli, cfg)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}

	scanner := port.NewScanner()
	lines := make([]string, 0, len(conflicts))
	for _, busy := range conflicts {
		line := fmt.Sprintf("  host port %d (%s) is already in use", busy.HostPort, busy.Protocol)
		if alt, err := scanner.SuggestAlternative(busy.HostPort, busy.Protocol); err == nil {
			line += fmt.Sprintf(" (try %d:%d in deploy.json)", alt, busy.ContainerPort)
		}
		lines = append(lines, line)
	}

	return model.NewCLIError(model.ExitPortConflict,
		fmt.Sprintf("cannot start stack %q:\n%s", cfg.Name, strings.Join(lines, "\n")))
}

// stackChecks builds the HTTP readiness probes for a stack: the
// backend's health endpoint plus the frontend root.
func stackChecks(cfg *stack.Config) []health.Check {
	var checks []health.Check
	for i := range cfg.Services {
		svc := &cfg.Services[i]
		mappings, err := stack.ParseServicePorts(svc)
		if err != nil || len(mappings) == 0 {
			continue
		}
		hostPort := mappings[0].HostPort

		if svc.HealthPath != "" {
			checks = append(checks, health.Check{
				Name:     svc.Name,
				URL:      health.URL(hostPort, svc.HealthPath),
				WantJSON: true,
			})
			continue
		}
		checks = append(checks, health.Check{
			Name: svc.Name,
			URL:  health.URL(hostPort, "/"),
		})
	}
	return checks
}

func waitForStack(ctx context.Context, cfg *stack.Config, timeout time.Duration) error {
	checks := stackChecks(cfg)
	if len(checks) == 0 {
		return nil
	}

	log.Debugf("waiting up to %s for %d health checks", timeout, len(checks))
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	checker := health.NewChecker()
	return checker.WaitUntilReady(waitCtx, checks, health.DefaultPollInterval)
}

// stackEndpoints maps each service with published ports to the URL a
// user would open.
func stackEndpoints(cfg *stack.Config) map[string]string {
	endpoints := make(map[string]string)
	for i := range cfg.Services {
		svc := &cfg.Services[i]
		mappings, err := stack.ParseServicePorts(svc)
		if err != nil || len(mappings) == 0 {
			continue
		}
		path := "/"
		if svc.HealthPath != "" {
			path = svc.HealthPath
		}
		endpoints[svc.Name] = health.URL(mappings[0].HostPort, path)
	}
	return endpoints
}

func printUpResult(result *upResult) {
	if IsJSONOutput() {
		printUpResultJSON(result)
	} else {
		printUpResultText(result)
	}
}

func printUpResultJSON(result *upResult) {
	if result.Containers == nil {
		result.Containers = make([]model.ContainerInfo, 0)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printUpResultText(result *upResult) {
	if result.Waited {
		fmt.Printf("Stack %q is up and responding\n", result.Stack)
	} else {
		fmt.Printf("Stack %q started (health wait skipped)\n", result.Stack)
	}
	fmt.Println()

	printContainerTable(result.Containers)

	if len(result.Endpoints) > 0 {
		fmt.Println()
		for _, name := range sortedKeys(result.Endpoints) {
			fmt.Printf("  %-10s %s\n", name+":", result.Endpoints[name])
		}
	}
}
