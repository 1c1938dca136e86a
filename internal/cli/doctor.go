package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jude-san/TMU-app/internal/compose"
	"github.com/jude-san/TMU-app/internal/docker"
	"github.com/jude-san/TMU-app/internal/dockerfile"
	"github.com/jude-san/TMU-app/internal/envfile"
	"github.com/jude-san/TMU-app/internal/model"
	"github.com/jude-san/TMU-app/internal/port"
	"github.com/jude-san/TMU-app/internal/stack"
)

const (
	levelOK   = "ok"
	levelWarn = "warn"
	levelFail = "fail"
)

// doctorEntry is one diagnostic finding.
type doctorEntry struct {
	Level  string `json:"level"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// doctorResult is the full diagnosis report.
type doctorResult struct {
	Healthy bool          `json:"healthy"`
	Entries []doctorEntry `json:"entries"`
}

// NewDoctorCommand creates the 'doctor' command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose common deployment problems",
		Long: `Doctor inspects the environment and the project and reports anything
that would make a deployment fail or misbehave: an unreachable Docker
daemon, an invalid config, missing credentials, occupied host ports,
stale generated files, and leftover stacks from deleted checkouts.

Doctor only reports. It never changes anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd)
		},
	}

	return cmd
}

func runDoctor(cmd *cobra.Command) error {
	ctx := cmd.Context()

	result := &doctorResult{Healthy: true}
	add := func(level, name, detail string) {
		if level != levelOK {
			result.Healthy = false
		}
		result.Entries = append(result.Entries, doctorEntry{Level: level, Name: name, Detail: detail})
	}

	// The daemon check is the only fatal one: everything else is advice.
	var cli *docker.Client
	daemonUp := false
	c, err := docker.NewClient()
	if err == nil {
		defer c.Close()
		if pingErr := c.Ping(ctx); pingErr == nil {
			cli = c
			daemonUp = true
			add(levelOK, "docker-daemon", "reachable")
		} else {
			add(levelFail, "docker-daemon", pingErr.Error())
		}
	} else {
		add(levelFail, "docker-daemon", err.Error())
	}

	cfg, root, err := loadProject()
	if err != nil {
		add(levelWarn, "deploy-config", err.Error())
	} else {
		add(levelOK, "deploy-config", fmt.Sprintf("%s is valid", filepath.Join(root, stack.ConfigFileName)))
	}

	if cfg != nil {
		diagnoseInlineCredentials(cfg, add)
		diagnoseEnvFile(cfg, root, add)
		diagnoseArtifacts(cfg, root, add)
		diagnosePorts(ctx, cli, cfg, add)
	}

	if daemonUp && cfg != nil {
		diagnoseNetwork(ctx, cli, cfg, add)
	}
	if daemonUp {
		diagnoseStacks(ctx, cli, cfg, add)
	}

	printDoctorResult(result)

	if !daemonUp {
		return model.NewCLIError(model.ExitDockerNotRunning,
			"the Docker daemon is not reachable; start Docker and run `tmuctl doctor` again")
	}
	return nil
}

// diagnoseInlineCredentials flags env entries in deploy.json that carry
// a credentialed value. The config file is meant to be committed, so a
// connection string with a password in it would end up in the repo and
// in the rendered manifest.
func diagnoseInlineCredentials(cfg *stack.Config, add func(level, name, detail string)) {
	found := false
	for _, svc := range cfg.Services {
		for _, entry := range svc.Env {
			eq := strings.IndexByte(entry, '=')
			if eq < 0 {
				continue
			}
			name, value := entry[:eq], entry[eq+1:]
			if envfile.HasInlineCredentials(value) {
				found = true
				add(levelWarn, "credentials",
					fmt.Sprintf("service %q sets %s=%s in deploy.json; move the value to the env file so it never enters version control",
						svc.Name, name, envfile.RedactURI(value)))
			}
		}
	}
	if !found {
		add(levelOK, "credentials", "no credentials inline in deploy.json")
	}
}

func diagnoseEnvFile(cfg *stack.Config, root string, add func(level, name, detail string)) {
	var required []string
	for _, svc := range cfg.Services {
		for _, entry := range svc.Env {
			if !strings.Contains(entry, "=") {
				required = append(required, entry)
			}
		}
	}
	if len(required) == 0 || cfg.EnvFile == "" {
		add(levelOK, "env-file", "no environment variables required")
		return
	}

	envPath := filepath.Join(root, cfg.EnvFile)
	vars, err := envfile.Load(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			add(levelWarn, "env-file",
				fmt.Sprintf("%s not found; copy %s and fill in your credentials", envPath, envfile.ExampleFileName))
			return
		}
		add(levelWarn, "env-file", fmt.Sprintf("failed to read %s: %v", envPath, err))
		return
	}

	if missing := envfile.MissingKeys(vars, required); len(missing) > 0 {
		add(levelWarn, "env-file",
			fmt.Sprintf("%s is missing values for: %s", envPath, strings.Join(missing, ", ")))
		return
	}
	add(levelOK, "env-file", fmt.Sprintf("%s provides all %d required variables", envPath, len(required)))
}

// diagnoseArtifacts re-renders every generated file in memory and
// compares it with what is on disk.
func diagnoseArtifacts(cfg *stack.Config, root string, add func(level, name, detail string)) {
	type artifact struct {
		path string
		want []byte
	}
	var artifacts []artifact

	for i := range cfg.Services {
		svc := &cfg.Services[i]
		content, err := dockerfile.Render(root, svc)
		if err != nil {
			add(levelWarn, "artifacts", fmt.Sprintf("cannot render Dockerfile for %s: %v", svc.Name, err))
			return
		}
		artifacts = append(artifacts, artifact{path: dockerfile.Path(root, svc), want: []byte(content)})
	}

	manifest, err := compose.Generate(cfg, root)
	if err != nil {
		add(levelWarn, "artifacts", fmt.Sprintf("cannot render compose manifest: %v", err))
		return
	}
	artifacts = append(artifacts, artifact{path: compose.Path(root), want: manifest})

	var missing, stale []string
	for _, a := range artifacts {
		switch compareArtifact(a.path, a.want) {
		case artifactMissing:
			missing = append(missing, a.path)
		case artifactStale:
			stale = append(stale, a.path)
		}
	}

	switch {
	case len(missing) > 0:
		add(levelWarn, "artifacts",
			fmt.Sprintf("not rendered yet: %s (run `tmuctl generate`)", strings.Join(missing, ", ")))
	case len(stale) > 0:
		add(levelWarn, "artifacts",
			fmt.Sprintf("out of date with deploy.json: %s (run `tmuctl generate`)", strings.Join(stale, ", ")))
	default:
		add(levelOK, "artifacts", fmt.Sprintf("%d generated files up to date", len(artifacts)))
	}
}

type artifactState int

const (
	artifactInSync artifactState = iota
	artifactMissing
	artifactStale
)

func compareArtifact(path string, want []byte) artifactState {
	got, err := os.ReadFile(path)
	if err != nil {
		return artifactMissing
	}
	if !bytes.Equal(got, want) {
		return artifactStale
	}
	return artifactInSync
}

func diagnosePorts(ctx context.Context, cli *docker.Client, cfg *stack.Config, add func(level, name, detail string)) {
	conflicts, err := conflictingPorts(ctx, cli, cfg)
	if err != nil {
		add(levelWarn, "host-ports", err.Error())
		return
	}
	if len(conflicts) == 0 {
		add(levelOK, "host-ports", "all published host ports are free or held by this stack")
		return
	}

	scanner := port.NewScanner()
	for _, busy := range conflicts {
		detail := fmt.Sprintf("host port %d (%s) is in use by another process", busy.HostPort, busy.Protocol)
		if alt, err := scanner.SuggestAlternative(busy.HostPort, busy.Protocol); err == nil {
			detail += fmt.Sprintf("; try %d:%d in deploy.json", alt, busy.ContainerPort)
		}
		add(levelWarn, "host-ports", detail)
	}
}

// diagnoseNetwork verifies the deployed containers share a network.
// The frontend reaches the backend by service name, and that name only
// resolves across a common network.
func diagnoseNetwork(ctx context.Context, cli *docker.Client, cfg *stack.Config, add func(level, name, detail string)) {
	containers, err := docker.ListStackContainers(ctx, cli, cfg.Name)
	if err != nil {
		add(levelWarn, "network", err.Error())
		return
	}
	if len(containers) < 2 {
		add(levelOK, "network", "stack not deployed; nothing to verify")
		return
	}

	counts := make(map[string]int)
	for _, c := range containers {
		for _, n := range c.Networks {
			counts[n]++
		}
	}

	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		if counts[n] == len(containers) {
			add(levelOK, "network", fmt.Sprintf("all containers share network %q", n))
			return
		}
	}
	add(levelWarn, "network",
		"the containers do not share a network, so the frontend cannot reach the backend by service name (re-run `tmuctl up` to recreate the stack)")
}

// diagnoseStacks reports stack-level problems across the host: the
// current stack in a degraded state, and orphaned stacks left behind
// by deleted checkouts.
func diagnoseStacks(ctx context.Context, cli *docker.Client, cfg *stack.Config, add func(level, name, detail string)) {
	containers, err := docker.ListManagedContainers(ctx, cli)
	if err != nil {
		add(levelWarn, "stacks", err.Error())
		return
	}

	groups := docker.GroupContainersByStack(containers)
	problems := false
	for _, name := range sortedGroupNames(groups) {
		info, err := docker.BuildStackInfo(name, groups[name])
		if err != nil {
			add(levelWarn, "stacks", fmt.Sprintf("stack %q has inconsistent labels: %v", name, err))
			problems = true
			continue
		}
		switch info.Status {
		case model.StatusOrphaned:
			add(levelWarn, "stacks",
				fmt.Sprintf("stack %q is orphaned: %s no longer exists (run `tmuctl down %s`)", name, info.ProjectPath, name))
			problems = true
		case model.StatusDegraded:
			add(levelWarn, "stacks",
				fmt.Sprintf("stack %q is degraded: some containers are not running (run `tmuctl status %s`)", name, name))
			problems = true
		}
	}

	if !problems {
		if cfg != nil {
			if _, ok := groups[cfg.Name]; !ok {
				add(levelOK, "stacks", fmt.Sprintf("stack %q is not deployed yet", cfg.Name))
				return
			}
		}
		add(levelOK, "stacks", fmt.Sprintf("%d managed stacks, none need attention", len(groups)))
	}
}

func sortedGroupNames(groups map[string][]model.ContainerInfo) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printDoctorResult(result *doctorResult) {
	if IsJSONOutput() {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	for _, e := range result.Entries {
		fmt.Printf("[%-4s] %-14s %s\n", e.Level, e.Name, e.Detail)
	}
	fmt.Println()
	if result.Healthy {
		fmt.Println("No problems found.")
	} else {
		fmt.Println("Some checks need attention; see the lines above.")
	}
}
