package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jude-san/TMU-app/internal/docker"
	"github.com/jude-san/TMU-app/internal/model"
	"github.com/jude-san/TMU-app/internal/stack"
)

type statusFlags struct {
	all bool
}

// NewStatusCommand creates the 'status' command.
func NewStatusCommand() *cobra.Command {
	flags := &statusFlags{}

	cmd := &cobra.Command{
		Use:   "status [stack]",
		Short: "Show the stack's containers and their health",
		Long: `Status shows the containers belonging to a stack, their engine state,
healthcheck results, and published ports. With --all, every stack
managed on this host is listed, including orphaned ones whose project
directory has been deleted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.all, "all", "a", false, "list every managed stack on this host")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string, flags *statusFlags) error {
	ctx := cmd.Context()

	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer cli.Close()

	if err := cli.Ping(ctx); err != nil {
		return err
	}

	if flags.all {
		return runStatusAll(ctx, cli)
	}

	name, err := resolveStackName(args)
	if err != nil {
		return err
	}

	info, err := findStack(ctx, cli, name)
	if err != nil {
		return err
	}

	printStackStatus(info)
	return nil
}

func runStatusAll(ctx context.Context, cli *docker.Client) error {
	containers, err := docker.ListManagedContainers(ctx, cli)
	if err != nil {
		return err
	}

	groups := docker.GroupContainersByStack(containers)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	stacks := make([]*model.StackInfo, 0, len(names))
	for _, name := range names {
		info, err := docker.BuildStackInfo(name, groups[name])
		if err != nil {
			log.Warnf("skipping stack %q: %v", name, err)
			continue
		}
		stacks = append(stacks, info)
	}

	printStackList(stacks)
	return nil
}

// resolveStackName returns the explicit stack argument, or the name
// from the current project's deploy config.
func resolveStackName(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	cfg, _, err := loadProject()
	if err != nil {
		return "", err
	}
	return cfg.Name, nil
}

// findStack looks a stack up by the label its containers carry.
func findStack(ctx context.Context, cli *docker.Client, name string) (*model.StackInfo, error) {
	containers, err := docker.ListStackContainers(ctx, cli, name)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		return nil, model.NewCLIError(model.ExitStackNotFound,
			fmt.Sprintf("stack %q not found: no containers carry its label (run `tmuctl up` first)", name))
	}
	return docker.BuildStackInfo(name, containers)
}

// stackConfig loads the deploy config recorded in a stack's labels.
// Returns nil when the project or its config is gone; label-driven
// commands still work without it.
func stackConfig(info *model.StackInfo) *stack.Config {
	if info.ProjectPath == "" {
		return nil
	}
	path, err := stack.FindConfig(info.ProjectPath)
	if err != nil {
		return nil
	}
	cfg, err := stack.LoadConfig(path)
	if err != nil {
		log.Debugf("deploy config at %s is unreadable: %v", path, err)
		return nil
	}
	stack.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		log.Debugf("deploy config at %s is invalid: %v", path, err)
		return nil
	}
	return cfg
}

func printStackStatus(info *model.StackInfo) {
	if IsJSONOutput() {
		printStackStatusJSON(info)
		return
	}

	fmt.Printf("Stack:    %s\n", info.Name)
	fmt.Printf("Status:   %s\n", info.Status)
	fmt.Printf("Project:  %s\n", info.ProjectPath)
	if info.Status == model.StatusOrphaned {
		fmt.Println("          (project directory no longer exists; run `tmuctl down " + info.Name + "` to clean up)")
	}
	fmt.Printf("Created:  %s\n", formatTimestamp(info.CreatedAt))
	fmt.Println()
	printContainerTable(info.Containers)
}

func printStackStatusJSON(info *model.StackInfo) {
	data, err := json.MarshalIndent(sanitizeForOutput(info), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printStackList(stacks []*model.StackInfo) {
	if IsJSONOutput() {
		for _, info := range stacks {
			sanitizeForOutput(info)
		}
		data, err := json.MarshalIndent(map[string]interface{}{"stacks": stacks}, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	if len(stacks) == 0 {
		fmt.Println("No managed stacks found.")
		return
	}

	fmt.Printf("%-20s %-10s %-12s %-28s %s\n", "NAME", "STATUS", "CONTAINERS", "PORTS", "PROJECT")
	for _, info := range stacks {
		running := 0
		var ports []model.PortMapping
		for _, c := range info.Containers {
			if c.State == "running" {
				running++
			}
			ports = append(ports, c.Ports...)
		}
		fmt.Printf("%-20s %-10s %-12s %-28s %s\n",
			info.Name,
			info.Status,
			fmt.Sprintf("%d/%d", running, len(info.Containers)),
			formatPorts(ports),
			info.ProjectPath)
	}
}

// printContainerTable renders the per-container detail rows shared by
// 'status' and 'up'.
func printContainerTable(containers []model.ContainerInfo) {
	fmt.Printf("  %-12s  %-22s  %-10s  %-9s  %-9s  %s\n",
		"ID", "CONTAINER", "SERVICE", "STATE", "HEALTH", "PORTS")
	for _, c := range containers {
		healthCol := c.Health
		if healthCol == "" {
			healthCol = "-"
		}
		fmt.Printf("  %-12s  %-22s  %-10s  %-9s  %-9s  %s\n",
			shortID(c.ContainerID),
			c.ContainerName,
			c.ServiceName,
			c.State,
			healthCol,
			formatPorts(c.Ports))
	}
}

// sanitizeForOutput strips the management labels from a stack's
// containers before serialization. The label data is already lifted
// into the top-level StackInfo fields.
func sanitizeForOutput(info *model.StackInfo) *model.StackInfo {
	for i := range info.Containers {
		info.Containers[i].Labels = docker.FilterManagementLabels(info.Containers[i].Labels)
	}
	return info
}

// shortID shortens a container ID to the 12 characters `docker ps` shows.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// formatPorts renders port mappings as "host:container/proto" pairs.
func formatPorts(ports []model.PortMapping) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		parts = append(parts, fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, proto))
	}
	return strings.Join(parts, ", ")
}

func formatTimestamp(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).Local().Format("2006-01-02 15:04:05")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
