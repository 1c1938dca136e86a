package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jude-san/TMU-app/internal/compose"
	"github.com/jude-san/TMU-app/internal/docker"
	"github.com/jude-san/TMU-app/internal/model"
)

type downFlags struct {
	volumes bool
	yes     bool
}

// downResult records what was removed.
type downResult struct {
	Stack      string   `json:"stack"`
	Method     string   `json:"method"`
	Containers []string `json:"containers"`
	Networks   []string `json:"networks,omitempty"`
}

// NewDownCommand creates the 'down' command.
func NewDownCommand() *cobra.Command {
	flags := &downFlags{}

	cmd := &cobra.Command{
		Use:   "down [stack]",
		Short: "Stop and remove the stack's containers and network",
		Long: `Down tears the stack down: its two containers and the project network
are removed, and nothing else. Images, build caches, and containers
outside the stack are left alone.

Without a stack argument, the stack is resolved from deploy.json in
the current project. When the project directory or its manifest is
gone, the containers are removed through the Engine API directly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDown(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.volumes, "volumes", false, "also remove named volumes declared by the manifest")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func runDown(cmd *cobra.Command, args []string, flags *downFlags) error {
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

	if !flags.yes && !promptDownConfirmation(info, flags.volumes) {
		return model.NewCLIError(model.ExitUserCancelled, "aborted")
	}

	result := &downResult{Stack: name}
	for _, c := range info.Containers {
		result.Containers = append(result.Containers, c.ContainerName)
	}

	if manifest := manifestFor(info); manifest != "" {
		log.Debugf("removing stack %q via compose in %s", name, info.ProjectPath)
		result.Method = "compose"
		if err := docker.ComposeDown(ctx, info.ProjectPath, []string{compose.ManifestFileName}, flags.volumes); err != nil {
			return err
		}
	} else {
		log.Debugf("manifest for stack %q is gone, removing through the engine", name)
		result.Method = "engine"
		networks, err := removeStackDirectly(ctx, cli, info)
		if err != nil {
			return err
		}
		result.Networks = networks
	}

	printDownResult(result)
	return nil
}

// manifestFor returns the manifest path for a stack if its project
// directory still holds one, or "" when only the engine-level fallback
// can clean up.
func manifestFor(info *model.StackInfo) string {
	if info.ProjectPath == "" {
		return ""
	}
	path := compose.Path(info.ProjectPath)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// removeStackDirectly force-removes each stack container and then the
// stack's networks through the Engine API. Used for orphaned stacks
// whose project directory no longer exists.
func removeStackDirectly(ctx context.Context, cli *docker.Client, info *model.StackInfo) ([]string, error) {
	networks := make(map[string]bool)
	prefix := info.Name + "_"

	for _, c := range info.Containers {
		if err := docker.RemoveContainer(ctx, cli, c.ContainerID, true); err != nil {
			return nil, err
		}
		for _, n := range c.Networks {
			// Only networks created for this stack. Shared networks like
			// "bridge" must survive.
			if strings.HasPrefix(n, prefix) {
				networks[n] = true
			}
		}
	}

	removed := make([]string, 0, len(networks))
	for n := range networks {
		removed = append(removed, n)
	}
	sort.Strings(removed)

	for _, n := range removed {
		if err := docker.RemoveNetwork(ctx, cli, n); err != nil {
			return nil, err
		}
	}
	return removed, nil
}

func promptDownConfirmation(info *model.StackInfo, removeVolumes bool) bool {
	fmt.Printf("About to remove stack %q:\n", info.Name)
	for _, c := range info.Containers {
		fmt.Printf("  - container %s (%s)\n", c.ContainerName, c.State)
	}
	if removeVolumes {
		fmt.Println("  - named volumes declared by the manifest")
	}
	fmt.Println("Images and project files are not touched.")
	fmt.Print("Continue? [y/N] ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func printDownResult(result *downResult) {
	if IsJSONOutput() {
		if result.Containers == nil {
			result.Containers = make([]string, 0)
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Removed stack %q\n", result.Stack)
	for _, c := range result.Containers {
		fmt.Printf("  - %s\n", c)
	}
	for _, n := range result.Networks {
		fmt.Printf("  - network %s\n", n)
	}
}
