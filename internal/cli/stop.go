package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jude-san/TMU-app/internal/docker"
)

// stopResult records which containers were stopped, in order.
type stopResult struct {
	Stack   string   `json:"stack"`
	Stopped []string `json:"stopped"`
	Skipped []string `json:"skipped,omitempty"`
}

// NewStopCommand creates the 'stop' command.
func NewStopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop [stack]",
		Short: "Stop the stack's containers without removing them",
		Long: `Stop halts the stack's containers in reverse dependency order: the
frontend goes down before the backend it talks to, so no request hits
a dead upstream. Containers and their state are kept; 'tmuctl start'
brings the stack back.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd, args)
		},
	}

	return cmd
}

func runStop(cmd *cobra.Command, args []string) error {
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

	result := &stopResult{Stack: name}
	ordered := startOrder(info.Containers)

	// Reverse of startup order: dependents first.
	for i := len(ordered) - 1; i >= 0; i-- {
		c := ordered[i]
		if c.State != "running" {
			log.Debugf("container %s is not running", c.ContainerName)
			result.Skipped = append(result.Skipped, c.ContainerName)
			continue
		}

		log.Debugf("stopping container %s", c.ContainerName)
		if err := docker.StopContainer(ctx, cli, c.ContainerID); err != nil {
			return err
		}
		result.Stopped = append(result.Stopped, c.ContainerName)
	}

	printStopResult(result)
	return nil
}

func printStopResult(result *stopResult) {
	if IsJSONOutput() {
		if result.Stopped == nil {
			result.Stopped = make([]string, 0)
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Stopped stack %q\n", result.Stack)
	for _, c := range result.Stopped {
		fmt.Printf("  - %s\n", c)
	}
	for _, c := range result.Skipped {
		fmt.Printf("  - %s (was not running)\n", c)
	}
}
