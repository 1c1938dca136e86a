package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jude-san/TMU-app/internal/envfile"
	"github.com/jude-san/TMU-app/internal/model"
	"github.com/jude-san/TMU-app/internal/project"
	"github.com/jude-san/TMU-app/internal/stack"
)

type initFlags struct {
	name  string
	force bool
}

// initResult captures what init scaffolded, for both output modes.
type initResult struct {
	Name              string   `json:"name"`
	StackID           string   `json:"stackId"`
	ConfigPath        string   `json:"configPath"`
	EnvExamplePath    string   `json:"envExamplePath,omitempty"`
	EnvExampleCreated bool     `json:"envExampleCreated"`
	Rendered          []string `json:"rendered"`
	FrontendDir       string   `json:"frontendDir"`
	BackendDir        string   `json:"backendDir"`
	FrontendFound     bool     `json:"frontendFound"`
	BackendFound      bool     `json:"backendFound"`
}

// NewInitCommand creates the 'init' command.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold deploy.json and .env.example for a project",
		Long: `Init inspects the project, locates the frontend and backend source
directories, and writes a commented deploy.json describing the stack.
It also writes a .env.example listing the environment variables the
backend expects, and renders the Dockerfiles and Compose manifest.

The generated config is a starting point: edit the service entries if
the detected directories are wrong, then run 'tmuctl generate' to
re-render.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "stack name (default: derived from the project directory)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "overwrite an existing deploy.json")

	return cmd
}

func runInit(args []string, flags *initFlags) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("cannot init in %s: %w", dir, err)
	}

	locator := project.NewLocator()
	root, err := locator.FindRoot(dir)
	if err != nil {
		return err
	}
	log.Debugf("project root: %s", root)

	layout := project.DetectLayout(root)
	log.Debugf("detected layout: frontend=%s (found=%v) backend=%s (found=%v)",
		layout.FrontendDir, layout.FrontendFound, layout.BackendDir, layout.BackendFound)

	name := flags.name
	if name == "" {
		name = stack.SanitizeStackName(filepath.Base(root))
	} else if err := model.ValidateName(name); err != nil {
		return err
	}

	stackID := uuid.NewString()
	data := stack.RenderConfigTemplate(name, stackID, layout.FrontendDir, layout.BackendDir)

	configPath := filepath.Join(root, stack.ConfigFileName)
	if err := stack.WriteConfig(configPath, data, flags.force); err != nil {
		return err
	}

	result := &initResult{
		Name:          name,
		StackID:       stackID,
		ConfigPath:    configPath,
		FrontendDir:   layout.FrontendDir,
		BackendDir:    layout.BackendDir,
		FrontendFound: layout.FrontendFound,
		BackendFound:  layout.BackendFound,
	}

	// The example env file names every variable the scaffolded backend
	// expects. Real values go into .env, which stays untracked.
	cfg := stack.DefaultConfig(name, layout.FrontendDir, layout.BackendDir)
	cfg.StackID = stackID
	var envVars []string
	for _, svc := range cfg.Services {
		envVars = append(envVars, svc.Env...)
	}
	if len(envVars) > 0 {
		examplePath := filepath.Join(root, envfile.ExampleFileName)
		created, err := envfile.WriteExample(examplePath, envVars)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", envfile.ExampleFileName, err)
		}
		result.EnvExamplePath = examplePath
		result.EnvExampleCreated = created
	}

	rendered, err := renderArtifacts(cfg, root)
	if err != nil {
		return err
	}
	result.Rendered = rendered

	printInitResult(result)
	return nil
}

func printInitResult(result *initResult) {
	if IsJSONOutput() {
		printInitResultJSON(result)
	} else {
		printInitResultText(result)
	}
}

func printInitResultJSON(result *initResult) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printInitResultText(result *initResult) {
	fmt.Printf("Initialized stack %q\n", result.Name)
	fmt.Printf("  Config:       %s\n", result.ConfigPath)
	if result.EnvExamplePath != "" {
		fmt.Printf("  Env template: %s\n", result.EnvExamplePath)
	}
	for _, f := range result.Rendered {
		fmt.Printf("  Rendered:     %s\n", f)
	}
	fmt.Println()

	if !result.FrontendFound {
		fmt.Printf("warning: no frontend directory detected, defaulting to %s. Edit the context in deploy.json if needed.\n", result.FrontendDir)
	}
	if !result.BackendFound {
		fmt.Printf("warning: no backend directory detected, defaulting to %s. Edit the context in deploy.json if needed.\n", result.BackendDir)
	}

	fmt.Println("Next steps:")
	if result.EnvExamplePath != "" {
		fmt.Printf("  1. cp %s .env and fill in your database credentials\n", filepath.Base(result.EnvExamplePath))
		fmt.Println("  2. Review deploy.json, then run `tmuctl up`")
	} else {
		fmt.Println("  1. Review deploy.json, then run `tmuctl up`")
	}
}
