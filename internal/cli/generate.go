package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jude-san/TMU-app/internal/compose"
	"github.com/jude-san/TMU-app/internal/dockerfile"
	"github.com/jude-san/TMU-app/internal/project"
	"github.com/jude-san/TMU-app/internal/stack"
)

// generateResult lists the artifacts rendered from deploy.json.
type generateResult struct {
	Files []string `json:"files"`
}

// NewGenerateCommand creates the 'generate' command.
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render Dockerfiles and the Compose manifest from deploy.json",
		Long: `Generate renders one Dockerfile per service into its build context
and a docker-compose.yml at the project root. The rendered files carry
a DO NOT EDIT header: deploy.json is the source of truth, and 'up'
re-renders them on every run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate()
		},
	}

	return cmd
}

// loadProject resolves the project root from the working directory and
// loads its deploy config, defaults applied and validated.
func loadProject() (*stack.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to determine working directory: %w", err)
	}

	root, err := project.NewLocator().FindRoot(cwd)
	if err != nil {
		return nil, "", err
	}

	configPath, err := stack.FindConfig(root)
	if err != nil {
		return nil, "", err
	}

	cfg, err := stack.LoadConfig(configPath)
	if err != nil {
		return nil, "", err
	}
	stack.ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, root, nil
}

// renderArtifacts writes every generated file for the stack and returns
// their paths. Shared between 'generate' and 'up'.
func renderArtifacts(cfg *stack.Config, projectDir string) ([]string, error) {
	var files []string

	for i := range cfg.Services {
		svc := &cfg.Services[i]
		path, err := dockerfile.Write(projectDir, svc)
		if err != nil {
			return nil, err
		}
		log.Debugf("rendered %s", path)
		files = append(files, path)
	}

	manifestPath, err := compose.WriteManifest(projectDir, cfg, projectDir)
	if err != nil {
		return nil, err
	}
	log.Debugf("rendered %s", manifestPath)
	files = append(files, manifestPath)

	return files, nil
}

func runGenerate() error {
	cfg, root, err := loadProject()
	if err != nil {
		return err
	}

	files, err := renderArtifacts(cfg, root)
	if err != nil {
		return err
	}

	printGenerateResult(&generateResult{Files: files})
	return nil
}

func printGenerateResult(result *generateResult) {
	if IsJSONOutput() {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Rendered %d files:\n", len(result.Files))
	for _, f := range result.Files {
		fmt.Printf("  %s\n", f)
	}
	fmt.Println()
	fmt.Println("Run `tmuctl up` to build and start the stack.")
}
