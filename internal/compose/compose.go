// compose.go renders the stack's Compose manifest with the yaml.v3
// library and typed structs, so the output shape is checked at compile
// time rather than assembled from nested maps.
package compose

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jude-san/TMU-app/internal/docker"
	"github.com/jude-san/TMU-app/internal/stack"
)

// ManifestFileName is the name of the generated Compose manifest at
// the project root.
const ManifestFileName = "docker-compose.yml"

// header is prepended to the rendered manifest. Users edit deploy.json,
// not the rendered output.
const header = `# Generated by tmuctl. DO NOT EDIT.
# Edit deploy.json and run ` + "`tmuctl generate`" + ` to re-render this file.
`

// Healthcheck timings for the backend container. The start period
// covers npm's install-free cold start; after that the probe runs every
// interval until the retry budget is spent.
const (
	healthInterval    = "5s"
	healthTimeout     = "3s"
	healthRetries     = 12
	healthStartPeriod = "10s"
)

// manifestFile is the top-level structure of the generated manifest.
type manifestFile struct {
	// Name sets the Compose project name. Compose uses it to prefix
	// network and volume names and to scope `docker compose down` to
	// exactly this stack's resources.
	Name string `yaml:"name"`

	// Services maps service names to their definitions. yaml.v3
	// marshals map keys in sorted order, which keeps output stable.
	Services map[string]manifestService `yaml:"services"`
}

// manifestService is one service definition in the manifest. Only
// fields the generator actually sets are declared; everything carries
// omitempty so unused options disappear from the output instead of
// rendering as nulls.
type manifestService struct {
	// Build points Compose at the service's build context and
	// Dockerfile instead of a prebuilt image.
	Build manifestBuild `yaml:"build"`

	// ContainerName pins the container name so `docker ps`, logs, and
	// exec commands in the docs work verbatim.
	ContainerName string `yaml:"container_name,omitempty"`

	// EnvFile loads variables (the database connection string) into the
	// container at start time. The values never enter the manifest.
	EnvFile []string `yaml:"env_file,omitempty"`

	// Environment passes variables through from the deploying shell by
	// name. Used only when no env file is configured.
	Environment []string `yaml:"environment,omitempty"`

	// Ports publishes container ports on the host, "host:container".
	Ports []string `yaml:"ports,omitempty"`

	// Labels carry the tmu.* management metadata.
	Labels map[string]string `yaml:"labels,omitempty"`

	// DependsOn orders startup against other services, with a condition
	// per dependency.
	DependsOn map[string]dependsOnCondition `yaml:"depends_on,omitempty"`

	// HealthCheck probes the service from inside the container.
	HealthCheck *manifestHealthCheck `yaml:"healthcheck,omitempty"`

	// Restart is the container restart policy. Empty leaves it unset.
	Restart string `yaml:"restart,omitempty"`
}

// manifestBuild is the build section of a service.
type manifestBuild struct {
	// Context is the build context directory, relative to the manifest.
	Context string `yaml:"context"`

	// Dockerfile is the Dockerfile path relative to the context.
	Dockerfile string `yaml:"dockerfile,omitempty"`
}

// dependsOnCondition is the long-form depends_on entry. The short list
// form only orders container creation; the long form with
// service_healthy makes Compose wait for the dependency's healthcheck
// to pass before starting the dependent.
type dependsOnCondition struct {
	Condition string `yaml:"condition"`
}

// manifestHealthCheck mirrors the Compose healthcheck section.
type manifestHealthCheck struct {
	// Test is the probe command in exec form. "CMD" runs it directly in
	// the container without a shell.
	Test []string `yaml:"test"`

	Interval    string `yaml:"interval,omitempty"`
	Timeout     string `yaml:"timeout,omitempty"`
	Retries     int    `yaml:"retries,omitempty"`
	StartPeriod string `yaml:"start_period,omitempty"`
}

// Depends-on conditions understood by Compose.
const (
	conditionHealthy = "service_healthy"
	conditionStarted = "service_started"
)

// Generate renders the Compose manifest for a stack.
//
// projectPath is the absolute project directory; it goes into the
// tmu.project-path label so orphaned stacks can be detected after the
// checkout is deleted. The config is assumed validated; errors here are
// limited to port specs that cannot be parsed.
func Generate(cfg *stack.Config, projectPath string) ([]byte, error) {
	services := make(map[string]manifestService, len(cfg.Services))

	for i := range cfg.Services {
		svc := &cfg.Services[i]

		rendered, err := generateService(cfg, svc, projectPath)
		if err != nil {
			return nil, err
		}
		services[svc.Name] = rendered
	}

	manifest := manifestFile{
		Name:     cfg.Name,
		Services: services,
	}

	yamlBytes, err := yaml.Marshal(&manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize compose manifest: %w", err)
	}

	return []byte(header + string(yamlBytes)), nil
}

// generateService renders one service definition.
func generateService(cfg *stack.Config, svc *stack.ServiceConfig, projectPath string) (manifestService, error) {
	out := manifestService{
		Build: manifestBuild{
			Context:    svc.Context,
			Dockerfile: svc.Dockerfile,
		},
		ContainerName: svc.ContainerName,
		Ports:         append([]string(nil), svc.Ports...),
		Labels:        docker.BuildServiceLabels(cfg.Name, cfg.StackID, projectPath, svc.Role),
		Restart:       svc.Restart,
	}

	// Runtime variables reach the container through the env file when
	// one is configured. Without one, the variables pass through from
	// the deploying shell by name; either way no value is written here.
	if len(svc.Env) > 0 {
		if cfg.EnvFile != "" {
			out.EnvFile = []string{cfg.EnvFile}
		} else {
			out.Environment = append([]string(nil), svc.Env...)
		}
	}

	// Services that declare a health path get a container healthcheck.
	// The probe runs inside the container, so it targets the container
	// port on localhost regardless of the host mapping.
	if svc.HealthPath != "" {
		port, err := containerPort(svc)
		if err != nil {
			return manifestService{}, err
		}
		out.HealthCheck = &manifestHealthCheck{
			// wget ships in the node alpine images (busybox); curl does
			// not. --spider requests without downloading the body.
			Test: []string{
				"CMD", "wget", "--no-verbose", "--tries=1", "--spider",
				fmt.Sprintf("http://localhost:%d%s", port, svc.HealthPath),
			},
			Interval:    healthInterval,
			Timeout:     healthTimeout,
			Retries:     healthRetries,
			StartPeriod: healthStartPeriod,
		}
	}

	if len(svc.DependsOn) > 0 {
		out.DependsOn = make(map[string]dependsOnCondition, len(svc.DependsOn))
		for _, dep := range svc.DependsOn {
			out.DependsOn[dep] = dependsOnCondition{Condition: dependsCondition(cfg, dep)}
		}
	}

	return out, nil
}

// dependsCondition picks the wait condition for a dependency: wait for
// health when the dependency has a healthcheck, otherwise just for the
// container to start.
func dependsCondition(cfg *stack.Config, depName string) string {
	if dep := cfg.ServiceByName(depName); dep != nil && dep.HealthPath != "" {
		return conditionHealthy
	}
	return conditionStarted
}

// containerPort returns the service's container-side port: the first
// published mapping's container port.
func containerPort(svc *stack.ServiceConfig) (int, error) {
	mappings, err := stack.ParseServicePorts(svc)
	if err != nil {
		return 0, err
	}
	if len(mappings) == 0 {
		return 0, fmt.Errorf("service %q declares a health path but publishes no ports", svc.Name)
	}
	return mappings[0].ContainerPort, nil
}

// Path returns the location of the manifest for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, ManifestFileName)
}

// WriteManifest renders the manifest and writes it to the project root.
// Returns the path written.
func WriteManifest(projectDir string, cfg *stack.Config, projectPath string) (string, error) {
	data, err := Generate(cfg, projectPath)
	if err != nil {
		return "", err
	}

	outputPath := Path(projectDir)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", outputPath, err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	return outputPath, nil
}
