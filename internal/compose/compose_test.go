package compose

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jude-san/TMU-app/internal/docker"
	"github.com/jude-san/TMU-app/internal/stack"
)

// composeDoc mirrors the generated manifest shape for round-trip
// assertions. Parsing the output back instead of matching strings keeps
// the tests independent of yaml.v3's quoting and indentation choices.
type composeDoc struct {
	Name     string                `yaml:"name"`
	Services map[string]serviceDoc `yaml:"services"`
}

type serviceDoc struct {
	Build struct {
		Context    string `yaml:"context"`
		Dockerfile string `yaml:"dockerfile"`
	} `yaml:"build"`
	ContainerName string            `yaml:"container_name"`
	EnvFile       []string          `yaml:"env_file"`
	Environment   []string          `yaml:"environment"`
	Ports         []string          `yaml:"ports"`
	Labels        map[string]string `yaml:"labels"`
	DependsOn     map[string]struct {
		Condition string `yaml:"condition"`
	} `yaml:"depends_on"`
	HealthCheck *struct {
		Test        []string `yaml:"test"`
		Interval    string   `yaml:"interval"`
		Timeout     string   `yaml:"timeout"`
		Retries     int      `yaml:"retries"`
		StartPeriod string   `yaml:"start_period"`
	} `yaml:"healthcheck"`
	Restart string `yaml:"restart"`
}

// testConfig returns a fully defaulted two-service configuration, as
// `tmuctl init` would create it.
func testConfig(t *testing.T) *stack.Config {
	t.Helper()

	cfg := stack.DefaultConfig("todo-app", "./frontend", "./backend")
	cfg.StackID = "4f2c6d0e-9a31-4d7b-8d55-0c1f6f9be111"
	require.NoError(t, cfg.Validate(), "test fixture must validate cleanly")
	return cfg
}

// parseManifest generates the manifest and parses it back.
func parseManifest(t *testing.T, cfg *stack.Config) composeDoc {
	t.Helper()

	data, err := Generate(cfg, "/home/user/projects/todo-app")
	require.NoError(t, err, "Generate should succeed for a valid config")

	var doc composeDoc
	require.NoError(t, yaml.Unmarshal(data, &doc), "generated manifest should be valid YAML")
	return doc
}

// TestGenerate_Header verifies the do-not-edit banner leads the file.
func TestGenerate_Header(t *testing.T) {
	data, err := Generate(testConfig(t), "/home/user/projects/todo-app")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(data), "# Generated by tmuctl. DO NOT EDIT."),
		"manifest should start with the generated-file banner")
	assert.Contains(t, string(data), "tmuctl generate",
		"banner should tell the user how to regenerate")
}

// TestGenerate_ProjectScoping verifies the top-level name, which sets
// the Compose project and scopes teardown to this stack.
func TestGenerate_ProjectScoping(t *testing.T) {
	doc := parseManifest(t, testConfig(t))

	assert.Equal(t, "todo-app", doc.Name)
	require.Len(t, doc.Services, 2, "manifest should define exactly the two declared services")
	require.Contains(t, doc.Services, "backend")
	require.Contains(t, doc.Services, "frontend")
}

// TestGenerate_BackendService verifies the backend definition: build
// context, pinned container name, env file wiring, published port, and
// the HTTP healthcheck.
func TestGenerate_BackendService(t *testing.T) {
	doc := parseManifest(t, testConfig(t))
	backend := doc.Services["backend"]

	assert.Equal(t, "./backend", backend.Build.Context)
	assert.Equal(t, "Dockerfile", backend.Build.Dockerfile)
	assert.Equal(t, "todo-app-backend", backend.ContainerName)
	assert.Equal(t, []string{"3000:3000"}, backend.Ports)

	// The connection string reaches the container via env_file; its
	// value must never appear in the manifest itself.
	assert.Equal(t, []string{".env"}, backend.EnvFile)
	assert.Empty(t, backend.Environment)

	require.NotNil(t, backend.HealthCheck, "backend should carry a healthcheck")
	require.NotEmpty(t, backend.HealthCheck.Test)
	assert.Equal(t, "CMD", backend.HealthCheck.Test[0])
	assert.Contains(t, backend.HealthCheck.Test, "http://localhost:3000/api/health",
		"probe should hit the container-side port and health path")
	assert.Equal(t, "5s", backend.HealthCheck.Interval)
	assert.Equal(t, 12, backend.HealthCheck.Retries)
	assert.Equal(t, "10s", backend.HealthCheck.StartPeriod)

	assert.Empty(t, backend.DependsOn, "backend starts first and depends on nothing")
	assert.Empty(t, backend.Restart, "restart policy should be unset by default")
}

// TestGenerate_FrontendService verifies the frontend definition,
// including the health-gated startup ordering.
func TestGenerate_FrontendService(t *testing.T) {
	doc := parseManifest(t, testConfig(t))
	frontend := doc.Services["frontend"]

	assert.Equal(t, "./frontend", frontend.Build.Context)
	assert.Equal(t, "todo-app-frontend", frontend.ContainerName)
	assert.Equal(t, []string{"80:80"}, frontend.Ports)
	assert.Empty(t, frontend.EnvFile, "only the backend consumes the env file")
	assert.Nil(t, frontend.HealthCheck, "frontend has no declared health path")

	require.Contains(t, frontend.DependsOn, "backend")
	assert.Equal(t, "service_healthy", frontend.DependsOn["backend"].Condition,
		"frontend must wait for backend health, not just container creation")
}

// TestGenerate_Labels verifies every service carries the full
// management label set for discovery.
func TestGenerate_Labels(t *testing.T) {
	doc := parseManifest(t, testConfig(t))

	for name, svc := range doc.Services {
		assert.Equal(t, "tmuctl", svc.Labels[docker.LabelManagedBy],
			"service %s should be marked as managed", name)
		assert.Equal(t, "todo-app", svc.Labels[docker.LabelStack])
		assert.Equal(t, "4f2c6d0e-9a31-4d7b-8d55-0c1f6f9be111", svc.Labels[docker.LabelStackID])
		assert.Equal(t, "/home/user/projects/todo-app", svc.Labels[docker.LabelProjectPath])
	}
	assert.Equal(t, "backend", doc.Services["backend"].Labels[docker.LabelRole])
	assert.Equal(t, "frontend", doc.Services["frontend"].Labels[docker.LabelRole])
}

// TestGenerate_Deterministic verifies byte-identical output across
// repeated renders, which the staleness check in doctor relies on.
func TestGenerate_Deterministic(t *testing.T) {
	cfg := testConfig(t)

	first, err := Generate(cfg, "/home/user/projects/todo-app")
	require.NoError(t, err)
	second, err := Generate(cfg, "/home/user/projects/todo-app")
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second),
		"rendering the same config twice should produce identical bytes")
}

// TestGenerate_ShellPassthroughWithoutEnvFile verifies that with no env
// file configured, required variables pass through from the shell by
// name instead.
func TestGenerate_ShellPassthroughWithoutEnvFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnvFile = ""

	doc := parseManifest(t, cfg)
	backend := doc.Services["backend"]

	assert.Empty(t, backend.EnvFile)
	assert.Equal(t, []string{"MONGODB_URI"}, backend.Environment,
		"variable names pass through; values stay out of the manifest")
}

// TestGenerate_StartedConditionWithoutHealthPath verifies the weaker
// service_started condition is used when the dependency declares no
// health path, and that no healthcheck is rendered for it.
func TestGenerate_StartedConditionWithoutHealthPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend().HealthPath = ""

	doc := parseManifest(t, cfg)

	assert.Nil(t, doc.Services["backend"].HealthCheck)
	assert.Equal(t, "service_started", doc.Services["frontend"].DependsOn["backend"].Condition)
}

// TestGenerate_RestartPassthrough verifies a configured restart policy
// reaches the manifest.
func TestGenerate_RestartPassthrough(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend().Restart = "unless-stopped"

	doc := parseManifest(t, cfg)

	assert.Equal(t, "unless-stopped", doc.Services["backend"].Restart)
	assert.Empty(t, doc.Services["frontend"].Restart)
}

// TestGenerate_HealthPathWithoutPorts verifies the error when a service
// declares a health path but publishes no port to derive the probe
// target from.
func TestGenerate_HealthPathWithoutPorts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend().Ports = nil

	_, err := Generate(cfg, "/home/user/projects/todo-app")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishes no ports")
}

// TestWriteManifest verifies rendering to disk at the conventional
// location.
func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteManifest(dir, testConfig(t), dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ManifestFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Generated by tmuctl."))

	var doc composeDoc
	require.NoError(t, yaml.Unmarshal(data, &doc), "written manifest should be valid YAML")
	assert.Equal(t, "todo-app", doc.Name)
}
