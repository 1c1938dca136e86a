package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jude-san/TMU-app/internal/model"
)

// TestDetectInstallCommand verifies the lock file probe: npm ci when
// package-lock.json exists in the context, npm install otherwise.
func TestDetectInstallCommand(t *testing.T) {
	t.Run("with lock file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "package-lock.json"), []byte(`{}`), 0o644))

		assert.Equal(t, "npm ci", DetectInstallCommand(dir))
	})

	t.Run("without lock file", func(t *testing.T) {
		assert.Equal(t, "npm install", DetectInstallCommand(t.TempDir()))
	})

	t.Run("nonexistent context", func(t *testing.T) {
		// A missing context falls back to npm install; the build itself
		// will fail later with the engine's own error.
		assert.Equal(t, "npm install", DetectInstallCommand("/nonexistent/path"))
	})

	t.Run("lock path is a directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "package-lock.json"), 0o755))

		assert.Equal(t, "npm install", DetectInstallCommand(dir))
	})
}

// TestDefaultConfig verifies the canonical two-service stack shape:
// one frontend on 80, one backend on 3000, frontend depending on
// backend, backend holding the connection string variable.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("tmu-app", "./frontend", "./backend")

	assert.Equal(t, "tmu-app", cfg.Name)
	assert.Equal(t, ".env", cfg.EnvFile)
	_, err := uuid.Parse(cfg.StackID)
	assert.NoError(t, err, "DefaultConfig should assign a valid UUID")

	require.Len(t, cfg.Services, 2)

	frontend := cfg.Frontend()
	require.NotNil(t, frontend)
	assert.Equal(t, "tmu-app-frontend", frontend.ContainerName)
	assert.Equal(t, []string{"80:80"}, frontend.Ports)
	assert.Equal(t, []string{"backend"}, frontend.DependsOn)
	assert.Empty(t, frontend.Env, "the frontend never sees the connection string")

	backend := cfg.Backend()
	require.NotNil(t, backend)
	assert.Equal(t, "tmu-app-backend", backend.ContainerName)
	assert.Equal(t, []string{"3000:3000"}, backend.Ports)
	assert.Equal(t, []string{"MONGODB_URI"}, backend.Env)
	assert.Equal(t, "/api/health", backend.HealthPath)
	assert.Empty(t, backend.DependsOn, "the backend starts first and depends on nothing")

	// The default config must validate cleanly.
	assert.Empty(t, ValidateConfig(cfg), "DefaultConfig must produce a valid config")
}

// TestApplyDefaults verifies that sparse hand-written configs are
// filled in without clobbering explicit values.
func TestApplyDefaults(t *testing.T) {
	cfg := &Config{
		Name: "todo",
		Services: []ServiceConfig{
			{Name: "frontend", Role: model.RoleFrontend, Context: "./web"},
			{Name: "backend", Role: model.RoleBackend, Context: "./api", ContainerName: "custom-api"},
		},
	}

	ApplyDefaults(cfg)

	assert.Equal(t, ".env", cfg.EnvFile)

	frontend := cfg.Frontend()
	assert.Equal(t, "Dockerfile", frontend.Dockerfile)
	assert.Equal(t, "todo-frontend", frontend.ContainerName)
	assert.Empty(t, frontend.HealthPath, "the frontend gets no default health path")

	backend := cfg.Backend()
	assert.Equal(t, "custom-api", backend.ContainerName, "explicit container name is preserved")
	assert.Equal(t, "/api/health", backend.HealthPath)
}

// TestResolveRecipe_FrontendDefaults verifies the two-stage frontend
// recipe defaults: node builder, nginx server, build output copied to
// the nginx web root.
func TestResolveRecipe_FrontendDefaults(t *testing.T) {
	projectDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "frontend"), 0o755))

	svc := &ServiceConfig{Name: "frontend", Role: model.RoleFrontend, Context: "frontend"}
	recipe := ResolveRecipe(projectDir, svc)

	assert.Equal(t, "node:18-alpine", recipe.BaseImage)
	assert.Equal(t, "/app", recipe.Workdir)
	assert.Equal(t, "npm install", recipe.InstallCommand, "no lock file in context")
	assert.Equal(t, "npm run build", recipe.BuildCommand)
	assert.Equal(t, "build", recipe.BuildDir)
	assert.Equal(t, "nginx:alpine", recipe.ServeImage)
	assert.Equal(t, "/usr/share/nginx/html", recipe.WebRoot)
	assert.Empty(t, recipe.StartCommand, "the serve image brings its own entrypoint")
}

// TestResolveRecipe_BackendDefaults verifies the single-stage backend
// recipe defaults, including lock file detection for the install command.
func TestResolveRecipe_BackendDefaults(t *testing.T) {
	projectDir := t.TempDir()
	contextDir := filepath.Join(projectDir, "backend")
	require.NoError(t, os.MkdirAll(contextDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(contextDir, "package-lock.json"), []byte(`{}`), 0o644))

	svc := &ServiceConfig{Name: "backend", Role: model.RoleBackend, Context: "backend"}
	recipe := ResolveRecipe(projectDir, svc)

	assert.Equal(t, "node:18-alpine", recipe.BaseImage)
	assert.Equal(t, "npm ci", recipe.InstallCommand, "lock file present in context")
	assert.Equal(t, []string{"npm", "start"}, recipe.StartCommand)
	assert.Empty(t, recipe.ServeImage, "the backend has no second stage")
	assert.Empty(t, recipe.BuildCommand)
}

// TestResolveRecipe_Overrides verifies that explicit recipe fields from
// deploy.json win over the role defaults, while unset fields still
// default.
func TestResolveRecipe_Overrides(t *testing.T) {
	projectDir := t.TempDir()

	svc := &ServiceConfig{
		Name:    "frontend",
		Role:    model.RoleFrontend,
		Context: "frontend",
		Recipe: &RecipeConfig{
			BaseImage:      "node:20-alpine",
			InstallCommand: "npm ci --no-audit",
			BuildDir:       "dist",
		},
	}

	recipe := ResolveRecipe(projectDir, svc)

	assert.Equal(t, "node:20-alpine", recipe.BaseImage)
	assert.Equal(t, "npm ci --no-audit", recipe.InstallCommand)
	assert.Equal(t, "dist", recipe.BuildDir)

	// Unset fields still come from the defaults.
	assert.Equal(t, "/app", recipe.Workdir)
	assert.Equal(t, "nginx:alpine", recipe.ServeImage)
	assert.Equal(t, "/usr/share/nginx/html", recipe.WebRoot)
}

// TestSanitizeStackName verifies directory-name-to-stack-name
// conversion used by `tmuctl init`.
func TestSanitizeStackName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"TMU-app", "tmu-app"},
		{"todo app", "todo-app"},
		{"My_Cool.Project", "my-cool-project"},
		{"already-valid", "already-valid"},
		{"--weird--", "weird"},
		{"___", "tmu-app"}, // nothing usable left
		{"", "tmu-app"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeStackName(tt.input))
		})
	}
}
