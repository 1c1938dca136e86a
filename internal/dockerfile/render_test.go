package dockerfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jude-san/TMU-app/internal/model"
	"github.com/jude-san/TMU-app/internal/stack"
)

// frontendService returns a frontend declaration pointing at a context
// directory created under projectDir.
func frontendService(t *testing.T, projectDir string, withLock bool) *stack.ServiceConfig {
	t.Helper()

	contextDir := filepath.Join(projectDir, "frontend")
	require.NoError(t, os.MkdirAll(contextDir, 0o755))
	if withLock {
		require.NoError(t, os.WriteFile(filepath.Join(contextDir, "package-lock.json"), []byte(`{}`), 0o644))
	}

	return &stack.ServiceConfig{
		Name:    "frontend",
		Role:    model.RoleFrontend,
		Context: "frontend",
		Ports:   []string{"80:80"},
	}
}

// backendService returns a backend declaration pointing at a context
// directory created under projectDir.
func backendService(t *testing.T, projectDir string, withLock bool) *stack.ServiceConfig {
	t.Helper()

	contextDir := filepath.Join(projectDir, "backend")
	require.NoError(t, os.MkdirAll(contextDir, 0o755))
	if withLock {
		require.NoError(t, os.WriteFile(filepath.Join(contextDir, "package-lock.json"), []byte(`{}`), 0o644))
	}

	return &stack.ServiceConfig{
		Name:       "backend",
		Role:       model.RoleBackend,
		Context:    "backend",
		Ports:      []string{"3000:3000"},
		HealthPath: "/api/health",
	}
}

// TestRender_Frontend verifies the two-stage frontend recipe: node
// builder stage, nginx serve stage, build output copied to the web
// root, web port exposed.
func TestRender_Frontend(t *testing.T) {
	projectDir := t.TempDir()
	svc := frontendService(t, projectDir, true)

	content, err := Render(projectDir, svc)
	require.NoError(t, err)

	// Header marks the file as generated.
	assert.True(t, strings.HasPrefix(content, "# Generated by tmuctl."))

	// Stage 1: build.
	assert.Contains(t, content, "FROM node:18-alpine AS builder")
	assert.Contains(t, content, "WORKDIR /app")
	assert.Contains(t, content, "COPY package*.json ./")
	assert.Contains(t, content, "RUN npm ci")
	assert.Contains(t, content, "RUN npm run build")

	// Stage 2: serve.
	assert.Contains(t, content, "FROM nginx:alpine")
	assert.Contains(t, content, "COPY --from=builder /app/build /usr/share/nginx/html")
	assert.Contains(t, content, "EXPOSE 80")

	// The serve stage brings its own entrypoint: no CMD is rendered.
	assert.NotContains(t, content, "CMD")

	// Dependencies are copied before the source tree so the install
	// layer is cached across source-only changes.
	installIdx := strings.Index(content, "COPY package*.json ./")
	sourceIdx := strings.Index(content, "COPY . .")
	assert.Less(t, installIdx, sourceIdx)
}

// TestRender_Frontend_NoLock verifies the install command falls back to
// npm install when the context has no lock file.
func TestRender_Frontend_NoLock(t *testing.T) {
	projectDir := t.TempDir()
	svc := frontendService(t, projectDir, false)

	content, err := Render(projectDir, svc)
	require.NoError(t, err)

	assert.Contains(t, content, "RUN npm install\n")
	assert.NotContains(t, content, "npm ci")
}

// TestRender_Backend verifies the single-stage backend recipe: one node
// stage, API port exposed, exec-form start command.
func TestRender_Backend(t *testing.T) {
	projectDir := t.TempDir()
	svc := backendService(t, projectDir, true)

	content, err := Render(projectDir, svc)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(content, "# Generated by tmuctl."))
	assert.Contains(t, content, "FROM node:18-alpine\n")
	assert.Contains(t, content, "RUN npm ci")
	assert.Contains(t, content, "EXPOSE 3000")
	assert.Contains(t, content, `CMD ["npm", "start"]`)

	// Single stage: no builder alias, no copy between stages.
	assert.NotContains(t, content, "AS builder")
	assert.NotContains(t, content, "--from=")
}

// TestRender_RecipeOverrides verifies deploy.json recipe overrides flow
// through to the rendered output.
func TestRender_RecipeOverrides(t *testing.T) {
	projectDir := t.TempDir()
	svc := frontendService(t, projectDir, false)
	svc.Recipe = &stack.RecipeConfig{
		BaseImage:  "node:20-alpine",
		BuildDir:   "dist",
		ServeImage: "caddy:alpine",
		WebRoot:    "/srv",
	}

	content, err := Render(projectDir, svc)
	require.NoError(t, err)

	assert.Contains(t, content, "FROM node:20-alpine AS builder")
	assert.Contains(t, content, "FROM caddy:alpine")
	assert.Contains(t, content, "COPY --from=builder /app/dist /srv")
}

// TestRender_ExposeFollowsContainerPort verifies EXPOSE tracks the
// container side of the first published mapping, not the host side.
func TestRender_ExposeFollowsContainerPort(t *testing.T) {
	projectDir := t.TempDir()
	svc := backendService(t, projectDir, false)
	svc.Ports = []string{"9090:4000"}

	content, err := Render(projectDir, svc)
	require.NoError(t, err)

	assert.Contains(t, content, "EXPOSE 4000")
	assert.NotContains(t, content, "EXPOSE 9090")
}

// TestRender_Deterministic verifies byte-identical output across runs,
// which staleness detection depends on.
func TestRender_Deterministic(t *testing.T) {
	projectDir := t.TempDir()
	svc := frontendService(t, projectDir, true)

	first, err := Render(projectDir, svc)
	require.NoError(t, err)
	second, err := Render(projectDir, svc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestRender_InvalidRole verifies rendering refuses services without a
// valid role rather than guessing a recipe.
func TestRender_InvalidRole(t *testing.T) {
	svc := &stack.ServiceConfig{Name: "mystery", Role: "database", Context: "db"}

	_, err := Render(t.TempDir(), svc)
	assert.Error(t, err)
}

// TestExecForm verifies exec-form rendering, including arguments that
// need quoting.
func TestExecForm(t *testing.T) {
	assert.Equal(t, `["npm", "start"]`, execForm([]string{"npm", "start"}))
	assert.Equal(t, `["node", "server.js", "--port", "3000"]`,
		execForm([]string{"node", "server.js", "--port", "3000"}))
	assert.Equal(t, `["sh", "-c", "echo \"hi\""]`, execForm([]string{"sh", "-c", `echo "hi"`}))
}

// TestWrite verifies the Dockerfile lands inside the service's build
// context at the configured name.
func TestWrite(t *testing.T) {
	projectDir := t.TempDir()
	svc := backendService(t, projectDir, false)

	path, err := Write(projectDir, svc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(projectDir, "backend", "Dockerfile"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "EXPOSE 3000")
}

// TestWrite_CustomDockerfileName verifies a non-default dockerfile name
// from the config is honored.
func TestWrite_CustomDockerfileName(t *testing.T) {
	projectDir := t.TempDir()
	svc := backendService(t, projectDir, false)
	svc.Dockerfile = "Dockerfile.api"

	path, err := Write(projectDir, svc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(projectDir, "backend", "Dockerfile.api"), path)
}
