// render.go produces Dockerfile contents from resolved image recipes.
package dockerfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jude-san/TMU-app/internal/model"
	"github.com/jude-san/TMU-app/internal/stack"
)

// Header is prepended to every rendered Dockerfile. Users edit
// deploy.json, not the rendered output.
const Header = `# Generated by tmuctl. DO NOT EDIT.
# Edit deploy.json and run ` + "`tmuctl generate`" + ` to re-render this file.
`

// frontendTemplate is the two-stage frontend recipe. Placeholders, in
// order: base image, workdir, install command, build command, workdir,
// build dir, serve image, workdir, build dir, web root, expose port.
const frontendTemplate = `
# Stage 1: install dependencies and produce the static build.
FROM %s AS builder
WORKDIR %s
COPY package*.json ./
RUN %s
COPY . .
RUN %s

# Stage 2: serve the build output from a minimal web server image.
# The server image's own entrypoint does the serving; nothing from the
# builder survives except %s/%s.
FROM %s
COPY --from=builder %s/%s %s
EXPOSE %d
`

// backendTemplate is the single-stage backend recipe. Placeholders, in
// order: base image, workdir, install command, expose port, start
// command (exec form).
const backendTemplate = `
FROM %s
WORKDIR %s
COPY package*.json ./
RUN %s
COPY . .
EXPOSE %d
CMD %s
`

// Render produces the Dockerfile contents for a service. The recipe is
// resolved from the role defaults, deploy.json overrides, and the
// context's lock file, so the output reflects what `tmuctl generate`
// would write right now.
func Render(projectDir string, svc *stack.ServiceConfig) (string, error) {
	if !svc.Role.IsValid() {
		return "", fmt.Errorf("service %q has no valid role to render a Dockerfile for", svc.Name)
	}

	recipe := stack.ResolveRecipe(projectDir, svc)
	port, err := exposePort(svc)
	if err != nil {
		return "", err
	}

	if svc.Role == model.RoleFrontend {
		return renderFrontend(recipe, port), nil
	}
	return renderBackend(recipe, port)
}

// renderFrontend fills the two-stage template.
func renderFrontend(recipe stack.RecipeConfig, port int) string {
	body := fmt.Sprintf(frontendTemplate,
		recipe.BaseImage,
		recipe.Workdir,
		recipe.InstallCommand,
		recipe.BuildCommand,
		recipe.Workdir, recipe.BuildDir,
		recipe.ServeImage,
		recipe.Workdir, recipe.BuildDir, recipe.WebRoot,
		port,
	)
	return Header + body
}

// renderBackend fills the single-stage template. The start command is
// rendered in exec form so the process receives signals directly
// instead of through a shell.
func renderBackend(recipe stack.RecipeConfig, port int) (string, error) {
	if len(recipe.StartCommand) == 0 {
		return "", fmt.Errorf("backend recipe has no start command")
	}

	body := fmt.Sprintf(backendTemplate,
		recipe.BaseImage,
		recipe.Workdir,
		recipe.InstallCommand,
		port,
		execForm(recipe.StartCommand),
	)
	return Header + body, nil
}

// execForm renders a command as a Dockerfile exec-form array,
// e.g. ["npm", "start"].
func execForm(cmd []string) string {
	quoted := make([]string, 0, len(cmd))
	for _, part := range cmd {
		quoted = append(quoted, strconv.Quote(part))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// exposePort picks the EXPOSE port for a service: the container side of
// its first published mapping, or the role default when the service
// publishes nothing.
func exposePort(svc *stack.ServiceConfig) (int, error) {
	mappings, err := stack.ParseServicePorts(svc)
	if err != nil {
		return 0, err
	}
	if len(mappings) > 0 {
		return mappings[0].ContainerPort, nil
	}

	if svc.Role == model.RoleFrontend {
		return stack.DefaultFrontendPort, nil
	}
	return stack.DefaultBackendPort, nil
}

// Path returns where a service's Dockerfile lives: the dockerfile path
// from the config resolved against the service's build context.
func Path(projectDir string, svc *stack.ServiceConfig) string {
	name := svc.Dockerfile
	if name == "" {
		name = "Dockerfile"
	}
	return filepath.Join(projectDir, svc.Context, name)
}

// Write renders a service's Dockerfile and writes it into the service's
// build context, creating directories as needed. Returns the written
// path.
func Write(projectDir string, svc *stack.ServiceConfig) (string, error) {
	content, err := Render(projectDir, svc)
	if err != nil {
		return "", err
	}

	path := Path(projectDir, svc)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create build context directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}
