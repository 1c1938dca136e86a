// defaults.go holds the canonical stack defaults and the scaffolding
// template written by `tmuctl init`.
package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jude-san/TMU-app/internal/model"
)

// Role defaults for the image recipes. These mirror the standard layout
// of a Node/React to-do application: the frontend is built with npm and
// served as static files by nginx, the backend runs under npm directly.
const (
	// DefaultNodeImage is the build (and backend runtime) base image.
	DefaultNodeImage = "node:18-alpine"

	// DefaultServeImage serves the frontend's static build output.
	DefaultServeImage = "nginx:alpine"

	// DefaultWorkdir is the working directory inside build stages.
	DefaultWorkdir = "/app"

	// DefaultBuildCommand produces the frontend's static build.
	DefaultBuildCommand = "npm run build"

	// DefaultBuildDir is where react-scripts writes the static build.
	DefaultBuildDir = "build"

	// DefaultWebRoot is nginx's document root in the official image.
	DefaultWebRoot = "/usr/share/nginx/html"

	// DefaultFrontendPort is the web port, inside the container and on
	// the host.
	DefaultFrontendPort = 80

	// DefaultBackendPort is the API port, inside the container and on
	// the host.
	DefaultBackendPort = 3000

	// DefaultHealthPath is the backend's health endpoint.
	DefaultHealthPath = "/api/health"

	// DefaultEnvFile is the env file read by the backend service.
	DefaultEnvFile = ".env"

	// DefaultConnectionVar is the environment variable carrying the
	// database connection string. Its value lives in the env file,
	// never in deploy.json.
	DefaultConnectionVar = "MONGODB_URI"
)

// installCommand names for the two npm install modes. npm ci is
// preferred when a lock file exists because it is faster and reproduces
// the locked dependency tree exactly.
const (
	installWithLock    = "npm ci"
	installWithoutLock = "npm install"
)

// DetectInstallCommand chooses the dependency install command for a
// build context: "npm ci" when package-lock.json exists in the context
// directory, "npm install" otherwise.
func DetectInstallCommand(contextDir string) string {
	lockPath := filepath.Join(contextDir, "package-lock.json")
	if info, err := os.Stat(lockPath); err == nil && !info.IsDir() {
		return installWithLock
	}
	return installWithoutLock
}

// DefaultConfig builds the canonical two-service configuration for a
// project. frontendDir and backendDir are the project-relative build
// context directories (e.g. "./frontend", "./backend").
//
// The returned config is fully populated: every field `tmuctl generate`
// consumes has a concrete value, so the scaffolded deploy.json shows the
// user everything that can be edited.
func DefaultConfig(name, frontendDir, backendDir string) *Config {
	return &Config{
		Name:              name,
		StackID:           uuid.NewString(),
		EnvFile:           DefaultEnvFile,
		HealthWaitTimeout: "90s",
		Services: []ServiceConfig{
			{
				Name:          "frontend",
				Role:          model.RoleFrontend,
				Context:       frontendDir,
				Dockerfile:    "Dockerfile",
				ContainerName: name + "-frontend",
				Ports:         []string{fmt.Sprintf("%d:%d", DefaultFrontendPort, DefaultFrontendPort)},
				DependsOn:     []string{"backend"},
			},
			{
				Name:          "backend",
				Role:          model.RoleBackend,
				Context:       backendDir,
				Dockerfile:    "Dockerfile",
				ContainerName: name + "-backend",
				Ports:         []string{fmt.Sprintf("%d:%d", DefaultBackendPort, DefaultBackendPort)},
				Env:           []string{DefaultConnectionVar},
				HealthPath:    DefaultHealthPath,
			},
		},
	}
}

// ApplyDefaults fills empty optional fields of a user-authored config
// in place. It never overrides a value the user set explicitly.
//
// deploy.json files written by `tmuctl init` are already complete; this
// exists for hand-written or trimmed-down configs.
func ApplyDefaults(cfg *Config) {
	if cfg.EnvFile == "" {
		cfg.EnvFile = DefaultEnvFile
	}

	for i := range cfg.Services {
		svc := &cfg.Services[i]

		if svc.Dockerfile == "" {
			svc.Dockerfile = "Dockerfile"
		}
		if svc.ContainerName == "" && cfg.Name != "" && svc.Name != "" {
			svc.ContainerName = cfg.Name + "-" + svc.Name
		}
		if svc.Role == model.RoleBackend && svc.HealthPath == "" {
			svc.HealthPath = DefaultHealthPath
		}
	}
}

// ResolveRecipe returns the effective image recipe for a service: the
// role defaults overlaid with any explicit overrides from deploy.json.
// projectDir is needed to resolve the build context for lock file
// detection when no install command is configured.
func ResolveRecipe(projectDir string, svc *ServiceConfig) RecipeConfig {
	recipe := RecipeConfig{
		BaseImage: DefaultNodeImage,
		Workdir:   DefaultWorkdir,
	}

	if svc.Role == model.RoleFrontend {
		recipe.BuildCommand = DefaultBuildCommand
		recipe.BuildDir = DefaultBuildDir
		recipe.ServeImage = DefaultServeImage
		recipe.WebRoot = DefaultWebRoot
	} else {
		recipe.StartCommand = []string{"npm", "start"}
	}

	// Overlay explicit overrides.
	if o := svc.Recipe; o != nil {
		if o.BaseImage != "" {
			recipe.BaseImage = o.BaseImage
		}
		if o.Workdir != "" {
			recipe.Workdir = o.Workdir
		}
		if o.InstallCommand != "" {
			recipe.InstallCommand = o.InstallCommand
		}
		if o.BuildCommand != "" {
			recipe.BuildCommand = o.BuildCommand
		}
		if o.BuildDir != "" {
			recipe.BuildDir = o.BuildDir
		}
		if o.ServeImage != "" {
			recipe.ServeImage = o.ServeImage
		}
		if o.WebRoot != "" {
			recipe.WebRoot = o.WebRoot
		}
		if len(o.StartCommand) > 0 {
			recipe.StartCommand = o.StartCommand
		}
	}

	// Choose the install command last, from the actual context contents.
	if recipe.InstallCommand == "" {
		recipe.InstallCommand = DetectInstallCommand(filepath.Join(projectDir, svc.Context))
	}

	return recipe
}

// configTemplate is the deploy.json scaffold written by `tmuctl init`.
// It is a JSONC template rather than a marshaled Config so the written
// file carries explanatory comments, which json.Marshal cannot produce.
// The placeholders are, in order: stack name, stack ID, frontend
// context, frontend container name, backend context, backend container
// name.
const configTemplate = `{
  // Deployment configuration for the three-tier to-do application.
  // Edit this file and run ` + "`tmuctl generate`" + ` to re-render the
  // Dockerfiles and the Compose manifest.
  "name": "%s",

  // Assigned by tmuctl init. Ties running containers back to this file.
  "stackId": "%s",

  // The backend reads the database connection string from this file.
  // Copy .env.example and fill in your own credentials.
  "envFile": ".env",

  // How long ` + "`tmuctl up`" + ` waits for the stack to respond.
  "healthWaitTimeout": "90s",

  "services": [
    {
      "name": "frontend",
      "role": "frontend",
      "context": "%s",
      "dockerfile": "Dockerfile",
      "containerName": "%s",
      // host:container. The static build is served on port 80.
      "ports": ["80:80"],
      // The frontend starts only after the backend reports healthy.
      "dependsOn": ["backend"]
    },
    {
      "name": "backend",
      "role": "backend",
      "context": "%s",
      "dockerfile": "Dockerfile",
      "containerName": "%s",
      "ports": ["3000:3000"],
      // Variable names only. Values stay in the env file.
      "env": ["MONGODB_URI"],
      // Probed by the container healthcheck and ` + "`tmuctl check`" + `.
      "healthPath": "/api/health"
    }
  ]
}
`

// RenderConfigTemplate produces the deploy.json scaffold contents for a
// project. The output parses back into a Config equal to
// DefaultConfig(name, frontendDir, backendDir) with the given stackID.
func RenderConfigTemplate(name, stackID, frontendDir, backendDir string) []byte {
	out := fmt.Sprintf(configTemplate,
		name, stackID,
		frontendDir, name+"-frontend",
		backendDir, name+"-backend")
	return []byte(out)
}

// WriteConfig writes deploy config bytes to the given path, creating
// parent directories as needed. Unless force is set, an existing file
// is never overwritten: the config is user-owned once scaffolded.
func WriteConfig(path string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("%s already exists (use --force to overwrite)", path))
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SanitizeStackName converts an arbitrary directory name into a valid
// stack name: lowercased, with runs of invalid characters collapsed to
// single hyphens and leading/trailing hyphens trimmed. Returns "tmu-app"
// if nothing usable remains.
func SanitizeStackName(name string) string {
	lower := strings.ToLower(name)

	var b strings.Builder
	lastHyphen := false
	for _, r := range lower {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen && b.Len() > 0 {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "tmu-app"
	}
	return out
}
