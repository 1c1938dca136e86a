// config.go implements loading and querying of the deploy.json
// configuration file.
package stack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/jude-san/TMU-app/internal/model"
)

// ConfigFileName is the canonical name of the deploy configuration file,
// expected at the project root.
const ConfigFileName = "deploy.json"

// defaultHealthWait bounds how long `tmuctl up` waits for the stack to
// become reachable before giving up.
const defaultHealthWait = 90 * time.Second

// Config is the parsed deploy.json. It describes the whole stack:
// which services exist, how their images are built, and how they are
// wired together at run time.
type Config struct {
	// Name is the stack name, used as the Compose project name and as
	// the prefix for generated container names. Compose project scoping
	// means `tmuctl down` removes exactly this stack's resources.
	Name string `json:"name"`

	// StackID is a UUID assigned by `tmuctl init`. It is stamped into
	// container labels and ties running containers back to this file
	// even if the stack is later renamed.
	StackID string `json:"stackId"`

	// EnvFile is the project-relative path of the env file holding the
	// database connection string. Defaults to ".env".
	EnvFile string `json:"envFile"`

	// HealthWaitTimeout is how long `tmuctl up` waits for the services
	// to respond, as a Go duration string (e.g. "90s"). Empty means the
	// default.
	HealthWaitTimeout string `json:"healthWaitTimeout"`

	// Services are the service declarations. A valid stack has exactly
	// one frontend and one backend.
	Services []ServiceConfig `json:"services"`
}

// ServiceConfig declares one service of the stack.
type ServiceConfig struct {
	// Name is the Compose service name.
	Name string `json:"name"`

	// Role is the application tier: "frontend" or "backend".
	Role model.ServiceRole `json:"role"`

	// Context is the project-relative build context directory,
	// e.g. "./frontend".
	Context string `json:"context"`

	// Dockerfile is the Dockerfile path relative to the context.
	// Defaults to "Dockerfile".
	Dockerfile string `json:"dockerfile"`

	// ContainerName is the fixed container name. Defaults to
	// "<stack>-<service>".
	ContainerName string `json:"containerName"`

	// Ports are published port specifications in "host:container" or
	// "host:container/protocol" form. Every entry must name an explicit
	// host port.
	Ports []string `json:"ports"`

	// Env lists the names of environment variables from the env file
	// that this service requires (e.g. the database connection string
	// for the backend). Values never appear in deploy.json.
	Env []string `json:"env"`

	// DependsOn lists services that must be created and healthy before
	// this one starts.
	DependsOn []string `json:"dependsOn"`

	// HealthPath is the HTTP path probed by the container healthcheck
	// and the smoke tests. Required for the backend, optional for the
	// frontend (which is probed at "/").
	HealthPath string `json:"healthPath"`

	// Restart is the Compose restart policy. Empty leaves the policy
	// unset, which is the default: supervision is an orchestration
	// concern the stack does not bake in.
	Restart string `json:"restart"`

	// Recipe overrides the role's default image recipe. Nil means the
	// defaults apply.
	Recipe *RecipeConfig `json:"recipe"`
}

// RecipeConfig describes how a service image is assembled. Fields left
// empty are filled from the role defaults by ResolveRecipe.
type RecipeConfig struct {
	// BaseImage is the image used to install dependencies and run (or
	// build) the application, e.g. "node:18-alpine".
	BaseImage string `json:"baseImage"`

	// Workdir is the working directory inside the image.
	Workdir string `json:"workdir"`

	// InstallCommand installs dependencies, e.g. "npm ci". Empty means
	// it is chosen at render time based on whether the context has a
	// lock file.
	InstallCommand string `json:"installCommand"`

	// BuildCommand produces the static build output (frontend only).
	BuildCommand string `json:"buildCommand"`

	// BuildDir is the directory the build command writes its output to,
	// relative to the workdir (frontend only).
	BuildDir string `json:"buildDir"`

	// ServeImage is the runtime image of the second stage that serves
	// the static build (frontend only), e.g. "nginx:alpine".
	ServeImage string `json:"serveImage"`

	// WebRoot is the directory inside the serve image that the build
	// output is copied to (frontend only).
	WebRoot string `json:"webRoot"`

	// StartCommand is the container start command in exec form
	// (backend only), e.g. ["npm", "start"].
	StartCommand []string `json:"startCommand"`
}

// LoadConfig reads and parses a deploy.json file from the given path.
//
// JSONC comments are stripped before parsing, so the file may contain
// // and /* */ comments. Unknown fields are ignored, which keeps old
// binaries working against newer config files.
//
// Returns ExitConfigNotFound if the file does not exist and
// ExitConfigInvalid if it cannot be parsed.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigNotFound,
				fmt.Sprintf("deploy config not found at %s (run `tmuctl init` to create one)", path), err)
		}
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to read deploy config at %s", path), err)
	}

	// jsonc.ToJSON replaces comments with whitespace, preserving byte
	// offsets so JSON syntax errors still point to the right place.
	clean := jsonc.ToJSON(raw)

	var cfg Config
	if err := json.Unmarshal(clean, &cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("failed to parse deploy config at %s", path), err)
	}

	return &cfg, nil
}

// FindConfig locates the deploy config for a project directory.
//
// Two locations are checked, in order:
//  1. <dir>/deploy.json        (the standard location)
//  2. <dir>/.tmu/deploy.json   (for projects that keep tooling files
//     out of the root)
//
// Returns the path of the first match, or ExitConfigNotFound if
// neither exists.
func FindConfig(dir string) (string, error) {
	candidates := []string{
		filepath.Join(dir, ConfigFileName),
		filepath.Join(dir, ".tmu", ConfigFileName),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", model.NewCLIError(model.ExitConfigNotFound,
		fmt.Sprintf("no %s found in %s (run `tmuctl init` to create one)", ConfigFileName, dir))
}

// HealthWait returns the configured health wait timeout, falling back
// to the default when the field is empty or malformed. Validation
// reports malformed values separately; this accessor never fails so
// callers on the happy path stay simple.
func (c *Config) HealthWait() time.Duration {
	if c.HealthWaitTimeout == "" {
		return defaultHealthWait
	}
	d, err := time.ParseDuration(c.HealthWaitTimeout)
	if err != nil || d <= 0 {
		return defaultHealthWait
	}
	return d
}

// ServiceByRole returns the service with the given role, or nil if the
// config does not declare one.
func (c *Config) ServiceByRole(role model.ServiceRole) *ServiceConfig {
	for i := range c.Services {
		if c.Services[i].Role == role {
			return &c.Services[i]
		}
	}
	return nil
}

// ServiceByName returns the service with the given name, or nil if the
// config does not declare one.
func (c *Config) ServiceByName(name string) *ServiceConfig {
	for i := range c.Services {
		if c.Services[i].Name == name {
			return &c.Services[i]
		}
	}
	return nil
}

// Frontend returns the frontend service declaration, or nil.
func (c *Config) Frontend() *ServiceConfig {
	return c.ServiceByRole(model.RoleFrontend)
}

// Backend returns the backend service declaration, or nil.
func (c *Config) Backend() *ServiceConfig {
	return c.ServiceByRole(model.RoleBackend)
}
