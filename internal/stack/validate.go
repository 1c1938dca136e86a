// validate.go implements deploy config validation.
//
// Validation collects every problem instead of stopping at the first,
// so a user editing deploy.json sees the full list in one run.
package stack

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jude-san/TMU-app/internal/model"
)

// ValidationError describes a single problem found in the deploy config.
type ValidationError struct {
	// Field is the config field the problem relates to, in dotted path
	// form (e.g. "services[0].ports").
	Field string

	// Message explains what is wrong and, where possible, how to fix it.
	Message string
}

// allowedRestartPolicies are the Compose restart policy values.
var allowedRestartPolicies = map[string]bool{
	"":               true, // unset: no supervision, the default
	"no":             true,
	"always":         true,
	"on-failure":     true,
	"unless-stopped": true,
}

// ValidateConfig checks a deploy config and returns all problems found.
// An empty slice means the config is valid.
//
// The rules enforced here are the stack invariants:
//   - exactly one frontend and one backend service, nothing else
//   - service names valid and unique
//   - every published host port unique across the stack
//   - every dependsOn entry names another declared service
//   - build contexts and the env file are project-relative paths
func ValidateConfig(cfg *Config) []ValidationError {
	var errs []ValidationError

	if err := model.ValidateName(cfg.Name); err != nil {
		errs = append(errs, ValidationError{Field: "name", Message: err.Error()})
	}

	if cfg.StackID != "" {
		if _, err := uuid.Parse(cfg.StackID); err != nil {
			errs = append(errs, ValidationError{
				Field:   "stackId",
				Message: fmt.Sprintf("not a valid UUID: %q", cfg.StackID),
			})
		}
	}

	if cfg.EnvFile != "" && filepath.IsAbs(cfg.EnvFile) {
		errs = append(errs, ValidationError{
			Field:   "envFile",
			Message: fmt.Sprintf("must be relative to the project directory, got absolute path %q", cfg.EnvFile),
		})
	}

	if cfg.HealthWaitTimeout != "" {
		if d, err := time.ParseDuration(cfg.HealthWaitTimeout); err != nil || d <= 0 {
			errs = append(errs, ValidationError{
				Field:   "healthWaitTimeout",
				Message: fmt.Sprintf("must be a positive duration like \"90s\", got %q", cfg.HealthWaitTimeout),
			})
		}
	}

	errs = append(errs, validateServices(cfg)...)

	return errs
}

// validateServices checks the service list: per-service fields, role
// coverage, name uniqueness, port uniqueness, and dependency references.
func validateServices(cfg *Config) []ValidationError {
	var errs []ValidationError

	if len(cfg.Services) == 0 {
		return append(errs, ValidationError{
			Field:   "services",
			Message: "no services declared (the stack needs a frontend and a backend)",
		})
	}

	names := make(map[string]bool)
	roleCount := make(map[model.ServiceRole]int)

	for i := range cfg.Services {
		svc := &cfg.Services[i]
		field := fmt.Sprintf("services[%d]", i)

		if err := model.ValidateName(svc.Name); err != nil {
			errs = append(errs, ValidationError{Field: field + ".name", Message: err.Error()})
		} else if names[svc.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate service name %q", svc.Name),
			})
		}
		names[svc.Name] = true

		if !svc.Role.IsValid() {
			errs = append(errs, ValidationError{
				Field:   field + ".role",
				Message: fmt.Sprintf("invalid role %q (must be %q or %q)", svc.Role, model.RoleFrontend, model.RoleBackend),
			})
		} else {
			roleCount[svc.Role]++
		}

		if svc.Context == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".context",
				Message: "build context is required (e.g. \"./frontend\")",
			})
		} else if filepath.IsAbs(svc.Context) {
			errs = append(errs, ValidationError{
				Field:   field + ".context",
				Message: fmt.Sprintf("must be relative to the project directory, got absolute path %q", svc.Context),
			})
		}

		if svc.Dockerfile != "" && filepath.IsAbs(svc.Dockerfile) {
			errs = append(errs, ValidationError{
				Field:   field + ".dockerfile",
				Message: fmt.Sprintf("must be relative to the build context, got absolute path %q", svc.Dockerfile),
			})
		}

		if svc.HealthPath != "" && !strings.HasPrefix(svc.HealthPath, "/") {
			errs = append(errs, ValidationError{
				Field:   field + ".healthPath",
				Message: fmt.Sprintf("must start with \"/\", got %q", svc.HealthPath),
			})
		}
		if svc.Role == model.RoleBackend && svc.HealthPath == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".healthPath",
				Message: "backend service needs a health path (the healthcheck and smoke tests probe it)",
			})
		}

		if !allowedRestartPolicies[svc.Restart] {
			errs = append(errs, ValidationError{
				Field:   field + ".restart",
				Message: fmt.Sprintf("invalid restart policy %q (one of: no, always, on-failure, unless-stopped)", svc.Restart),
			})
		}

		// Dependency references must point at other declared services.
		for _, dep := range svc.DependsOn {
			if dep == svc.Name {
				errs = append(errs, ValidationError{
					Field:   field + ".dependsOn",
					Message: fmt.Sprintf("service %q cannot depend on itself", svc.Name),
				})
				continue
			}
			if cfg.ServiceByName(dep) == nil {
				errs = append(errs, ValidationError{
					Field:   field + ".dependsOn",
					Message: fmt.Sprintf("depends on undeclared service %q", dep),
				})
			}
		}
	}

	// The stack is exactly one frontend plus one backend. The database
	// tier is remote and must not appear as a service.
	for _, role := range []model.ServiceRole{model.RoleFrontend, model.RoleBackend} {
		switch roleCount[role] {
		case 0:
			errs = append(errs, ValidationError{
				Field:   "services",
				Message: fmt.Sprintf("no %s service declared", role),
			})
		case 1:
			// Expected.
		default:
			errs = append(errs, ValidationError{
				Field:   "services",
				Message: fmt.Sprintf("%d %s services declared (exactly one is allowed)", roleCount[role], role),
			})
		}
	}

	// Host port uniqueness across the whole stack. Parse errors are
	// reported here too, since parsing is part of port validation.
	mappings, err := ParseStackPorts(cfg)
	if err != nil {
		errs = append(errs, ValidationError{Field: "services.ports", Message: err.Error()})
	} else if err := model.ValidatePortMappings(mappings); err != nil {
		errs = append(errs, ValidationError{Field: "services.ports", Message: err.Error()})
	}

	return errs
}

// Validate runs ValidateConfig and converts any findings into a single
// CLIError with ExitConfigInvalid, one finding per line. Commands call
// this; `tmuctl doctor` uses ValidateConfig directly to report findings
// individually.
func (c *Config) Validate() error {
	errs := ValidateConfig(c)
	if len(errs) == 0 {
		return nil
	}

	lines := make([]string, 0, len(errs))
	for _, ve := range errs {
		lines = append(lines, fmt.Sprintf("  %s: %s", ve.Field, ve.Message))
	}

	return model.NewCLIError(model.ExitConfigInvalid,
		fmt.Sprintf("deploy config is invalid:\n%s", strings.Join(lines, "\n")))
}
