// compose.go shells out to the Docker Compose CLI for whole-stack
// lifecycle operations.
//
// tmuctl generates the Compose manifest itself, so driving `docker
// compose` with it keeps build, network, and teardown semantics exactly
// what Compose users expect, including the dependency-ordered startup
// encoded in the manifest. Container-level queries and the orphan
// cleanup path use the Engine SDK directly instead (container.go).
package docker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/jude-san/TMU-app/internal/model"
)

// ComposeUp creates and starts the stack by executing
// "docker compose -f <file>... up -d" in the project directory.
//
// The -d flag detaches so the CLI does not block on container output;
// readiness is verified afterwards over HTTP rather than by watching
// logs. When build is true, --build forces image rebuilds even when
// images for the services already exist, which is how code changes are
// rolled out.
//
// The envVars parameter is passed to the compose process on top of the
// inherited environment. Compose forwards these into variable
// substitution in the manifest and into env_file resolution.
func ComposeUp(ctx context.Context, projectDir string, composeFiles []string, build bool, envVars map[string]string) error {
	args := buildComposeArgs(composeFiles)
	args = append(args, "up", "-d")
	if build {
		args = append(args, "--build")
	}

	return runCompose(ctx, projectDir, args, envVars)
}

// ComposeDown stops and removes the stack's containers and network by
// executing "docker compose -f <file>... down".
//
// Compose scopes removal to resources labeled with this project, so
// only the stack's own containers are removed; anything else on the
// host is untouched. When removeVolumes is true the -v flag also
// removes named and anonymous volumes for a complete cleanup.
func ComposeDown(ctx context.Context, projectDir string, composeFiles []string, removeVolumes bool) error {
	args := buildComposeArgs(composeFiles)
	args = append(args, "down")

	if removeVolumes {
		args = append(args, "-v")
	}

	return runCompose(ctx, projectDir, args, nil)
}

// buildComposeArgs constructs the common argument prefix for docker
// compose commands. Each manifest file gets its own -f flag; compose
// merges multiple files in order, later files taking precedence.
func buildComposeArgs(composeFiles []string) []string {
	args := make([]string, 0, len(composeFiles)*2+2)
	// "compose" is the subcommand for plugin-style invocation. The
	// legacy standalone docker-compose binary is not supported.
	args = append(args, "compose")
	for _, f := range composeFiles {
		args = append(args, "-f", f)
	}
	return args
}

// runCompose executes a docker compose command as a child process in
// the given working directory, optionally injecting extra environment
// variables.
//
// The working directory matters: compose resolves relative paths in the
// manifest (build contexts, env_file) against it, so it must be the
// project root. Stdout and stderr are captured together and folded into
// the error message on failure, since compose prints its diagnostics to
// both streams.
func runCompose(ctx context.Context, projectDir string, args []string, envVars map[string]string) error {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = projectDir

	// os.Environ() returns a copy, so appending does not affect this
	// process's own environment.
	cmd.Env = os.Environ()
	for k, v := range envVars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		// Callers ping the daemon before getting here, so a failure is a
		// build or manifest problem, not an unreachable daemon.
		return model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("docker compose failed: %s", strings.TrimSpace(string(output))),
			err,
		)
	}

	return nil
}
