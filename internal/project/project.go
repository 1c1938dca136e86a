// project.go resolves the project root and detects the source layout.
package project

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Directory names tried when detecting the application layout, in
// preference order. The first candidate containing a package.json wins.
var (
	frontendCandidates = []string{"frontend", "client", "web", "ui"}
	backendCandidates  = []string{"backend", "server", "api"}
)

// Defaults used when detection finds nothing; init scaffolds with these
// and the user adjusts deploy.json to match reality.
const (
	DefaultFrontendDir = "./frontend"
	DefaultBackendDir  = "./backend"
)

// Locator resolves project roots.
//
// The struct is stateless; it exists as a receiver so a custom git
// binary path or logging can be added later without breaking callers.
type Locator struct{}

// NewLocator creates a new Locator.
func NewLocator() *Locator {
	return &Locator{}
}

// FindRoot returns the absolute project root for a directory.
//
// Inside a Git checkout this is the repository's top level, resolved
// with `git rev-parse --show-toplevel`, which handles worktrees and
// nested invocation directories alike. Outside one (or without git
// installed) the directory itself, made absolute, is the root.
func (l *Locator) FindRoot(dir string) (string, error) {
	if output, err := runGit(dir, "rev-parse", "--show-toplevel"); err == nil {
		root := strings.TrimSpace(output)
		if root != "" {
			return root, nil
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", dir, err)
	}
	return abs, nil
}

// Layout describes where the application tiers live under the project
// root.
type Layout struct {
	// FrontendDir is the frontend build context relative to the root,
	// e.g. "./client".
	FrontendDir string

	// BackendDir is the backend build context relative to the root.
	BackendDir string

	// FrontendFound and BackendFound report whether detection found a
	// real directory or fell back to the default name.
	FrontendFound bool
	BackendFound  bool
}

// DetectLayout looks for the frontend and backend source directories
// under the project root.
//
// A candidate qualifies if it is a directory containing a package.json;
// a bare directory is not enough, since the recipes start by copying
// package manifests into the image. When no candidate qualifies the
// default name is returned with Found false, so init can scaffold a
// config the user corrects afterwards.
func DetectLayout(root string) Layout {
	layout := Layout{
		FrontendDir: DefaultFrontendDir,
		BackendDir:  DefaultBackendDir,
	}

	if dir, ok := findNodeDir(root, frontendCandidates); ok {
		layout.FrontendDir = "./" + dir
		layout.FrontendFound = true
	}
	if dir, ok := findNodeDir(root, backendCandidates); ok {
		layout.BackendDir = "./" + dir
		layout.BackendFound = true
	}

	return layout
}

// findNodeDir returns the first candidate that is a directory with a
// package.json in it.
func findNodeDir(root string, candidates []string) (string, bool) {
	for _, name := range candidates {
		if hasPackageJSON(filepath.Join(root, name)) {
			return name, true
		}
	}
	return "", false
}

// hasPackageJSON reports whether dir contains a package.json file.
func hasPackageJSON(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "package.json"))
	return err == nil && !info.IsDir()
}

// runGit executes a git command in the given directory and returns its
// stdout.
//
// The directory is passed with -C, which git handles itself for every
// subcommand; this avoids changing the process working directory.
// Stderr is folded into the error for diagnostics.
func runGit(dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), stderrStr, err)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	return stdout.String(), nil
}
