// client.go implements Docker client initialization with automatic
// socket detection across platforms.
package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/jude-san/TMU-app/internal/model"
)

// defaultPingTimeout bounds how long connection verification waits.
// A reachable daemon answers a ping in milliseconds; anything slower
// is effectively down and the user should hear about it quickly.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker SDK client. The wrapper keeps SDK types out
// of the rest of the codebase and gives command code one place to hang
// tmuctl-specific behavior (ping timeout, error translation).
type Client struct {
	inner *client.Client
}

// NewClient creates a Docker client.
//
// The daemon address is resolved in order:
//  1. The DOCKER_HOST environment variable, if set. This also covers
//     remote daemons and alternative runtimes like colima.
//  2. The first existing socket among the platform's usual locations.
//  3. The platform default, even if nothing was found, so the
//     connection error mentions the address the user should check.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		host = detectHost()
	}

	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		// Version negotiation lets one binary talk to old and new
		// daemons without pinning an API version.
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for %s", host), err)
	}

	return &Client{inner: c}, nil
}

// detectHost returns the daemon address for this platform: the first
// socket that exists on disk, or the platform default when none do.
func detectHost() string {
	if runtime.GOOS == "windows" {
		// Named pipes cannot be probed with os.Stat; the default pipe
		// is where Docker Desktop always listens.
		return "npipe:////./pipe/docker_engine"
	}

	candidates := []string{"/var/run/docker.sock"}
	if home, err := os.UserHomeDir(); err == nil {
		// Docker Desktop for Mac (and rootless setups) put the socket
		// under the user's home directory.
		candidates = append([]string{filepath.Join(home, ".docker", "run", "docker.sock")}, candidates...)
	}
	if runtime.GOOS == "linux" {
		candidates = append(candidates, "/run/docker.sock")
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path
		}
	}

	return "unix:///var/run/docker.sock"
}

// Ping verifies the daemon is reachable and responding. Commands call
// this once up front so every later operation can assume a live daemon.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(ctx); err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			"Docker daemon is not reachable (is Docker running?)", err)
	}
	return nil
}

// Close releases the client's underlying connections.
func (c *Client) Close() error {
	return c.inner.Close()
}

// Inner exposes the underlying SDK client for operations this package
// does not wrap.
func (c *Client) Inner() *client.Client {
	return c.inner
}
