// checker.go implements the HTTP probes and the readiness poll loop.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jude-san/TMU-app/internal/model"
)

// requestTimeout bounds a single probe. Readiness polling sends many
// probes, so each one must fail fast; the overall deadline is the poll
// context's business.
const requestTimeout = 3 * time.Second

// DefaultPollInterval is the pause between readiness poll rounds.
const DefaultPollInterval = 2 * time.Second

// Checker runs HTTP probes against stack endpoints.
type Checker struct {
	client *http.Client
}

// NewChecker creates a Checker with a per-request timeout.
func NewChecker() *Checker {
	return &Checker{
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Check is one endpoint probe: a name for reporting, the URL to hit,
// and whether the response body must be a JSON object.
type Check struct {
	// Name identifies the probe in output, e.g. "backend /api/health".
	Name string

	// URL is the full endpoint URL, e.g. "http://localhost:3000/api/health".
	URL string

	// WantJSON requires the response body to decode as a JSON object.
	// The API's health endpoint returns one; the frontend just needs to
	// serve bytes.
	WantJSON bool
}

// URL builds a host-side endpoint URL from a published host port and a
// path. An empty path means the root.
func URL(hostPort int, path string) string {
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("http://localhost:%d%s", hostPort, path)
}

// Run executes a single probe.
//
// Success is any 2xx response, plus a decodable JSON object body when
// the check demands one. Connection errors come back as-is: during
// startup "connection refused" is the normal state, and the poll loop
// retries through it.
func (c *Checker) Run(ctx context.Context, check Check) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, check.URL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", check.URL, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused by the next poll round.
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s returned status %d", check.URL, resp.StatusCode)
	}

	if check.WantJSON {
		var payload map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("%s returned a non-JSON body: %w", check.URL, err)
		}
		return nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// WaitUntilReady polls the given checks until all pass or the context
// is done.
//
// Each round retries only the checks that have not passed yet. On
// timeout the error lists every still-failing check with its last
// probe error, so a user can tell a dead backend from a missing port
// mapping without re-running anything.
func (c *Checker) WaitUntilReady(ctx context.Context, checks []Check, interval time.Duration) error {
	if len(checks) == 0 {
		return nil
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	pending := make([]Check, len(checks))
	copy(pending, checks)
	lastErr := make(map[string]error, len(checks))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		remaining := pending[:0]
		for _, check := range pending {
			if err := c.Run(ctx, check); err != nil {
				lastErr[check.Name] = err
				remaining = append(remaining, check)
			}
		}
		pending = remaining

		if len(pending) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return model.WrapCLIError(
				model.ExitHealthCheckFailed,
				waitFailureMessage(pending, lastErr),
				ctx.Err(),
			)
		case <-ticker.C:
		}
	}
}

// waitFailureMessage summarizes which checks never passed and why.
func waitFailureMessage(pending []Check, lastErr map[string]error) string {
	var lines []string
	for _, check := range pending {
		lines = append(lines, fmt.Sprintf("  %s: %v", check.Name, lastErr[check.Name]))
	}
	return fmt.Sprintf("stack did not become ready in time; %d check(s) still failing:\n%s",
		len(pending), strings.Join(lines, "\n"))
}
