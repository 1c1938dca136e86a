// Package health probes the stack's HTTP endpoints from the host's
// point of view.
//
// The container healthcheck in the Compose manifest runs inside the
// backend container; it proves the process answers on its own port,
// not that the host port mapping works. The checks here go through
// http://localhost:<hostPort> exactly like a user's browser would, so
// they catch missing or wrong port mappings that the in-container
// probe cannot see.
//
// Two commands drive this package: `tmuctl up` polls after deploy
// until both services answer (or the timeout runs out), and `tmuctl
// check` runs the same probes once as a smoke test.
package health
