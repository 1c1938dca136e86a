// Package docker provides Docker Engine API wrappers and container
// lifecycle management for the tmuctl CLI.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Container label management: the tmu.* labels stamped onto every
//     container are the sole persistent state, and stack discovery,
//     grouping, and orphan detection are all reconstructed from them
//   - Container lifecycle operations: list, start, stop, remove
//   - Docker Compose operations (up, stop, down) by shelling out to
//     the docker compose plugin, which owns image builds, network
//     creation, and dependency-ordered startup
//
// The split follows how the two interfaces are good at different
// things: the Engine API (github.com/docker/docker/client, with version
// negotiation enabled) answers queries precisely, while the compose CLI
// reconciles multi-container state declaratively.
package docker
