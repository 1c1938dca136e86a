// Package stack handles loading, defaulting, and validation of the
// deploy.json configuration file for the tmuctl CLI.
//
// deploy.json describes the two-service stack: the frontend (static web
// tier) and the backend (HTTP API tier). Each service declares its build
// context, container name, published ports, ordering dependency, and an
// optional image recipe that overrides the role defaults. The database
// is intentionally absent: it is remote and reached via a connection
// string from the env file.
//
// JSONC (JSON with Comments) is supported via github.com/tidwall/jsonc,
// so the scaffolded file can document itself and stay hand-editable.
// Port specifications in "host:container" form are parsed through
// github.com/docker/go-connections/nat, the same parser the Docker
// Engine uses, so anything accepted here is accepted by the engine.
package stack
