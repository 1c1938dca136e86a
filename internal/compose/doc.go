// Package compose generates the Docker Compose manifest for a stack
// from its deploy configuration.
//
// The manifest is rendered in full on every `tmuctl generate` and
// `tmuctl up`; it is an output artifact, not a source file. Users who
// want to change the deployment edit deploy.json and regenerate.
//
// Rendering is deterministic: the same configuration always produces
// byte-identical output. yaml.v3 marshals maps in sorted key order and
// nothing time- or host-dependent goes into the file, so `tmuctl
// doctor` can detect a stale manifest by comparing bytes.
//
// Startup ordering is encoded in the manifest itself. The backend
// carries an HTTP healthcheck and the frontend depends on it with
// condition service_healthy, so Compose will not start the frontend
// until the backend is actually answering requests. A bare depends_on
// would only order container creation, which lets the frontend come up
// against a dead API.
package compose
