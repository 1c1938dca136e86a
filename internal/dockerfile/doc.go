// Package dockerfile renders the image build recipes for the stack's
// two services.
//
// The frontend recipe is a two-stage build: a node stage installs
// dependencies and produces the static build, then an nginx stage
// serves the output. Discarding the build stage keeps node_modules and
// the toolchain out of the shipped image.
//
// The backend recipe is a single node stage that installs dependencies,
// copies the source, and runs the start command. No process supervision
// is baked into the image; restart policy belongs to the orchestration
// layer.
//
// Rendering is deterministic: the same resolved recipe always produces
// byte-identical output, which lets `tmuctl doctor` detect stale
// generated files by comparison.
package dockerfile
