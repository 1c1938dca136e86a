// Package model defines the domain types and value objects for the
// tmuctl CLI.
//
// This package contains pure data structures with no external dependencies.
// All runtime entities (StackInfo, ContainerInfo) are transient
// representations reconstructed from Docker container labels and the
// Engine API at runtime. There are no persistent state files: the
// deploy config describes intent, labels describe reality.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
