// Package project locates the project root and the application source
// directories inside it.
//
// The stack deploys a repository checkout: the deploy config, env file,
// and generated manifest all live at the project root, and the two
// build contexts live in subdirectories of it. Commands may be run from
// anywhere inside the checkout, so the root is resolved through Git
// (`git rev-parse --show-toplevel`) with the current directory as a
// fallback for projects that are not repositories.
//
// Git is shelled out to rather than linked in: root discovery is the
// only Git interaction, and the CLI must behave identically to the
// `git` binary the user sees, including worktree layouts.
package project
