// Package envfile handles the project env file that supplies runtime
// configuration to the stack, most importantly the database connection
// string.
//
// The connection string is externally supplied on purpose: it never
// appears in deploy.json, the generated Dockerfiles, or the Compose
// manifest, all of which are meant to be committed. The env file is the
// one place a real credential lives, so everything in this package that
// surfaces values to the user goes through redaction first.
//
// Parsing is delegated to godotenv, which implements the de facto
// dotenv format (comments, quoting, export prefixes) as the Node
// tooling on the other side of the file expects it.
package envfile
