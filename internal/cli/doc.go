// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates flags, environment variables and .env files into the
// application's configuration and dispatches to the app.
package cli
