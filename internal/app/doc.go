// Package app contains the core application logic. It wires the project
// configuration, the plugin registry, the build pipeline, the file watcher
// and the live reload server together, decoupled from any specific
// entrypoint like a CLI.
package app
