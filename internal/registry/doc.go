// Package registry holds the compilers and optimizers available to a single
// application instance.
//
// Built-in plugins live under modules/ and register themselves through the
// Module interface. The registry routes a source path to the first compiler
// that claims it, in registration order, and collects the optimizers for an
// output type. Per-plugin settings from the project configuration (such as
// ignore criteria) are layered on top of each plugin's own descriptor.
package registry
