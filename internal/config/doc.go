// Package config defines the format-agnostic project configuration model:
// watched and public paths, file conventions, joined outputs with their
// ordering rules, plugin settings and package kinds.
//
// Concrete loaders live in separate packages (internal/hcl for HCL and
// internal/yamlconfig for YAML). Both produce a Model which is then
// completed with ApplyDefaults and checked with Validate.
package config
