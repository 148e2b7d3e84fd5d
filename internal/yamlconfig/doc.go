// Package yamlconfig is the YAML implementation of config.Loader, for
// projects that keep their build settings in assetgrid.yaml.
//
// Criteria are written as plain strings (equal or glob) or as single-key
// mappings: {regex: "^app/"}, {glob: "test/**"}, {exact: "a.js"}.
package yamlconfig
