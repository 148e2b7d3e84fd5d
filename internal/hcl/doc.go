// Package hcl provides the HCL implementation of config.Loader. It parses
// assetgrid.hcl files, evaluates criterion expressions with the regex(),
// glob() and exact() functions, and translates the result into the
// format-agnostic config.Model. Encode goes the other way and renders a model
// back to HCL.
package hcl
