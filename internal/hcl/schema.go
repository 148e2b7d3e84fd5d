package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode all top-level blocks and attributes of a file.
type fileRoot struct {
	Paths       *pathsBlock       `hcl:"paths,block"`
	Conventions *conventionsBlock `hcl:"conventions,block"`
	Files       []*filesBlock     `hcl:"files,block"`
	Plugins     []*pluginBlock    `hcl:"plugin,block"`
	Packages    *[]string         `hcl:"packages,optional"`
	Optimize    *bool             `hcl:"optimize,optional"`
}

type pathsBlock struct {
	Watched []string `hcl:"watched,optional"`
	Public  string   `hcl:"public,optional"`
}

type conventionsBlock struct {
	Assets  hcl.Expression `hcl:"assets,optional"`
	Vendor  hcl.Expression `hcl:"vendor,optional"`
	Ignored hcl.Expression `hcl:"ignored,optional"`
}

// filesBlock is `files "javascripts" { ... }`.
type filesBlock struct {
	Label string       `hcl:"type,label"`
	Joins []*joinBlock `hcl:"join,block"`
	Order *orderBlock  `hcl:"order,block"`
}

// joinBlock is `join "js/app.js" { sources = [...] }`.
type joinBlock struct {
	Output  string         `hcl:"output,label"`
	Sources hcl.Expression `hcl:"sources"`
}

type orderBlock struct {
	Before hcl.Expression `hcl:"before,optional"`
	After  hcl.Expression `hcl:"after,optional"`
}

// pluginBlock is `plugin "sass" { ... }`.
type pluginBlock struct {
	Name      string         `hcl:"name,label"`
	Command   []string       `hcl:"command,optional"`
	Role      string         `hcl:"role,optional"`
	Type      string         `hcl:"type,optional"`
	Extension string         `hcl:"extension,optional"`
	Pattern   string         `hcl:"pattern,optional"`
	Ignore    hcl.Expression `hcl:"ignore,optional"`
}
