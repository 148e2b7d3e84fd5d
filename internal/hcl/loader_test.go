package hcl

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/components"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/plugin"
	"github.com/vk/assetgrid/internal/testutil"
)

const fullConfig = `
paths {
  watched = ["app", "vendor"]
  public  = "public"
}

conventions {
  assets  = [regex("(^|/)assets/")]
  vendor  = [regex("^(bower_components|vendor)/")]
  ignored = []
}

files "javascripts" {
  join "js/app.js" {
    sources = [regex("^app/")]
  }
  join "js/vendor.js" {
    sources = regex("^(bower_components|vendor)/")
  }
  order {
    before = ["vendor/scripts/console-polyfill.js", exact("vendor/scripts/*.js")]
    after  = [glob("test/**")]
  }
}

files "stylesheets" {
  join "css/app.css" {
    sources = ["app/**", "vendor/**"]
  }
}

plugin "sass" {
  command   = ["sass", "--stdin"]
  type      = "stylesheet"
  extension = "scss"
  ignore    = [regex("^vendor/")]
}

plugin "javascript" {
  ignore = []
}

plugin "csso" {
  command = ["csso", "--comments", "none"]
  role    = "optimizer"
  type    = "stylesheet"
}

packages = ["bower"]
optimize = true
`

func TestLoadFullConfig(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"assetgrid.hcl": fullConfig})

	m, err := NewLoader().Load(ctx, filepath.Join(root, "assetgrid.hcl"))
	require.NoError(t, err)

	assert.Equal(t, []string{"app", "vendor"}, m.Paths.Watched)
	assert.Equal(t, "public", m.Paths.Public)
	assert.True(t, m.Optimize)
	assert.Equal(t, []components.Kind{components.Bower}, m.Packages)

	require.Len(t, m.Conventions.Assets, 1)
	assert.Equal(t, match.KindRegex, m.Conventions.Assets[0].Kind())
	assert.NotNil(t, m.Conventions.Ignored)
	assert.Empty(t, m.Conventions.Ignored, "explicit empty list disables the default")

	js := m.FileSet(plugin.JavaScript)
	require.NotNil(t, js)
	require.Len(t, js.Joins, 2)
	assert.Equal(t, "js/app.js", js.Joins[0].Output)
	assert.True(t, match.Matches(js.Joins[0].Sources, "app/app.js"))
	require.Len(t, js.Joins[1].Sources, 1, "a single criterion is accepted without a list")
	assert.True(t, match.Matches(js.Joins[1].Sources, "bower_components/jquery/jquery.js"))

	require.Len(t, js.Order.Before, 2)
	assert.Equal(t, match.KindString, js.Order.Before[0].Kind())
	assert.Equal(t, match.KindExact, js.Order.Before[1].Kind())
	assert.False(t, js.Order.Before[1].Match("vendor/scripts/a.js"), "exact() disables globbing")
	assert.True(t, match.Matches(js.Order.After, "test/unit/spec.js"))

	css := m.FileSet(plugin.Stylesheet)
	require.NotNil(t, css)
	assert.True(t, match.Matches(css.Joins[0].Sources, "app/styles/main.css"))
	assert.Empty(t, css.Order.Before)

	require.Len(t, m.Plugins, 3)
	sass := m.Plugins[0]
	assert.Equal(t, "sass", sass.Name)
	assert.True(t, sass.External())
	assert.Equal(t, config.RoleCompiler, sass.Role)
	assert.False(t, sass.Optimizer())
	assert.Equal(t, []string{"sass", "--stdin"}, sass.Command)
	assert.Equal(t, plugin.Stylesheet, sass.Type)
	assert.Equal(t, "scss", sass.Extension)
	assert.True(t, match.Matches(sass.Ignore, "vendor/x.scss"))

	js2 := m.Plugins[1]
	assert.False(t, js2.External())
	assert.NotNil(t, js2.Ignore)
	assert.Empty(t, js2.Ignore)

	csso := m.Plugins[2]
	assert.True(t, csso.Optimizer())
	assert.Equal(t, plugin.Stylesheet, csso.Type)
	assert.Empty(t, csso.Extension)
}

func TestLoadAppliesDefaults(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"assetgrid.hcl": `
		files "stylesheets" {
		  join "app.css" { sources = ["app/**"] }
		}
	`})

	m, err := NewLoader().Load(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, []string{"app", "test", "vendor"}, m.Paths.Watched)
	assert.Equal(t, "public", m.Paths.Public)
	assert.False(t, m.Optimize)
	assert.Len(t, m.Packages, 2)
	assert.True(t, match.Matches(m.Conventions.Ignored, "app/_partial.css"))
}

func TestLoadMergesFilesInOrder(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"a.hcl": `
			paths { public = "dist" }
			files "javascripts" {
			  join "app.js" { sources = ["app/**"] }
			}
		`,
		"b.hcl": `
			optimize = true
			plugin "coffee" {
			  command   = ["coffee", "-sc"]
			  type      = "javascript"
			  pattern   = "\\.(coffee|litcoffee)$"
			}
		`,
	})

	m, err := NewLoader().Load(ctx, filepath.Join(root, "a.hcl"), filepath.Join(root, "b.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "dist", m.Paths.Public)
	assert.True(t, m.Optimize)
	require.Len(t, m.Plugins, 1)
	require.NotNil(t, m.Plugins[0].Pattern)
	assert.True(t, m.Plugins[0].Pattern.MatchString("app/x.litcoffee"))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "syntax",
			content: `paths {`,
			want:    "failed to parse HCL file",
		},
		{
			name:    "unknown attribute",
			content: `colour = "red"`,
			want:    "failed to decode HCL file",
		},
		{
			name:    "invalid regex",
			content: `conventions { assets = [regex("(")] }`,
			want:    "invalid conventions.assets",
		},
		{
			name:    "invalid glob",
			content: `conventions { vendor = [glob("a/[")] }`,
			want:    `invalid glob pattern "a/["`,
		},
		{
			name:    "wrong criterion type",
			content: `conventions { assets = [{ path = "a" }] }`,
			want:    "invalid conventions.assets[0]: criterion must be a string or a regex(), glob() or exact() call",
		},
		{
			name:    "unknown files label",
			content: `files "images" {}`,
			want:    `unknown files block "images"`,
		},
		{
			name:    "unknown plugin type",
			content: `plugin "x" { type = "image" }`,
			want:    `plugin 'x': unknown plugin type "image"`,
		},
		{
			name:    "bad plugin pattern",
			content: `plugin "x" { pattern = "(" }`,
			want:    "plugin 'x': invalid pattern",
		},
		{
			name:    "unknown plugin role",
			content: `plugin "x" { role = "linter" }`,
			want:    `plugin 'x': unknown plugin role "linter"`,
		},
		{
			name:    "optimizer with extension",
			content: `plugin "x" { command = ["x"], role = "optimizer", type = "javascript", extension = "js" }`,
			want:    "optimizer plugin 'x' cannot declare an extension or a pattern",
		},
		{
			name:    "unknown package kind",
			content: `packages = ["npm"]`,
			want:    `unknown package kind "npm"`,
		},
		{
			name: "validation",
			content: `
				files "javascripts" {
				  join "app.js" { sources = [] }
				}
			`,
			want: "join 'app.js' has no sources",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.NewContext(t)
			root := t.TempDir()
			testutil.WriteTree(t, root, map[string]string{"assetgrid.hcl": tc.content})

			_, err := NewLoader().Load(ctx, filepath.Join(root, "assetgrid.hcl"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadNoFiles(t *testing.T) {
	ctx, _ := testutil.NewContext(t)

	_, err := NewLoader().Load(ctx, filepath.Join(t.TempDir(), "missing.hcl"))
	assert.ErrorContains(t, err, "no .hcl configuration found")
}
