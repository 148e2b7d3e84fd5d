package yamlconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/components"
	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/plugin"
	"github.com/vk/assetgrid/internal/testutil"
)

const fullConfig = `
paths:
  watched: [app, vendor]
  public: dist
conventions:
  assets: {regex: "(^|/)assets/"}
  ignored: []
files:
  - type: javascripts
    joins:
      - output: js/app.js
        sources: [{regex: "^app/"}]
      - output: js/vendor.js
        sources: "vendor/**"
    order:
      before: [vendor/scripts/console-polyfill.js, {exact: "vendor/*.js"}]
      after: [{glob: "test/**"}]
plugins:
  - name: sass
    command: [sass, --stdin]
    type: stylesheet
    extension: scss
    ignore: [{regex: "^vendor/"}]
  - name: uglify
    command: [uglifyjs, -c]
    role: optimizer
    type: javascript
packages: [component]
optimize: true
`

func TestLoadFullConfig(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"assetgrid.yaml": fullConfig})

	m, err := NewLoader().Load(ctx, filepath.Join(root, "assetgrid.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"app", "vendor"}, m.Paths.Watched)
	assert.Equal(t, "dist", m.Paths.Public)
	assert.True(t, m.Optimize)
	assert.Equal(t, []components.Kind{components.Component}, m.Packages)

	require.Len(t, m.Conventions.Assets, 1)
	assert.Equal(t, match.KindRegex, m.Conventions.Assets[0].Kind())
	assert.NotNil(t, m.Conventions.Ignored)
	assert.Empty(t, m.Conventions.Ignored)
	assert.NotEmpty(t, m.Conventions.Vendor, "unset convention takes the default")

	js := m.FileSet(plugin.JavaScript)
	require.NotNil(t, js)
	require.Len(t, js.Joins, 2)
	assert.True(t, match.Matches(js.Joins[0].Sources, "app/app.js"))
	assert.True(t, match.Matches(js.Joins[1].Sources, "vendor/scripts/a.js"))
	require.Len(t, js.Order.Before, 2)
	assert.Equal(t, match.KindExact, js.Order.Before[1].Kind())
	assert.True(t, match.Matches(js.Order.After, "test/a.js"))

	require.Len(t, m.Plugins, 2)
	assert.Equal(t, []string{"sass", "--stdin"}, m.Plugins[0].Command)
	assert.Equal(t, plugin.Stylesheet, m.Plugins[0].Type)
	assert.False(t, m.Plugins[0].Optimizer())
	assert.True(t, match.Matches(m.Plugins[0].Ignore, "vendor/a.scss"))
	assert.True(t, m.Plugins[1].Optimizer())
	assert.Equal(t, plugin.JavaScript, m.Plugins[1].Type)
}

func TestLoadEmptyDocumentUsesDefaults(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"assetgrid.yaml": ""})

	m, err := NewLoader().Load(ctx, filepath.Join(root, "assetgrid.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "public", m.Paths.Public)
	assert.Empty(t, m.Files)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown key", content: "colour: red", want: "field colour not found"},
		{name: "bad regex", content: "conventions:\n  assets: [{regex: \"(\"}]", want: `invalid regex criterion "("`},
		{name: "unknown kind", content: "conventions:\n  assets: [{prefix: app}]", want: `unknown criterion kind "prefix"`},
		{name: "two keys", content: "conventions:\n  assets: [{regex: a, glob: b}]", want: "exactly one key"},
		{name: "nested list", content: "conventions:\n  assets: [[a]]", want: "criterion must be a string"},
		{name: "files type", content: "files:\n  - type: fonts", want: `unknown files block "fonts"`},
		{name: "nameless plugin", content: "plugins:\n  - command: [x]", want: "plugin entry without a name"},
		{name: "plugin type", content: "plugins:\n  - name: x\n    type: image", want: `plugin 'x': unknown plugin type "image"`},
		{name: "plugin role", content: "plugins:\n  - name: x\n    role: linter", want: `plugin 'x': unknown plugin role "linter"`},
		{name: "package kind", content: "packages: [npm]", want: `unknown package kind "npm"`},
		{name: "validation", content: "paths:\n  public: app/out", want: "public path 'app/out' overlaps watched path 'app'"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.NewContext(t)
			root := t.TempDir()
			testutil.WriteTree(t, root, map[string]string{"assetgrid.yaml": tc.content})

			_, err := NewLoader().Load(ctx, filepath.Join(root, "assetgrid.yaml"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	_, err := NewLoader().Load(ctx, filepath.Join(t.TempDir(), "assetgrid.yaml"))
	assert.ErrorContains(t, err, "no YAML configuration found")
}
