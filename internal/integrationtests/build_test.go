package integrationtests

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/app"
)

const projectHCL = `
paths {
  watched = ["app", "vendor", "test"]
}

files "javascripts" {
  join "js/vendor.js" {
    sources = [regex("^(bower_components|vendor)/")]
  }
  join "js/app.js" {
    sources = [regex("^app/")]
  }
  join "test/tests.js" {
    sources = [glob("test/**")]
  }
  order {
    before = ["vendor/scripts/console-polyfill.js"]
  }
}

files "stylesheets" {
  join "css/app.css" {
    sources = [regex("^app/")]
  }
}

plugin "upper" {
  command   = ["tr", "a-z", "A-Z"]
  type      = "javascript"
  extension = "up"
}

packages = ["bower"]
`

func projectFiles() map[string]string {
	return map[string]string{
		"assetgrid.hcl": projectHCL,
		"bower.json":    `{"name": "demo", "dependencies": {"backbone": "~1.0"}}`,
		"bower_components/backbone/bower.json": `{
			"name": "backbone", "version": "1.0.0", "main": "backbone.js",
			"dependencies": {"underscore": "~1.4"}
		}`,
		"bower_components/backbone/backbone.js":     "var backbone;",
		"bower_components/underscore/bower.json":    `{"name": "underscore", "version": "1.4.4", "main": "underscore.js"}`,
		"bower_components/underscore/underscore.js": "var underscore;",
		"vendor/scripts/zepto.js":                   "var zepto;",
		"vendor/scripts/console-polyfill.js":        "var polyfill;",
		"app/init.js":                               "var init;",
		"app/shout.up":                              "shout();",
		"app/views/_partial.js":                     "not built",
		"app/styles/main.css":                       "body { margin: 0; }",
		"app/assets/index.html":                     "<html></html>",
		"app/assets/img/logo.png":                   "PNG",
		"test/spec.js":                              "var spec;",
	}
}

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

// TestBuild_FullProject runs a build over packages, vendor files, an
// external compiler and assets, then compares the whole public tree.
func TestBuild_FullProject(t *testing.T) {
	requireTool(t, "tr")

	// --- Arrange ---
	h := newHarness(t, projectFiles(), nil)

	// --- Act ---
	res, err := h.App.Build(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"css/app.css", "js/app.js", "js/vendor.js", "test/tests.js"}, res.Outputs)

	want := map[string]string{
		"css/app.css":   "body { margin: 0; }\n",
		"img/logo.png":  "PNG",
		"index.html":    "<html></html>",
		"js/app.js":     "var init;\n\nSHOUT();",
		"js/vendor.js":  "var polyfill;\nvar underscore;\nvar backbone;\nvar zepto;",
		"test/tests.js": "var spec;\n",
	}
	if diff := cmp.Diff(want, h.tree(t, "public")); diff != "" {
		t.Errorf("public tree mismatch (-want +got):\n%s", diff)
	}
}

// TestBuild_Optimized checks that optimizers run over joined outputs.
func TestBuild_Optimized(t *testing.T) {
	requireTool(t, "tr")

	h := newHarness(t, projectFiles(), func(c *app.Config) { c.Optimize = true })

	_, err := h.App.Build(context.Background())
	require.NoError(t, err)

	got := h.tree(t, "public")
	assert.Equal(t, "body{margin:0}", got["css/app.css"])
	assertInOrder(t, got["js/vendor.js"], "polyfill", "underscore", "backbone", "zepto")
	assertInOrder(t, got["js/app.js"], "init", "SHOUT()")
	for _, name := range []string{"js/vendor.js", "js/app.js"} {
		assert.NotContains(t, got[name], "\n\n", name)
	}
}

// TestBuild_ExternalOptimizer checks that a plugin declared with the
// optimizer role rewrites joined output ahead of the built-in minifier.
func TestBuild_ExternalOptimizer(t *testing.T) {
	requireTool(t, "tr")
	requireTool(t, "sed")

	files := projectFiles()
	files["assetgrid.hcl"] = projectHCL + `
		plugin "padding" {
		  command = ["sed", "s/margin/padding/"]
		  role    = "optimizer"
		  type    = "stylesheet"
		}
	`
	h := newHarness(t, files, func(c *app.Config) { c.Optimize = true })

	_, err := h.App.Build(context.Background())
	require.NoError(t, err)

	got := h.tree(t, "public")
	assert.Equal(t, "body{padding:0}", got["css/app.css"])
	assertInOrder(t, got["js/app.js"], "init", "SHOUT()")
}

// TestBuild_ExternalOptimizerSkippedWithoutOptimize checks that optimizer
// plugins only run when optimization is on.
func TestBuild_ExternalOptimizerSkippedWithoutOptimize(t *testing.T) {
	requireTool(t, "tr")

	files := projectFiles()
	files["assetgrid.hcl"] = projectHCL + `
		plugin "missing" {
		  command = ["assetgrid-definitely-not-installed"]
		  role    = "optimizer"
		  type    = "stylesheet"
		}
	`
	h := newHarness(t, files, nil)

	_, err := h.App.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "body { margin: 0; }\n", h.tree(t, "public")["css/app.css"])
}

func assertInOrder(t *testing.T, s string, parts ...string) {
	t.Helper()
	last := -1
	for _, p := range parts {
		i := strings.Index(s, p)
		if !assert.Greater(t, i, last, "%q out of order in %q", p, s) {
			return
		}
		last = i
	}
}

// TestBuild_ExternalCompilerFailure verifies that a failing external tool
// fails the build and names the file.
func TestBuild_ExternalCompilerFailure(t *testing.T) {
	requireTool(t, "false")

	files := projectFiles()
	files["assetgrid.hcl"] = `
		files "javascripts" {
		  join "js/app.js" {
		    sources = [regex("^app/")]
		  }
		}
		plugin "broken" {
		  command   = ["false"]
		  type      = "javascript"
		  extension = "up"
		}
	`
	h := newHarness(t, files, nil)

	_, err := h.App.Build(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken compile failed for app/shout.up")
}

// TestPackages_ResolvedOrder prints packages with dependencies first.
func TestPackages_ResolvedOrder(t *testing.T) {
	h := newHarness(t, projectFiles(), nil)

	var out bytes.Buffer
	require.NoError(t, h.App.Packages(context.Background(), &out))

	got := out.String()
	require.Contains(t, got, "underscore")
	require.Contains(t, got, "backbone")
	assert.Less(t, strings.Index(got, "underscore"), strings.Index(got, "backbone"))
}
