package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/plugin"
	"github.com/vk/assetgrid/internal/testutil"
	"github.com/vk/assetgrid/modules/stylesheet"
)

func TestNewRegistryWrapsExternalPlugins(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	model := config.Default()
	model.Plugins = []*config.Plugin{
		{Name: "sass", Command: []string{"sass", "--stdin"}, Role: config.RoleCompiler, Type: plugin.Stylesheet, Extension: "scss"},
		{Name: "csso", Command: []string{"csso"}, Role: config.RoleOptimizer, Type: plugin.Stylesheet},
	}

	reg, err := newRegistry(ctx, model, nil)
	require.NoError(t, err)

	_, d, ok := reg.CompilerFor("app/main.scss")
	require.True(t, ok)
	assert.Equal(t, "sass", d.Name)

	opts := reg.Optimizers(plugin.Stylesheet)
	require.Len(t, opts, 2)
	assert.Equal(t, "csso", opts[0].Describe().Name, "external optimizers run first")
	assert.Equal(t, stylesheet.Name, opts[1].Describe().Name)
}

func TestNewRegistryRejectsDuplicateOptimizer(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	model := config.Default()
	model.Plugins = []*config.Plugin{
		{Name: stylesheet.Name, Command: []string{"csso"}, Role: config.RoleOptimizer, Type: plugin.Stylesheet},
	}

	_, err := newRegistry(ctx, model, nil)
	assert.ErrorContains(t, err, "failed to register plugins")
}
