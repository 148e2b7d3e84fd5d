package plugin

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/metrics"
	"github.com/vk/assetgrid/internal/testutil"
)

type fakeCompiler struct {
	desc Descriptor
	fn   func(context.Context, Input) (Output, error)
}

func (f *fakeCompiler) Describe() Descriptor { return f.desc }

func (f *fakeCompiler) Compile(ctx context.Context, in Input) (Output, error) {
	return f.fn(ctx, in)
}

func upper(_ context.Context, in Input) (Output, error) {
	return Output{Data: strings.ToUpper(in.Data)}, nil
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{
		"javascript": JavaScript,
		"Stylesheet": Stylesheet,
		"TEMPLATE":   Template,
	} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("image")
	assert.ErrorContains(t, err, `unknown plugin type "image"`)
}

func TestTypeOfPath(t *testing.T) {
	tp, ok := TypeOfPath("js/app.JS")
	assert.True(t, ok)
	assert.Equal(t, JavaScript, tp)

	tp, ok = TypeOfPath("css/site.css")
	assert.True(t, ok)
	assert.Equal(t, Stylesheet, tp)

	_, ok = TypeOfPath("images/logo.png")
	assert.False(t, ok)
}

func TestDescriptorClaims(t *testing.T) {
	byExt := Descriptor{Name: "sass", Extension: "scss"}
	assert.True(t, byExt.Claims("app/styles/main.scss"))
	assert.False(t, byExt.Claims("app/styles/main.css"))
	assert.False(t, byExt.Claims("app/styles/mainscss"))

	dotted := Descriptor{Name: "coffee", Extension: ".coffee"}
	assert.True(t, dotted.Claims("app/app.coffee"))

	byPattern := Descriptor{Name: "tpl", Extension: "js", Pattern: regexp.MustCompile(`\.(hbs|handlebars)$`)}
	assert.True(t, byPattern.Claims("app/views/item.hbs"))
	assert.False(t, byPattern.Claims("app/app.js"), "pattern takes precedence over extension")

	assert.False(t, Descriptor{Name: "nothing"}.Claims("a.js"))
}

func TestDescriptorIgnores(t *testing.T) {
	d := Descriptor{Ignore: []match.Criterion{
		match.MustRegex(`^vendor/`),
		match.String("app/legacy.js"),
	}}
	assert.True(t, d.Ignores("vendor/jquery.js"))
	assert.True(t, d.Ignores("app/legacy.js"))
	assert.False(t, d.Ignores("app/app.js"))
	assert.False(t, Descriptor{}.Ignores("anything"))
}

func TestCompileSuccessCountsMetric(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	c := &fakeCompiler{desc: Descriptor{Name: "upper-ok", Type: JavaScript, Extension: "js"}, fn: upper}
	before := promtest.ToFloat64(metrics.FilesCompiled.WithLabelValues("upper-ok", "compile"))

	out, err := Compile(ctx, c, c.Describe(), Input{Path: "app.js", Data: "abc"})

	require.NoError(t, err)
	assert.Equal(t, "ABC", out.Data)
	assert.Equal(t, before+1, promtest.ToFloat64(metrics.FilesCompiled.WithLabelValues("upper-ok", "compile")))
}

func TestCompileIgnoredPassesThrough(t *testing.T) {
	ctx, logs := testutil.NewContext(t)
	called := false
	c := &fakeCompiler{
		desc: Descriptor{Name: "upper", Extension: "js", Ignore: []match.Criterion{match.MustRegex(`^vendor/`)}},
		fn: func(ctx context.Context, in Input) (Output, error) {
			called = true
			return upper(ctx, in)
		},
	}

	out, err := Compile(ctx, c, c.Describe(), Input{Path: "vendor/lib.js", Data: "abc", Map: "{}"})

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, Output{Data: "abc", Map: "{}"}, out)
	assert.Contains(t, logs.String(), "File ignored by plugin")
}

func TestCompileWrapsErrors(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	boom := errors.New("unexpected token")
	c := &fakeCompiler{
		desc: Descriptor{Name: "coffee", Extension: "coffee"},
		fn:   func(context.Context, Input) (Output, error) { return Output{Data: "partial"}, boom },
	}

	out, err := Compile(ctx, c, c.Describe(), Input{Path: "app/app.coffee"})

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "coffee", pErr.Plugin)
	assert.Equal(t, "compile", pErr.Operation)
	assert.Equal(t, "app/app.coffee", pErr.Path)
	assert.Empty(t, out.Data)
	assert.Equal(t, "coffee compile failed for app/app.coffee: unexpected token", err.Error())
}

func TestCompileRecoversPanics(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	c := &fakeCompiler{
		desc: Descriptor{Name: "broken", Extension: "js"},
		fn:   func(context.Context, Input) (Output, error) { panic("nil map") },
	}

	_, err := Compile(ctx, c, c.Describe(), Input{Path: "a.js"})

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Err.Error(), "panic: nil map")
}

type fakeOptimizer struct{ desc Descriptor }

func (f *fakeOptimizer) Describe() Descriptor { return f.desc }

func (f *fakeOptimizer) Optimize(_ context.Context, in Input) (Output, error) {
	return Output{Data: strings.TrimSpace(in.Data)}, nil
}

func TestOptimize(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	o := &fakeOptimizer{desc: Descriptor{Name: "trim", Type: Stylesheet}}

	out, err := Optimize(ctx, o, o.Describe(), Input{Path: "css/app.css", Data: "  a{}  \n"})

	require.NoError(t, err)
	assert.Equal(t, "a{}", out.Data)
}
