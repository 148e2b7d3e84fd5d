// Package exec adapts external command line tools into compilers and
// optimizers. The tool reads the source on stdin and writes the result to
// stdout.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/match"
	"github.com/vk/assetgrid/internal/plugin"
	"github.com/vk/assetgrid/internal/registry"
)

// Spec declares one external tool.
type Spec struct {
	Name    string
	Command []string
	// Optimizer registers the tool as an optimizer for Type instead of a
	// compiler. Extension and Pattern are unused then.
	Optimizer bool
	Type      plugin.Type
	Extension string
	Pattern   *regexp.Regexp
	Ignore    []match.Criterion
}

// Module implements the registry.Module interface for this package.
type Module struct {
	Specs []Spec
}

// Register registers one compiler or optimizer per spec.
func (m *Module) Register(r *registry.Registry) {
	for _, s := range m.Specs {
		if s.Optimizer {
			r.RegisterOptimizer(NewOptimizer(s))
			continue
		}
		r.RegisterCompiler(New(s))
	}
}

// tool holds the spec and the memoized executable lookup.
type tool struct {
	spec Spec

	lookOnce sync.Once
	path     string
	lookErr  error
}

// Compiler runs an external command per file.
type Compiler struct {
	tool
}

// New returns a compiler for s. The executable is resolved on first use.
func New(s Spec) *Compiler {
	return &Compiler{tool: tool{spec: s}}
}

// Describe implements plugin.Plugin.
func (c *Compiler) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:      c.spec.Name,
		Type:      c.spec.Type,
		Extension: c.spec.Extension,
		Pattern:   c.spec.Pattern,
		Ignore:    c.spec.Ignore,
	}
}

func (t *tool) executable() (string, error) {
	t.lookOnce.Do(func() {
		if len(t.spec.Command) == 0 {
			t.lookErr = errors.New("no command configured")
			return
		}
		t.path, t.lookErr = osexec.LookPath(t.spec.Command[0])
	})
	return t.path, t.lookErr
}

// Compile implements plugin.Compiler. The source path is exported to the
// command as ASSETGRID_PATH.
func (c *Compiler) Compile(ctx context.Context, in plugin.Input) (plugin.Output, error) {
	bin, err := c.executable()
	if err != nil {
		return plugin.Output{}, err
	}
	ctxlog.FromContext(ctx).Debug("Running external compiler.", "bin", bin, "args", c.spec.Command[1:])
	return run(ctx, bin, c.spec.Command[1:], in)
}

// Optimizer runs an external command over each joined output.
type Optimizer struct {
	tool
}

// NewOptimizer returns an optimizer for s.
func NewOptimizer(s Spec) *Optimizer {
	s.Optimizer = true
	return &Optimizer{tool: tool{spec: s}}
}

// Describe implements plugin.Plugin. Optimizers match on type only.
func (o *Optimizer) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:   o.spec.Name,
		Type:   o.spec.Type,
		Ignore: o.spec.Ignore,
	}
}

// Optimize implements plugin.Optimizer. The output path is exported as
// ASSETGRID_PATH. Any incoming source map is dropped.
func (o *Optimizer) Optimize(ctx context.Context, in plugin.Input) (plugin.Output, error) {
	bin, err := o.executable()
	if err != nil {
		return plugin.Output{}, err
	}
	ctxlog.FromContext(ctx).Debug("Running external optimizer.", "bin", bin, "args", o.spec.Command[1:])
	return run(ctx, bin, o.spec.Command[1:], in)
}

func run(ctx context.Context, bin string, args []string, in plugin.Input) (plugin.Output, error) {
	cmd := osexec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "ASSETGRID_PATH="+in.Path)
	cmd.Stdin = strings.NewReader(in.Data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return plugin.Output{}, err
		}
		return plugin.Output{}, fmt.Errorf("%w: %s", err, msg)
	}
	return plugin.Output{Data: stdout.String()}, nil
}
