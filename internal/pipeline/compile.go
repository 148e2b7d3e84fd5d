package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fcache"
	"github.com/vk/assetgrid/internal/plugin"
)

// compiled is a cached compile result.
type compiled struct {
	out plugin.Output
}

// compile reads one source, runs its compiler (if any) and records the
// output. Unchanged files are served from the cache.
func (p *Pipeline) compile(ctx context.Context, rel string, state *buildState) error {
	logger := ctxlog.FromContext(ctx)
	abs := filepath.Join(p.root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	stamp := fcache.StampOf(info)
	if c, ok := p.cache.Get(rel, stamp); ok {
		logger.Debug("Compiled source served from cache.")
		state.setCompiled(rel, c.out)
		return nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", rel, err)
	}
	in := plugin.Input{Path: rel, Data: string(data)}

	out := plugin.Output{Data: in.Data}
	if c, d, ok := p.reg.CompilerFor(rel); ok {
		out, err = plugin.Compile(ctx, c, d, in)
		if err != nil {
			return err
		}
	} else {
		logger.Debug("No compiler claims source, passing through.")
	}

	p.cache.Add(rel, stamp, compiled{out: out})
	state.setCompiled(rel, out)
	return nil
}
