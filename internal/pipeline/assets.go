package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/vk/assetgrid/internal/fsutil"
)

// assetDest maps an asset to its path under public: everything up to and
// including the first "assets" directory is dropped. Assets matched by a
// custom convention without such a directory lose their top directory.
func assetDest(rel string) string {
	if rest, ok := strings.CutPrefix(rel, "assets/"); ok {
		return rest
	}
	if i := strings.Index(rel, "/assets/"); i >= 0 {
		return rel[i+len("/assets/"):]
	}
	return fsutil.StripFirstDir(rel)
}

func (p *Pipeline) copyAsset(ctx context.Context, rel string, state *buildState) error {
	dest := assetDest(rel)
	src := filepath.Join(p.root, filepath.FromSlash(rel))
	dst := filepath.Join(p.root, filepath.FromSlash(p.cfg.Paths.Public), filepath.FromSlash(dest))
	if err := p.copier.Copy(ctx, src, dst); err != nil {
		return err
	}
	state.addAsset(dest)
	return nil
}
