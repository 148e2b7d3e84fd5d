package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"text/tabwriter"

	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/hcl"
	"github.com/vk/assetgrid/internal/pipeline"
	"github.com/vk/assetgrid/internal/plugin"
	"github.com/vk/assetgrid/internal/reload"
	"github.com/vk/assetgrid/internal/watch"
)

// manifestFiles are root-level files whose changes affect package order.
var manifestFiles = []string{"bower.json", "component.json", ".bowerrc"}

// Build runs a single build of the project.
func (a *App) Build(ctx context.Context) (*pipeline.Result, error) {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Build method started.")

	res, err := a.pipeline.Build(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("🏁 Wrote outputs.", "outputs", len(res.Outputs), "assets", len(res.Assets), "public", a.model.Paths.Public)
	return res, nil
}

// Watch builds the project, then rebuilds whenever watched files change and
// notifies reload clients. It returns nil when ctx is canceled.
func (a *App) Watch(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Watch method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()
	defer a.reload.Close()

	if _, err := a.pipeline.Build(ctx); err != nil {
		a.logger.Error("Initial build failed; waiting for changes.", "error", err)
	}

	w, err := watch.New(a.config.Root, a.model.Paths.Watched, watch.Options{
		Ignore: a.ignored,
		Files:  manifestFiles,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	err = w.Run(ctx, a.rebuild)
	if errors.Is(err, context.Canceled) {
		a.logger.Info("👋 Watcher stopped.")
		return nil
	}
	return err
}

// ignored filters watcher events for the public directory so writes of the
// build itself never trigger another build.
func (a *App) ignored(rel string) bool {
	return fsutil.Within(rel, path.Clean(a.model.Paths.Public))
}

// rebuild handles one batch of changes.
func (a *App) rebuild(ctx context.Context, changed []string) {
	a.logger.Info("✏️ Files changed.", "count", len(changed), "paths", changed)
	a.pipeline.Invalidate(changed...)

	if _, err := a.pipeline.Build(ctx); err != nil {
		a.logger.Error("Rebuild failed.", "error", err)
		return
	}
	a.reload.Broadcast(ctx, a.reloadKind(changed))
}

// reloadKind returns KindStylesheet when every change compiles to a
// stylesheet, and KindPage otherwise.
func (a *App) reloadKind(changed []string) string {
	if len(changed) == 0 {
		return reload.KindPage
	}
	for _, rel := range changed {
		if t, ok := a.pipeline.TypeOf(rel); !ok || t != plugin.Stylesheet {
			return reload.KindPage
		}
	}
	return reload.KindStylesheet
}

// Packages writes the resolved package order to w, one package per line.
func (a *App) Packages(ctx context.Context, w io.Writer) error {
	ctx = a.withLogger(ctx)

	pkgs, err := a.pipeline.Packages(ctx)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		a.logger.Info("No packages found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tNAME\tVERSION\tPATH")
	for _, p := range pkgs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.SortingLevel, p.Name, p.Version, p.Path)
	}
	return tw.Flush()
}

// WriteConfig writes the effective project configuration to w as HCL.
func (a *App) WriteConfig(w io.Writer) error {
	out, err := hcl.Encode(a.model)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = w.Write(out)
	return err
}
