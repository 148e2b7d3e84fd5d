package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/reload"
)

// Listen connects to the reload endpoint of a running watcher and prints
// one line per reload event to outW until ctx is done.
func Listen(ctx context.Context, outW io.Writer, appConfig *Config, url string) error {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Starting reload listener.", "url", url)

	return reload.Listen(ctx, url, reload.ClientOptions{}, func(ev reload.Event) {
		fmt.Fprintf(outW, "reload %s\n", ev.Type)
	})
}
