package plugin

import (
	"context"
	"fmt"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/metrics"
)

// Compile runs c over in using the effective descriptor d. Ignored files
// pass through unchanged. Failures and panics come back as *Error.
func Compile(ctx context.Context, c Compiler, d Descriptor, in Input) (Output, error) {
	return run(ctx, d, "compile", in, c.Compile)
}

// Optimize runs o over in using the effective descriptor d, with the same
// ignore and error semantics as Compile.
func Optimize(ctx context.Context, o Optimizer, d Descriptor, in Input) (Output, error) {
	return run(ctx, d, "optimize", in, o.Optimize)
}

func run(ctx context.Context, d Descriptor, op string, in Input, fn func(context.Context, Input) (Output, error)) (out Output, err error) {
	logger := ctxlog.FromContext(ctx).With("plugin", d.Name, "operation", op, "path", in.Path)

	if d.Ignores(in.Path) {
		logger.Debug("File ignored by plugin, passing through.")
		return Output{Data: in.Data, Map: in.Map}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &Error{Plugin: d.Name, Operation: op, Path: in.Path, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out, err = fn(ctx, in)
	if err != nil {
		return Output{}, &Error{Plugin: d.Name, Operation: op, Path: in.Path, Err: err}
	}
	metrics.FilesCompiled.WithLabelValues(d.Name, op).Inc()
	logger.Debug("Plugin finished.", "bytes_in", len(in.Data), "bytes_out", len(out.Data), "has_map", out.Map != "")
	return out, nil
}
