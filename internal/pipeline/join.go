package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/plugin"
)

// indexMap is a source map v3 index map.
type indexMap struct {
	Version  int       `json:"version"`
	File     string    `json:"file"`
	Sections []section `json:"sections"`
}

type section struct {
	Offset offset          `json:"offset"`
	Map    json.RawMessage `json:"map"`
}

type offset struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// concat joins parts with a newline and builds an index map from the parts
// that carry a source map. The map is empty when none does.
func concat(ctx context.Context, output string, inputs []string, parts []plugin.Output) (string, string, error) {
	logger := ctxlog.FromContext(ctx)

	var b strings.Builder
	idx := indexMap{Version: 3, File: path.Base(output)}
	line := 0
	for i, part := range parts {
		if i > 0 {
			b.WriteByte('\n')
			line++
		}
		if part.Map != "" {
			if json.Valid([]byte(part.Map)) {
				idx.Sections = append(idx.Sections, section{Offset: offset{Line: line}, Map: json.RawMessage(part.Map)})
			} else {
				logger.Warn("Ignoring invalid source map.", "path", inputs[i])
			}
		}
		b.WriteString(part.Data)
		line += strings.Count(part.Data, "\n")
	}

	if len(idx.Sections) == 0 {
		return b.String(), "", nil
	}
	raw, err := json.Marshal(idx)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode source map for %s: %w", output, err)
	}
	return b.String(), string(raw), nil
}

// mapComment returns the trailer that links output to its source map.
func mapComment(t plugin.Type, output string) string {
	name := path.Base(output) + ".map"
	switch t {
	case plugin.JavaScript:
		return "//# sourceMappingURL=" + name + "\n"
	case plugin.Stylesheet:
		return "/*# sourceMappingURL=" + name + " */\n"
	default:
		return ""
	}
}

// writeJoin concatenates, optionally optimizes and writes one output.
func (p *Pipeline) writeJoin(ctx context.Context, j *joinPlan, state *buildState) error {
	logger := ctxlog.FromContext(ctx)
	if len(j.inputs) == 0 {
		logger.Debug("Join has no inputs, nothing to write.")
		return nil
	}

	parts := make([]plugin.Output, len(j.inputs))
	for i, in := range j.inputs {
		parts[i] = state.getCompiled(in)
	}
	data, smap, err := concat(ctx, j.output, j.inputs, parts)
	if err != nil {
		return err
	}
	out := plugin.Output{Data: data, Map: smap}

	if p.cfg.Optimize {
		for _, o := range p.reg.Optimizers(j.typ) {
			out, err = plugin.Optimize(ctx, o, p.reg.Describe(o), plugin.Input{Path: j.output, Data: out.Data, Map: out.Map})
			if err != nil {
				return err
			}
		}
		// Optimizers rewrite positions, so the concatenation map no longer applies.
		out.Map = ""
	}

	dst := filepath.Join(p.root, filepath.FromSlash(p.cfg.Paths.Public), filepath.FromSlash(j.output))
	if comment := mapComment(j.typ, j.output); out.Map != "" && comment != "" {
		if err := fsutil.WriteAtomic(dst+".map", []byte(out.Map), 0o644); err != nil {
			return fmt.Errorf("failed to write %s.map: %w", j.output, err)
		}
		if !strings.HasSuffix(out.Data, "\n") {
			out.Data += "\n"
		}
		out.Data += comment
	}
	if err := fsutil.WriteAtomic(dst, []byte(out.Data), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", j.output, err)
	}

	logger.Debug("Join written.", "inputs", len(j.inputs), "bytes", len(out.Data), "source_map", out.Map != "")
	state.addOutput(j.output)
	return nil
}
