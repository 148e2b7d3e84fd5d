package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/match"
	"github.com/zclconf/go-cty/cty"
)

// Encode renders m as HCL. Loading the result yields an equivalent model.
// Predicate criteria have no HCL form and make Encode fail.
func Encode(m *config.Model) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	paths := body.AppendNewBlock("paths", nil).Body()
	paths.SetAttributeValue("watched", stringList(m.Paths.Watched))
	paths.SetAttributeValue("public", cty.StringVal(m.Paths.Public))

	body.AppendNewline()
	conv := body.AppendNewBlock("conventions", nil).Body()
	for _, c := range []struct {
		name     string
		criteria []match.Criterion
	}{
		{"assets", m.Conventions.Assets},
		{"vendor", m.Conventions.Vendor},
		{"ignored", m.Conventions.Ignored},
	} {
		if c.criteria == nil {
			continue
		}
		tokens, err := criteriaTokens(c.criteria)
		if err != nil {
			return nil, fmt.Errorf("conventions.%s: %w", c.name, err)
		}
		conv.SetAttributeRaw(c.name, tokens)
	}

	for _, fs := range m.Files {
		label := config.FileSetLabel(fs.Type)
		body.AppendNewline()
		fb := body.AppendNewBlock("files", []string{label}).Body()
		for _, j := range fs.Joins {
			tokens, err := criteriaTokens(j.Sources)
			if err != nil {
				return nil, fmt.Errorf("files %q join %q: %w", label, j.Output, err)
			}
			fb.AppendNewBlock("join", []string{j.Output}).Body().SetAttributeRaw("sources", tokens)
		}
		if fs.Order.Before == nil && fs.Order.After == nil {
			continue
		}
		ob := fb.AppendNewBlock("order", nil).Body()
		for _, o := range []struct {
			name     string
			criteria []match.Criterion
		}{
			{"before", fs.Order.Before},
			{"after", fs.Order.After},
		} {
			if o.criteria == nil {
				continue
			}
			tokens, err := criteriaTokens(o.criteria)
			if err != nil {
				return nil, fmt.Errorf("files %q order.%s: %w", label, o.name, err)
			}
			ob.SetAttributeRaw(o.name, tokens)
		}
	}

	for _, p := range m.Plugins {
		body.AppendNewline()
		pb := body.AppendNewBlock("plugin", []string{p.Name}).Body()
		if len(p.Command) > 0 {
			pb.SetAttributeValue("command", stringList(p.Command))
		}
		if p.Role == config.RoleOptimizer {
			pb.SetAttributeValue("role", cty.StringVal(string(p.Role)))
		}
		if p.Type != "" {
			pb.SetAttributeValue("type", cty.StringVal(string(p.Type)))
		}
		if p.Extension != "" {
			pb.SetAttributeValue("extension", cty.StringVal(p.Extension))
		}
		if p.Pattern != nil {
			pb.SetAttributeValue("pattern", cty.StringVal(p.Pattern.String()))
		}
		if p.Ignore != nil {
			tokens, err := criteriaTokens(p.Ignore)
			if err != nil {
				return nil, fmt.Errorf("plugin %q ignore: %w", p.Name, err)
			}
			pb.SetAttributeRaw("ignore", tokens)
		}
	}

	body.AppendNewline()
	kinds := make([]string, len(m.Packages))
	for i, k := range m.Packages {
		kinds[i] = string(k)
	}
	body.SetAttributeValue("packages", stringList(kinds))
	body.SetAttributeValue("optimize", cty.BoolVal(m.Optimize))

	return hclwrite.Format(f.Bytes()), nil
}

func stringList(ss []string) cty.Value {
	if len(ss) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}

func criteriaTokens(criteria []match.Criterion) (hclwrite.Tokens, error) {
	elems := make([]hclwrite.Tokens, 0, len(criteria))
	for _, c := range criteria {
		lit := hclwrite.TokensForValue(cty.StringVal(c.Pattern()))
		switch c.Kind() {
		case match.KindString:
			elems = append(elems, lit)
		case match.KindRegex:
			elems = append(elems, hclwrite.TokensForFunctionCall("regex", lit))
		case match.KindGlob:
			elems = append(elems, hclwrite.TokensForFunctionCall("glob", lit))
		case match.KindExact:
			elems = append(elems, hclwrite.TokensForFunctionCall("exact", lit))
		default:
			return nil, fmt.Errorf("criterion %s has no HCL form", c)
		}
	}
	return hclwrite.TokensForTuple(elems), nil
}
