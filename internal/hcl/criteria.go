package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/match"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// criterionObject is the Go form of criterionType.
type criterionObject struct {
	Kind    string `cty:"kind"`
	Pattern string `cty:"pattern"`
}

// isExprDefined checks if an HCL expression was actually present in the
// source. gohcl fills omitted optional attributes with a zero-width static
// null expression, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName, "hcl_range", r.String(), "is_defined", defined)
	return defined
}

// decodeCriteria evaluates expr into a criteria list. It returns nil when
// the attribute is absent and a non-nil empty slice for `[]`.
func decodeCriteria(ctx context.Context, expr hcl.Expression, evalCtx *hcl.EvalContext, attrName string) ([]match.Criterion, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return nil, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid %s: %w", attrName, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("invalid %s: value must be known at load time", attrName)
	}

	ty := val.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		c, err := criterionFromValue(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", attrName, err)
		}
		return []match.Criterion{c}, nil
	}

	out := make([]match.Criterion, 0, val.LengthInt())
	for i, elem := range val.AsValueSlice() {
		c, err := criterionFromValue(elem)
		if err != nil {
			return nil, fmt.Errorf("invalid %s[%d]: %w", attrName, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func criterionFromValue(v cty.Value) (match.Criterion, error) {
	ty := v.Type()
	switch {
	case v.IsNull():
		return match.Criterion{}, fmt.Errorf("criterion must not be null")
	case ty.IsPrimitiveType():
		// Numbers and bools read as their string form, as in any HCL attribute.
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return match.Criterion{}, err
		}
		return match.String(s.AsString()), nil
	case ty.IsObjectType() && ty.HasAttribute("kind") && ty.HasAttribute("pattern"):
		var obj criterionObject
		if err := gocty.FromCtyValue(v, &obj); err != nil {
			return match.Criterion{}, fmt.Errorf("malformed criterion: %w", err)
		}
		switch obj.Kind {
		case "regex":
			return match.CompileRegex(obj.Pattern)
		case "glob":
			return match.Glob(obj.Pattern), nil
		case "exact":
			return match.Exact(obj.Pattern), nil
		}
		return match.Criterion{}, fmt.Errorf("unknown criterion kind %q", obj.Kind)
	default:
		return match.Criterion{}, fmt.Errorf("criterion must be a string or a regex(), glob() or exact() call, got %s", ty.FriendlyName())
	}
}
