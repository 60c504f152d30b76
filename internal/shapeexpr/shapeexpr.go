// Package shapeexpr evaluates HCL shape expressions against dependency
// summaries. A shape expression yields either a number (a 1-D length) or a
// tuple of numbers, e.g. "[3 * Mesh.F_verts.len]" or
// "[grid.cells.len, 2]".
package shapeexpr

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Eval parses and evaluates one shape expression. vars is the variable
// root: one entry per top-level name segment, as built by BuildVars.
func Eval(src string, vars map[string]cty.Value) ([]int, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "shape", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %q: %s", src, diags.Error())
	}

	val, diags := expr.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating %q: %s", src, diags.Error())
	}

	return toShape(src, val)
}

func toShape(src string, val cty.Value) ([]int, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, fmt.Errorf("expression %q yielded no value", src)
	}

	if val.Type().Equals(cty.Number) {
		d, err := toDim(src, val)
		if err != nil {
			return nil, err
		}
		return []int{d}, nil
	}

	if val.Type().IsTupleType() || val.Type().IsListType() {
		elems := val.AsValueSlice()
		shape := make([]int, len(elems))
		for i, e := range elems {
			d, err := toDim(src, e)
			if err != nil {
				return nil, err
			}
			shape[i] = d
		}
		return shape, nil
	}

	return nil, fmt.Errorf("expression %q yielded %s, want a number or a tuple of numbers",
		src, val.Type().FriendlyName())
}

func toDim(src string, val cty.Value) (int, error) {
	if !val.IsKnown() || val.IsNull() || !val.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expression %q: dimension is not a number", src)
	}
	n, acc := val.AsBigFloat().Int64()
	if acc != 0 {
		return 0, fmt.Errorf("expression %q: dimension %s is not an integer", src, val.AsBigFloat().String())
	}
	if n < 0 {
		return 0, fmt.Errorf("expression %q: negative dimension %d", src, n)
	}
	return int(n), nil
}

// BuildVars turns a flat map of dot-separated resource names into the
// nested variable tree HCL traversals expect: "left.Mesh.V_pos" becomes
// vars["left"] = object{Mesh = object{V_pos = <summary>}}.
func BuildVars(flat map[string]cty.Value) (map[string]cty.Value, error) {
	root := make(map[string]any)
	for name, val := range flat {
		parts := strings.Split(name, ".")
		node := root
		for i, part := range parts {
			if part == "" {
				return nil, fmt.Errorf("resource name %q has an empty segment", name)
			}
			if i == len(parts)-1 {
				if _, exists := node[part]; exists {
					return nil, fmt.Errorf("resource name %q collides with a namespace", name)
				}
				node[part] = val
				continue
			}
			next, ok := node[part]
			if !ok {
				child := make(map[string]any)
				node[part] = child
				node = child
				continue
			}
			child, ok := next.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("resource name %q collides with a shorter name", name)
			}
			node = child
		}
	}

	vars := make(map[string]cty.Value, len(root))
	for k, v := range root {
		vars[k] = toCty(v)
	}
	return vars, nil
}

func toCty(node any) cty.Value {
	switch n := node.(type) {
	case cty.Value:
		return n
	case map[string]any:
		attrs := make(map[string]cty.Value, len(n))
		for k, v := range n {
			attrs[k] = toCty(v)
		}
		return cty.ObjectVal(attrs)
	}
	return cty.NilVal
}
