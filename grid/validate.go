package grid

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/lazygrid/field"
	"github.com/vk/lazygrid/internal/shapeexpr"
)

// validateBuffer checks a candidate buffer against the resource spec.
// Failures never mutate the registry; callers reject the write.
func (g *Registry) validateBuffer(r *resource, buf any) error {
	if err := g.checkBuffer(r, buf); err != nil {
		g.notifyValidationFailed(r.name)
		return err
	}
	return nil
}

func (g *Registry) checkBuffer(r *resource, buf any) error {
	spec := r.spec
	if spec == nil {
		return nil
	}

	if buf == nil {
		if spec.AllowNil {
			return nil
		}
		return &ValidationError{Name: r.name, Reason: "buffer is nil but AllowNil=false"}
	}

	switch spec.Kind {
	case KindValue:
		if spec.ValueType == cty.NilType {
			return nil
		}
		implied, err := gocty.ImpliedType(buf)
		if err != nil {
			return &ValidationError{Name: r.name, Reason: fmt.Sprintf("cannot type value %T: %v", buf, err)}
		}
		if !implied.Equals(spec.ValueType) {
			return &ValidationError{Name: r.name, Reason: fmt.Sprintf(
				"expected value type %s, got %s", spec.ValueType.FriendlyName(), implied.FriendlyName())}
		}
		return nil

	case KindArray:
		arr, ok := buf.(*field.Array)
		if !ok {
			return &ValidationError{Name: r.name, Reason: fmt.Sprintf("expected *field.Array, got %T", buf)}
		}
		return g.checkShaped(r, arr)

	case KindOpaque:
		shaped, ok := buf.(field.Buffer)
		if !ok {
			return &ValidationError{Name: r.name, Reason: fmt.Sprintf("expected field-like buffer, got %T", buf)}
		}
		return g.checkShaped(r, shaped)
	}

	return &ValidationError{Name: r.name, Reason: fmt.Sprintf("unknown spec kind %q", string(spec.Kind))}
}

func (g *Registry) checkShaped(r *resource, buf field.Buffer) error {
	spec := r.spec

	if spec.Elem != field.Any && buf.Elem() != spec.Elem {
		return &ValidationError{Name: r.name, Reason: fmt.Sprintf(
			"expected element type %s, got %s", string(spec.Elem), string(buf.Elem()))}
	}
	if spec.Lanes != 0 && buf.Lanes() != spec.Lanes {
		return &ValidationError{Name: r.name, Reason: fmt.Sprintf(
			"expected %d lanes, got %d", spec.Lanes, buf.Lanes())}
	}

	want, checked, err := g.expectedShape(r)
	if err != nil {
		return &ValidationError{Name: r.name, Reason: err.Error()}
	}
	if checked && !field.SameShape(buf.Shape(), want) {
		return &ValidationError{Name: r.name, Reason: fmt.Sprintf(
			"expected shape %v, got %v", want, buf.Shape())}
	}
	return nil
}

// expectedShape resolves the spec's shape constraint, dynamic forms
// included. The second result is false when the spec leaves shape
// unconstrained.
func (g *Registry) expectedShape(r *resource) ([]int, bool, error) {
	spec := r.spec
	switch {
	case spec.Shape != nil:
		return spec.Shape, true, nil
	case spec.ShapeFn != nil:
		shape, err := spec.ShapeFn(g)
		if err != nil {
			return nil, false, fmt.Errorf("shape fn: %w", err)
		}
		return shape, true, nil
	case spec.ShapeExpr != "":
		vars, err := g.depVars(r.deps)
		if err != nil {
			return nil, false, fmt.Errorf("shape expr: %w", err)
		}
		shape, err := shapeexpr.Eval(spec.ShapeExpr, vars)
		if err != nil {
			return nil, false, fmt.Errorf("shape expr: %w", err)
		}
		return shape, true, nil
	}
	return nil, false, nil
}

// depVars summarizes each declared dependency's committed buffer as an HCL
// variable tree for shape expressions: name -> {version[, len][, shape]},
// with len and shape present only where bufferSummary can derive them.
func (g *Registry) depVars(deps []string) (map[string]cty.Value, error) {
	flat := make(map[string]cty.Value, len(deps))
	for _, d := range deps {
		dr, err := g.get(d)
		if err != nil {
			return nil, err
		}
		flat[d] = bufferSummary(dr)
	}
	return shapeexpr.BuildVars(flat)
}

func bufferSummary(r *resource) cty.Value {
	attrs := map[string]cty.Value{
		"version": cty.NumberUIntVal(r.version),
	}
	switch buf := r.buffer.(type) {
	case nil:
	case field.Buffer:
		shape := buf.Shape()
		dims := make([]cty.Value, len(shape))
		for i, d := range shape {
			dims[i] = cty.NumberIntVal(int64(d))
		}
		if len(dims) > 0 {
			attrs["shape"] = cty.TupleVal(dims)
			attrs["len"] = dims[0]
		} else {
			attrs["shape"] = cty.EmptyTupleVal
			attrs["len"] = cty.NumberIntVal(1)
		}
	default:
		if v := reflect.ValueOf(r.buffer); v.Kind() == reflect.Slice || v.Kind() == reflect.String || v.Kind() == reflect.Map {
			attrs["len"] = cty.NumberIntVal(int64(v.Len()))
		}
	}
	return cty.ObjectVal(attrs)
}
