// Package wiring builds producers from typed IO records.
//
// An IO record is a struct whose exported fields are resource refs. Output
// fields carry the struct tag `grid:"out"`; everything else is an input.
// The producer's output set derives from those marked fields in declaration
// order, so producer code never constructs resource names.
package wiring

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/lazygrid/grid"
)

// ComputeFunc is the body of a wired producer. It reads inputs through
// io.<Field>.Peek() (inputs are fresh by the time it runs) and writes
// outputs through io.<Field>.Set, SetBuffer+Commit, or Bump.
type ComputeFunc[IO any] func(reg *grid.Registry, io IO) error

// Producer is a grid.Producer wired to concrete refs at construction time.
type Producer[IO any] struct {
	name    string
	io      IO
	outputs []string
	fn      ComputeFunc[IO]
}

// New wires a producer to an IO record. It fails when the record is not a
// struct of refs, marks no outputs, or marks the same resource twice.
func New[IO any](name string, io IO, fn ComputeFunc[IO]) (*Producer[IO], error) {
	if name == "" {
		return nil, fmt.Errorf("wiring: producer name is empty")
	}
	if fn == nil {
		return nil, fmt.Errorf("wiring: producer %s has no compute func", name)
	}

	outputs, err := outputNames(io)
	if err != nil {
		return nil, fmt.Errorf("wiring: producer %s: %w", name, err)
	}

	return &Producer[IO]{name: name, io: io, outputs: outputs, fn: fn}, nil
}

// MustNew is New panicking on error, for module construction sites where a
// bad IO record is a programmer error.
func MustNew[IO any](name string, io IO, fn ComputeFunc[IO]) *Producer[IO] {
	p, err := New(name, io, fn)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the producer's display identity.
func (p *Producer[IO]) Name() string { return p.name }

// Outputs returns the derived output names in IO field declaration order.
func (p *Producer[IO]) Outputs() []string {
	return append([]string(nil), p.outputs...)
}

// Compute invokes the wired compute func.
func (p *Producer[IO]) Compute(reg *grid.Registry) error {
	return p.fn(reg, p.io)
}

// IO returns the wired IO record.
func (p *Producer[IO]) IO() IO { return p.io }

var _ grid.Producer = (*Producer[any])(nil)

func outputNames(io any) ([]string, error) {
	v := reflect.ValueOf(io)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("IO record is nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("IO record is %s, want a struct", v.Kind())
	}

	var outputs []string
	seen := make(map[string]bool)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		role := strings.Split(sf.Tag.Get("grid"), ",")[0]
		switch role {
		case "", "in", "out":
		default:
			return nil, fmt.Errorf("field %s has unknown grid tag %q", sf.Name, role)
		}

		ref, ok := v.Field(i).Interface().(grid.Handle)
		if !ok {
			return nil, fmt.Errorf("field %s is %s, want a resource ref", sf.Name, sf.Type)
		}
		if v.Field(i).Kind() == reflect.Pointer && v.Field(i).IsNil() {
			return nil, fmt.Errorf("field %s is a nil ref", sf.Name)
		}

		if role != "out" {
			continue
		}
		name := ref.RefName()
		if seen[name] {
			return nil, fmt.Errorf("output '%s' marked twice", name)
		}
		seen[name] = true
		outputs = append(outputs, name)
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("IO record marks no outputs")
	}
	return outputs, nil
}
