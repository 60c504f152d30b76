package grid

import (
	"fmt"
	"strings"
)

// UnknownResourceError reports an operation on a name that was never declared.
type UnknownResourceError struct {
	Name string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resource: %s", e.Name)
}

// DuplicateResourceError reports a second declaration of the same name.
type DuplicateResourceError struct {
	Name string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("resource already declared: %s", e.Name)
}

// CycleError reports a dependency cycle found while ensuring a resource.
// Path holds the DFS stack, ending with the name that closed the cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// UninitializedError reports an ensure on a resource that has no producer
// and was never committed. The caller must set the input first.
type UninitializedError struct {
	Name string
}

func (e *UninitializedError) Error() string {
	return fmt.Sprintf("resource '%s' has no producer and was never set", e.Name)
}

// NotCommittedError reports a producer whose compute returned without
// committing every declared output.
type NotCommittedError struct {
	Producer string
	Names    []string
}

func (e *NotCommittedError) Error() string {
	return fmt.Sprintf(
		"producer %s ran but did not commit: %s (did you forget Commit()/Bump()?)",
		e.Producer, strings.Join(e.Names, ", "),
	)
}

// NotOwnedError reports a resource declared with a producer that does not
// list the resource among its outputs.
type NotOwnedError struct {
	Name     string
	Producer string
}

func (e *NotOwnedError) Error() string {
	return fmt.Sprintf("producer %s does not list '%s' in its outputs", e.Producer, e.Name)
}

// ValidationError reports a buffer rejected by a resource spec. The write
// that triggered it left the resource untouched.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Name, e.Reason)
}
