// Package gyperr defines the error kinds a resolution run can fail with.
// Every one of them is fatal to the run; callers match them with errors.As.
package gyperr

import (
	"fmt"
	"strings"
)

// ParseError reports unit content that is not a valid nested value document
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MergeTypeError reports an attempt to merge incompatible value kinds under one key
type MergeTypeError struct {
	Key  string
	From string // kind being merged in
	To   string // kind already present, empty for unsupported kinds
}

func (e *MergeTypeError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("attempt to merge value of unsupported type %s for key %s", e.From, e.Key)
	}
	return fmt.Sprintf("attempt to merge value of type %s into incompatible type %s for key %s", e.From, e.To, e.Key)
}

// UnresolvedReferenceError reports a dependency or include that names a
// unit or target which cannot be loaded or found
type UnresolvedReferenceError struct {
	Ref  string // the reference as written or qualified
	From string // unit or target holding the reference
	Err  error  // underlying cause, may be nil
}

func (e *UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("unresolved reference %q from %s", e.Ref, e.From)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnresolvedReferenceError) Unwrap() error { return e.Err }

// CircularDependencyError reports that topological flattening left targets unvisited
type CircularDependencyError struct {
	Unvisited []string   // targets never reached, in table order
	Cycles    [][]string // strongly connected components among them, when known
}

func (e *CircularDependencyError) Error() string {
	msg := fmt.Sprintf("some targets not reachable, cycle in dependency graph detected (%d unvisited)", len(e.Unvisited))
	if len(e.Cycles) > 0 {
		parts := make([]string, 0, len(e.Cycles))
		for _, c := range e.Cycles {
			parts = append(parts, "["+strings.Join(c, " -> ")+"]")
		}
		msg += ": " + strings.Join(parts, ", ")
	}
	return msg
}

// IncludeCycleError reports a unit that transitively includes itself
type IncludeCycleError struct {
	Chain []string
}

func (e *IncludeCycleError) Error() string {
	return "include cycle: " + strings.Join(e.Chain, " -> ")
}

// DuplicateTargetError reports two targets with the same name in one unit
type DuplicateTargetError struct {
	Unit string
	Name string
}

func (e *DuplicateTargetError) Error() string {
	return fmt.Sprintf("duplicate target %q in %s", e.Name, e.Unit)
}
