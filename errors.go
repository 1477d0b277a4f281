package pipeweld

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyProgram = errors.New("empty program path")
	ErrBadEndpoint  = errors.New("bad endpoint")
)

// GraphErrorKind classifies why a graph was rejected.
type GraphErrorKind int

const (
	UnknownNode GraphErrorKind = iota + 1
	DuplicateConnection
	Cycle
)

func (k GraphErrorKind) String() string {
	switch k {
	case UnknownNode:
		return "unknown node"
	case DuplicateConnection:
		return "duplicate connection"
	case Cycle:
		return "cycle"
	}
	return "invalid"
}

// GraphError reports a structural problem found while building or
// validating a Graph. It is returned before any process is started.
type GraphError struct {
	Kind   GraphErrorKind
	Detail string
}

func (e *GraphError) Error() string {
	return "pipeline graph: " + e.Kind.String() + ": " + e.Detail
}

func graphErrorf(kind GraphErrorKind, format string, args ...any) *GraphError {
	return &GraphError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// SpawnError reports that launching the pipeline failed at one node.
// Terminated lists the nodes that were already running and got killed
// during cleanup, in start order. Err holds the underlying OS error.
type SpawnError struct {
	Node       NodeID
	Program    string
	Err        error
	Terminated []NodeID
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning stage %d (%s): %v", e.Node, e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
