package graphstore

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	// ErrMalformedInput is returned when an adjacency record cannot be
	// parsed.
	ErrMalformedInput = xerrors.New("malformed input")

	// ErrDanglingReference is returned when an edge points to a vertex
	// that was never declared.
	ErrDanglingReference = xerrors.New("edge references an undeclared vertex")

	// ErrInvalidVertexID is returned when attempting to add a vertex whose
	// ID is empty or contains non-printable characters.
	ErrInvalidVertexID = xerrors.New("invalid vertex ID")
)

// LineError annotates a load error with the 1-based number of the input line
// that triggered it.
type LineError struct {
	Line int
	Err  error
}

// Error implements error.
func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the wrapped error.
func (e *LineError) Unwrap() error { return e.Err }

// ReferenceError describes an edge whose destination has not been declared
// as a vertex.
type ReferenceError struct {
	Src string
	Dst string
}

// Error implements error.
func (e *ReferenceError) Error() string {
	return fmt.Sprintf("edge %q -> %q: %v", e.Src, e.Dst, ErrDanglingReference)
}

// Unwrap returns ErrDanglingReference.
func (e *ReferenceError) Unwrap() error { return ErrDanglingReference }
