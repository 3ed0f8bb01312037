package ir

import (
	"errors"
	"fmt"
)

// GraphError represents a structural error detected while mutating or
// verifying a graph.
//
// Graph errors include:
//   - Unknown op: node creation against an unregistered op name
//   - Node in use: erasing a node whose results still have uses
//   - Stale handle: a mutation through an already-invalidated handle
//   - Type mismatch: rewiring a value to one of a different type
//   - Invariant violation: a verifier check failed
//
// GraphError includes structured fields for diagnostics.
type GraphError struct {
	// Code identifies the error category.
	Code GraphErrorCode

	// Message is a human-readable description.
	Message string

	// Op names the operation kind involved, when known.
	Op OpName

	// Node identifies the node involved, when known.
	Node NodeID

	// Uses counts remaining uses for ErrCodeNodeInUse.
	Uses int
}

// GraphErrorCode categorizes graph errors.
type GraphErrorCode string

const (
	// ErrCodeUnknownOp indicates an op name absent from the registry.
	ErrCodeUnknownOp GraphErrorCode = "UNKNOWN_OP"

	// ErrCodeNodeInUse indicates an erase of a node with live uses.
	ErrCodeNodeInUse GraphErrorCode = "NODE_IN_USE"

	// ErrCodeStaleHandle indicates a mutation through a dead handle.
	ErrCodeStaleHandle GraphErrorCode = "STALE_HANDLE"

	// ErrCodeTypeMismatch indicates a replacement with a value of a
	// different type.
	ErrCodeTypeMismatch GraphErrorCode = "TYPE_MISMATCH"

	// ErrCodeInvariant indicates a structural verifier failure.
	ErrCodeInvariant GraphErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeMalformed indicates an ill-formed mutation request, such
	// as an operand index out of range.
	ErrCodeMalformed GraphErrorCode = "MALFORMED_REQUEST"
)

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownOp returns true if the error is an unknown-op error.
// Uses errors.As to handle wrapped errors.
func IsUnknownOp(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.Code == ErrCodeUnknownOp
}

// IsNodeInUse returns true if the error reports an erase of a node
// whose results still have uses.
func IsNodeInUse(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.Code == ErrCodeNodeInUse
}

// IsStaleHandle returns true if the error reports a mutation through
// an invalidated handle.
func IsStaleHandle(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.Code == ErrCodeStaleHandle
}

// IsInvariant returns true if the error is a verifier failure.
func IsInvariant(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.Code == ErrCodeInvariant
}

// RegistrationError represents a rejected dialect or op registration.
type RegistrationError struct {
	Dialect string
	Op      OpName
	Reason  string
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	switch {
	case e.Op != "":
		return fmt.Sprintf("register %s: %s", e.Op, e.Reason)
	case e.Dialect != "":
		return fmt.Sprintf("register dialect %s: %s", e.Dialect, e.Reason)
	default:
		return fmt.Sprintf("register: %s", e.Reason)
	}
}

// ParseError represents a syntax error in the textual graph form.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

func errUnknownOp(op OpName) error {
	return &GraphError{Code: ErrCodeUnknownOp, Message: "op is not registered", Op: op}
}

func errStaleNode(id NodeID) error {
	return &GraphError{Code: ErrCodeStaleHandle, Message: "node handle is no longer live", Node: id}
}

func errStaleValue(id ValueID) error {
	return &GraphError{Code: ErrCodeStaleHandle, Message: fmt.Sprintf("value handle %s is no longer live", id)}
}

func errStaleBlock(id BlockID) error {
	return &GraphError{Code: ErrCodeStaleHandle, Message: fmt.Sprintf("block handle %s is no longer live", id)}
}

func errNodeInUse(op OpName, id NodeID, uses int) error {
	return &GraphError{
		Code:    ErrCodeNodeInUse,
		Message: fmt.Sprintf("cannot erase node with %d remaining uses", uses),
		Op:      op,
		Node:    id,
		Uses:    uses,
	}
}

func errTypeMismatch(want, got Type) error {
	return &GraphError{
		Code:    ErrCodeTypeMismatch,
		Message: fmt.Sprintf("replacement type %s does not match %s", got, want),
	}
}

func errInvariant(n *Node, format string, args ...any) error {
	ge := &GraphError{Code: ErrCodeInvariant, Message: fmt.Sprintf(format, args...)}
	if n != nil {
		ge.Op = n.Op()
		ge.Node = n.ID()
	}
	return ge
}

func errMalformed(format string, args ...any) error {
	return &GraphError{Code: ErrCodeMalformed, Message: fmt.Sprintf(format, args...)}
}
