package util

import "errors"

// Sentinel errors for the failure modes of a load run
var (
	// ErrIO indicates a missing or unreadable path
	ErrIO = errors.New("io error")

	// ErrParse indicates a line that is not valid JSON
	ErrParse = errors.New("parse error")

	// ErrSchema indicates a record is missing an expected field or has the wrong type
	ErrSchema = errors.New("schema error")

	// ErrConstraint indicates the target store rejected a write
	ErrConstraint = errors.New("constraint violation")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
