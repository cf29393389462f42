package report

import (
	"errors"
	"fmt"
)

var (
	// ErrUnparseable means no JSON object could be read from the reply.
	ErrUnparseable = errors.New("unparseable reply")

	// ErrInvalidSchema means the reply parsed but lacks a usable summary.
	ErrInvalidSchema = errors.New("invalid reply schema")
)

// ReportError is a validation failure. Kind is ErrUnparseable or
// ErrInvalidSchema; Raw keeps the reply text for diagnostics.
type ReportError struct {
	Kind error
	Raw  string
	Err  error
}

func (e *ReportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *ReportError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// KindName is the wire name of the failure kind.
func (e *ReportError) KindName() string {
	switch e.Kind {
	case ErrUnparseable:
		return "unparseable"
	case ErrInvalidSchema:
		return "invalid_schema"
	default:
		return "unknown"
	}
}
