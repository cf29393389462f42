package source_acquirer

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork          = errors.New("network failure")
	ErrAuth             = errors.New("authentication failed")
	ErrNotFound         = errors.New("repository not found")
	ErrInvalidReference = errors.New("invalid repository reference")
)

// AcquisitionError reports why a repository could not be acquired. Kind is
// one of the sentinel errors above and is matched by errors.Is.
type AcquisitionError struct {
	Kind error
	URL  string
	Err  error
}

func (e *AcquisitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("acquire %s: %v", e.URL, e.Kind)
	}
	return fmt.Sprintf("acquire %s: %v: %v", e.URL, e.Kind, e.Err)
}

func (e *AcquisitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
