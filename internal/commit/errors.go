package commit

import (
	"errors"
	"fmt"
)

// ValidationError reports bad or missing local input. It is always returned
// before any request reaches GitHub.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Reason
}

// PreconditionError reports that the target branch could not be resolved to a
// head commit, so there is nothing to commit on top of.
type PreconditionError struct {
	Owner  string
	Repo   string
	Branch string
}

func (e *PreconditionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("branch %q does not exist in %s/%s or has no resolvable head", e.Branch, e.Owner, e.Repo)
}

// IOError reports a local file that could not be read for the payload.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var target *PreconditionError
	return errors.As(err, &target)
}

// IsIO reports whether err is an IOError.
func IsIO(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}
