package cloud

import (
	"errors"
	"fmt"
)

// Error kinds returned by backends. Adapters wrap provider errors so callers
// can classify them with errors.Is.
var (
	// ErrConflict means a resource with the same name already exists.
	ErrConflict = errors.New("resource already exists")
	// ErrNotFound means the resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrTransient marks network or API failures that may succeed on retry.
	ErrTransient = errors.New("transient backend error")
	// ErrUnsupported means the backend cannot provide the resource kind.
	ErrUnsupported = errors.New("not supported by backend")
)

// ConflictError reports a name collision on create.
func ConflictError(kind Kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrConflict)
}

// NotFoundError reports a missing resource.
func NotFoundError(kind Kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}

// UnsupportedError reports a kind the backend cannot manage.
func UnsupportedError(backend string, kind Kind) error {
	return fmt.Errorf("%s on %s: %w", kind, backend, ErrUnsupported)
}

// TransientError marks err as retryable while keeping it in the chain.
func TransientError(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() []error { return []error{e.err, ErrTransient} }

func IsConflict(err error) bool  { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
