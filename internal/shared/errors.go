package shared

import (
	"errors"
	"fmt"
)

// Error kinds shared by every module. Module sentinels wrap one of these so the
// HTTP layer can classify failures with errors.Is.
var (
	// ErrValidation indicates malformed or inconsistent input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the request clashes with the current state of a resource.
	ErrConflict = errors.New("conflict")
)

// UserSafeMessage returns err's message for classified errors and a generic
// message for anything else (storage failures, driver errors).
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err.Error()
	}
	return "internal error, please retry later"
}

// ValidationErrorf builds an ErrValidation-wrapped error.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
