package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist or is
	// not owned by the acting organizer. Both cases are reported identically.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a write collides with existing state.
	ErrConflict = errors.New("application: conflict")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message recorded for
// a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, ok := v.FieldErrors[field]; ok {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// orNil returns nil when no issues were recorded, so callers can return the
// result directly as an error.
func (v *ValidationError) orNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}
