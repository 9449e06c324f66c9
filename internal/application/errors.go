package application

import "errors"

var (
	// ErrAlreadyPunchedIn is returned when punch-in is attempted while an
	// active entry exists for the user.
	ErrAlreadyPunchedIn = errors.New("application: already punched in")
	// ErrAlreadyClosed is returned when punch-out targets an entry that is
	// no longer active. Closed entries cannot be reopened.
	ErrAlreadyClosed = errors.New("application: entry already closed")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrForbidden is returned when the entry exists but belongs to a
	// different user than the acting principal.
	ErrForbidden = errors.New("application: forbidden")
	// ErrDataIntegrity reports a storage or programming defect: a negative
	// computed duration or multiple simultaneous active entries. It is
	// surfaced, never silently corrected.
	ErrDataIntegrity = errors.New("application: data integrity violation")

	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAlreadyExists is returned when a unique resource already exists,
	// e.g. a taken username.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token has been revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
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

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
