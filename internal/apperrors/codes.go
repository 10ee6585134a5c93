// Package apperrors provides the coded domain errors returned by the
// attendance service and their transport mappings.
package apperrors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeInternal represents a store or unexpected failure.
	CodeInternal Code = "INTERNAL"

	// Caller errors, nothing was mutated
	CodeInvalidRequest  Code = "INVALID_REQUEST"
	CodeMissingReason   Code = "MISSING_REASON"
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	CodeNotFound  Code = "NOT_FOUND"
	CodeForbidden Code = "FORBIDDEN"

	// Invariant conflicts, the conflicting record is attached
	CodeAlreadyClockedIn       Code = "ALREADY_CLOCKED_IN"
	CodeNoActiveSession        Code = "NO_ACTIVE_SESSION"
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeTrackingLimitReached   Code = "TRACKING_LIMIT_REACHED"
)

// Class groups codes into the error taxonomy callers branch on.
type Class string

const (
	ClassInvalidRequest  Class = "invalid_request"
	ClassUnauthenticated Class = "unauthenticated"
	ClassNotFound        Class = "not_found"
	ClassForbidden       Class = "forbidden"
	ClassConflict        Class = "conflict"
	ClassInternal        Class = "internal"
)

// Class maps a code to its taxonomy class.
func (c Code) Class() Class {
	switch c {
	case CodeInvalidRequest, CodeMissingReason:
		return ClassInvalidRequest
	case CodeUnauthenticated:
		return ClassUnauthenticated
	case CodeNotFound:
		return ClassNotFound
	case CodeForbidden:
		return ClassForbidden
	case CodeAlreadyClockedIn,
		CodeNoActiveSession,
		CodeConcurrentModification,
		CodeInvalidTransition,
		CodeTrackingLimitReached:
		return ClassConflict
	default:
		return ClassInternal
	}
}

// HTTPStatus maps a code to the HTTP status used by the API.
func (c Code) HTTPStatus() int {
	switch c.Class() {
	case ClassInvalidRequest:
		return http.StatusBadRequest
	case ClassUnauthenticated:
		return http.StatusUnauthorized
	case ClassNotFound:
		return http.StatusNotFound
	case ClassForbidden:
		return http.StatusForbidden
	case ClassConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
