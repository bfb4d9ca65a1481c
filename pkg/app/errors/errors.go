// Package errors contains helper functions and types to work with errors
package errors

import (
	"errors"
	"net/http"
)

// Kind identifies the error taxonomy surfaced as errorCode at the HTTP boundary.
type Kind int

const (
	// KindNone is the zero value; no service error.
	KindNone Kind = iota
	// KindValidation covers malformed input and business-rule violations
	// (duplicate address, tree already exists, state-machine precondition
	// violated at the application level).
	KindValidation
	// KindResourceNotFound is for GET endpoints when a record does not exist.
	KindResourceNotFound
	// KindConditionalCheckFailed is a DynamoDB conditional-write contention:
	// a concurrent writer won the race, or a compensating transition found
	// unexpected state.
	KindConditionalCheckFailed
	// KindThrottled is a provider-side throughput/rate-limit rejection.
	KindThrottled
	// KindConflict is a transaction or replication conflict from the KV provider.
	KindConflict
	// KindInternalError is an unexpected failure inside the KV or object-store provider.
	KindInternalError
	// KindAccessDenied is a provider-side authorization rejection; its message
	// is always rewritten to "Access denied" before it reaches the caller.
	KindAccessDenied
	// KindOther is any provider failure that doesn't map to a more specific kind,
	// including an exhausted-retries partial batch write.
	KindOther
	// KindUnauthorizedAccess is a group-gated route called by a caller not in
	// any authorized group.
	KindUnauthorizedAccess
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindResourceNotFound:
		return "ResourceNotFound"
	case KindConditionalCheckFailed:
		return "ConditionalCheckFailed"
	case KindThrottled:
		return "Throttled"
	case KindConflict:
		return "Conflict"
	case KindInternalError:
		return "InternalError"
	case KindAccessDenied:
		return "AccessDenied"
	case KindUnauthorizedAccess:
		return "UnauthorizedAccess"
	default:
		return "Other"
	}
}

// ServiceError is the single error type returned across store adapters,
// the orchestrator, and the read path. Its Kind drives both the errorCode
// in the HTTP envelope and the HTTP status code.
type ServiceError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is checks that the provided error is a ServiceError with the desired Kind.
func Is(err error, kind Kind) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Kind == kind {
		return true
	}
	return false
}

// KindOf extracts the Kind of a ServiceError, or KindOther if err is not one.
func KindOf(err error) Kind {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindOther
}

// Validation returns an error with KindValidation.
func Validation(err error, message string) error {
	return wrap(KindValidation, err, message)
}

// ResourceNotFound returns an error with KindResourceNotFound.
func ResourceNotFound(err error, message string) error {
	return wrap(KindResourceNotFound, err, message)
}

// ConditionalCheckFailed returns an error with KindConditionalCheckFailed.
func ConditionalCheckFailed(err error, message string) error {
	return wrap(KindConditionalCheckFailed, err, message)
}

// Throttled returns an error with KindThrottled.
func Throttled(err error, message string) error {
	return wrap(KindThrottled, err, message)
}

// Conflict returns an error with KindConflict.
func Conflict(err error, message string) error {
	return wrap(KindConflict, err, message)
}

// InternalError returns an error with KindInternalError.
func InternalError(err error, message string) error {
	return wrap(KindInternalError, err, message)
}

// AccessDenied returns an error with KindAccessDenied. The message is always
// the constant string "Access denied" regardless of what the provider said,
// per spec's normalization requirement.
func AccessDenied(err error) error {
	return wrap(KindAccessDenied, err, "Access denied")
}

// Other returns an error with KindOther.
func Other(err error, message string) error {
	return wrap(KindOther, err, message)
}

// UnauthorizedAccess returns an error with KindUnauthorizedAccess.
func UnauthorizedAccess(message string) error {
	return wrap(KindUnauthorizedAccess, nil, message)
}

func wrap(kind Kind, err error, message string) error {
	if err == nil {
		err = errors.New(message)
	}
	return &ServiceError{Kind: kind, Message: message, Err: err}
}

// StatusCode returns the HTTP status code for the error kind. Spec §6 returns
// HTTP 200 with the envelope for every kind except UnauthorizedAccess, which
// is surfaced as 403; callers at the HTTP boundary apply that exception
// themselves rather than trusting this value for every kind.
func (e *ServiceError) StatusCode() int {
	switch e.Kind {
	case KindUnauthorizedAccess:
		return http.StatusForbidden
	default:
		return http.StatusOK
	}
}
