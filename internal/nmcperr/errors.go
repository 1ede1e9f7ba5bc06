// Package nmcperr implements the error taxonomy shared by the controllers
// and the gateway. Kinds are compared with nmcperr.Is (an errors.As over the
// error chain), not by type name.
package nmcperr

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Kind is one entry of the error taxonomy.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindTransientAPI      Kind = "TransientApi"
	KindValidation        Kind = "Validation"
	KindPoolExhausted     Kind = "PoolExhausted"
	KindPodFailed         Kind = "PodFailed"
	KindActivationTimeout Kind = "ActivationTimeout"
	KindActivationFailed  Kind = "ActivationFailed"
	KindUpstreamIOError   Kind = "UpstreamIoError"
	KindFatal             Kind = "Fatal"
)

// Error wraps a taxonomy Kind around an underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an *Error of the given kind wrapping cause; callers test for a
// kind with nmcperr.Is(err, KindX).
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether the first *Error in err's chain has the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Classify maps a raw error — typically one returned from the Kubernetes API
// — onto the taxonomy. Errors already wrapped as *Error pass through
// unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	switch {
	case apierrors.IsNotFound(err):
		return New(KindNotFound, "resource not found", err)
	case apierrors.IsConflict(err):
		return New(KindConflict, "resource version conflict", err)
	case apierrors.IsInvalid(err):
		return New(KindValidation, "spec violates invariants", err)
	case apierrors.IsServerTimeout(err), apierrors.IsTimeout(err), apierrors.IsTooManyRequests(err),
		apierrors.IsServiceUnavailable(err), apierrors.IsInternalError(err):
		return New(KindTransientAPI, "transient API server error", err)
	default:
		return New(KindTransientAPI, "unclassified API error", err)
	}
}
