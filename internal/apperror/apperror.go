// Package apperror classifies domain failures so the HTTP layer can turn them
// into a status code and a message that is safe to show to the user.
package apperror

import (
	"errors"
	"net/http"
)

// Kind is a failure category.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindOTP
	KindNotEligible
	KindNotFound
	KindConflict
	KindDelivery
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindOTP:
		return "otp"
	case KindNotEligible:
		return "not_eligible"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDelivery:
		return "delivery"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a categorised sentinel. Compare with errors.Is against the package
// level variables that create them.
type Error struct {
	Kind Kind
	Msg  string
}

// New returns a sentinel error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

type persistenceError struct {
	err error
}

func (e *persistenceError) Error() string { return "persistence: " + e.err.Error() }
func (e *persistenceError) Unwrap() error { return e.err }

// Persistence marks err as a storage failure. Nil stays nil and errors that
// already carry a kind are returned unchanged.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &persistenceError{err: err}
}

// KindOf returns the category of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var p *persistenceError
	if errors.As(err, &p) {
		return KindPersistence
	}
	return KindUnknown
}

// Status maps err to the HTTP status the presentation layer should use.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindOTP, KindNotEligible:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing text for err. Storage and unclassified
// failures collapse to a generic message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "something went wrong, please try again"
}
