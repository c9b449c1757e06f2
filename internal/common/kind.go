package common

import "fmt"

// Kind classifies an error for the client facing response.
type Kind int

const (
	KindInfrastructure Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "infrastructure"
	}
}

// Error carries a Kind and a client safe Reason. Err holds the underlying
// cause, which is logged but never sent to clients for infrastructure errors.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error wrapping ErrorNotFound.
func NotFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason, Err: ErrorNotFound}
}

// Infrastructure wraps a backend failure. The reason is always the opaque
// "internal server error".
func Infrastructure(err error) *Error {
	return &Error{Kind: KindInfrastructure, Reason: "internal server error", Err: err}
}
