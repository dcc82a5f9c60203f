package api

import (
	"errors"
	"net/http"

	service "github.com/okian/reputation/internal/app"
)

// Sentinel kinds for API errors. The kind decides the response status.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// Error is an API failure tagged with the handler operation.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of kind for op with no underlying cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap tags err as an internal failure of op.
func Wrap(op string, err error) error {
	return &Error{Op: op, Kind: ErrInternal, Err: err}
}

// WrapKind tags err with op and an explicit kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// classify maps service outcomes onto API kinds.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidPage),
		errors.Is(err, service.ErrEmptyQuery):
		return WrapKind(op, ErrBadRequest, err)
	case errors.Is(err, service.ErrNotFound):
		return WrapKind(op, ErrNotFound, err)
	case errors.Is(err, service.ErrDuplicateName):
		return WrapKind(op, ErrConflict, err)
	default:
		return Wrap(op, err)
	}
}

// status returns the HTTP status and machine code for err.
func status(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// clientMessage is what a caller may see. Internal causes are replaced by
// the endpoint's generic message.
func clientMessage(err error, generic string) string {
	var e *Error
	if !errors.As(err, &e) || errors.Is(err, ErrInternal) {
		return generic
	}
	if e.Err != nil && e.Kind != ErrNotFound {
		return e.Err.Error()
	}
	if e.Kind == ErrUnauthorized {
		return "Unauthorized"
	}
	return generic
}
