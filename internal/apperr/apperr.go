// Package apperr defines the typed error kinds shared by every layer of the
// coordination core. Handlers map a Kind to an HTTP status; callers use
// errors.As to recover the Kind without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the error categories surfaced by the core.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidationFail
	KindSessionFull
	KindSessionError
	KindParseID
	KindUnexpectedResponse
	KindWorkerError
	KindInvalidShare
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidationFail:
		return "ValidationFail"
	case KindSessionFull:
		return "SessionFull"
	case KindSessionError:
		return "SessionError"
	case KindParseID:
		return "ParseIdError"
	case KindUnexpectedResponse:
		return "UnexpectedResponse"
	case KindWorkerError:
		return "WorkerError"
	case KindInvalidShare:
		return "InvalidShare"
	default:
		return "InternalError"
	}
}

// HTTPStatus maps a Kind to the status code the coordinator/participant
// HTTP surfaces respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidationFail, KindParseID, KindInvalidShare:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error wraps an underlying cause with a Kind and a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a bare Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a Kind to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// NotFound, ValidationFail, SessionFull, SessionError, ParseID,
// UnexpectedResponse, Internal, WorkerError and InvalidShare are convenience
// constructors matching the error kinds named in the specification.
func NotFound(msg string) *Error                { return New(KindNotFound, msg) }
func ValidationFail(msg string) *Error          { return New(KindValidationFail, msg) }
func SessionFull(msg string) *Error             { return New(KindSessionFull, msg) }
func SessionError(msg string) *Error            { return New(KindSessionError, msg) }
func ParseID(err error) *Error                  { return Wrap(KindParseID, "malformed identifier", err) }
func UnexpectedResponse(msg string) *Error      { return New(KindUnexpectedResponse, msg) }
func Internal(msg string, err error) *Error     { return Wrap(KindInternal, msg, err) }
func WorkerError(msg string, err error) *Error  { return Wrap(KindWorkerError, msg, err) }
func InvalidShare(msg string, err error) *Error { return Wrap(KindInvalidShare, msg, err) }

// KindOf extracts the Kind from err, defaulting to KindInternal when err does
// not wrap an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
