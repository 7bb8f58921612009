package api

import "errors"

// ErrKind classifies a failed remote call so screens can branch on the
// class instead of the raw status code.
type ErrKind int

const (
	// KindTransport covers connectivity, DNS and timeout failures.
	KindTransport ErrKind = iota
	// KindAuth is an HTTP 401 on a protected call.
	KindAuth
	// KindForbidden is an HTTP 403. Most callers treat it like KindAuth;
	// the check-access call reinterprets it as "not enrolled yet".
	KindForbidden
	// KindServer is any 5xx.
	KindServer
	// KindRejected is a well-formed response the backend declined:
	// success=false or an unexpected 4xx. Message is surfaced verbatim.
	KindRejected
	// KindDecode means the response body was not the expected envelope.
	KindDecode
)

// Canned user-facing messages for failure classes the backend gives us no
// words for.
const (
	MsgNoConnection = "No internet connection. Please check your network and try again."
	MsgLoginNeeded  = "Please log in to continue."
	MsgAccessDenied = "Access expired. Please contact support or log in with a valid account."
	MsgServerDown   = "Server temporarily unavailable. Please try again later."
)

// Error is the uniform failure every client method returns.
type Error struct {
	Kind    ErrKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, or KindRejected for foreign errors.
func KindOf(err error) ErrKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindRejected
}

// UserMessage returns the text a screen should show for err.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgServerDown
}
