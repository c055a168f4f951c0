package api

import "fmt"

// Error is the consumer-facing error contract. HttpStatus selects the
// response code; the body follows the OAuth error shape.
type Error struct {
	HttpStatus  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s (code=%s)", e.Description, e.Code)
}

// ErrUnauthenticated: no valid session. Recoverable by logging in; never
// logged as an error.
var ErrUnauthenticated = Error{
	HttpStatus:  401,
	Code:        "unauthenticated",
	Description: "No valid session",
}

// ErrReauthRequired covers both an unrefreshable expired credential and a
// rejected refresh; outward behavior is identical, logs differ.
var ErrReauthRequired = Error{
	HttpStatus:  401,
	Code:        "reauthentication_required",
	Description: "Credential expired or revoked, please log in again",
}

// ErrCSRFMismatch fails the handshake closed. No retry.
var ErrCSRFMismatch = Error{
	HttpStatus:  403,
	Code:        "csrf_mismatch",
	Description: "Anti-forgery state does not match",
}

// ErrInfrastructure is the generic failure every unexpected error is
// converted to at the outermost boundary.
var ErrInfrastructure = Error{
	HttpStatus:  500,
	Code:        "server_error",
	Description: "Internal failure",
}

func ErrorBadRequest(description string) Error {
	return Error{
		HttpStatus:  400,
		Code:        "invalid_request",
		Description: description,
	}
}
