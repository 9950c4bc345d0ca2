package weback

import (
	"errors"
	"fmt"
)

// Envelope messages returned by the vendor API.
const (
	msgSuccess      = "success"
	msgServiceError = "ServiceErrorException"
	msgUserNotExist = "UserNotExist"
	msgPasswordNOK  = "PasswordInvalid"
)

var ErrNoSession = errors.New("weback: no active session")

type AuthReason string

const (
	AuthUnrecognized    AuthReason = "unrecognized"
	AuthAppUnrecognized AuthReason = "app_unrecognized"
	AuthUserNotFound    AuthReason = "user_not_found"
	AuthWrongPassword   AuthReason = "wrong_password"
)

// AuthError is a login rejected by the vendor. Msg holds the raw envelope
// message.
type AuthError struct {
	Reason AuthReason
	Msg    string
}

func (e *AuthError) Error() string {
	switch e.Reason {
	case AuthAppUnrecognized:
		return "weback login failed: application is not recognized"
	case AuthUserNotFound:
		return "weback login failed: user does not exist"
	case AuthWrongPassword:
		return "weback login failed: wrong password"
	default:
		return fmt.Sprintf("weback login failed: %s", e.Msg)
	}
}

func authErrorFor(msg string) *AuthError {
	switch msg {
	case msgServiceError:
		return &AuthError{Reason: AuthAppUnrecognized, Msg: msg}
	case msgUserNotExist:
		return &AuthError{Reason: AuthUserNotFound, Msg: msg}
	case msgPasswordNOK:
		return &AuthError{Reason: AuthWrongPassword, Msg: msg}
	default:
		return &AuthError{Reason: AuthUnrecognized, Msg: msg}
	}
}

// ProtocolError is a call the server answered with a non-success envelope,
// or with a success envelope missing the expected data.
type ProtocolError struct {
	Opt      string
	Envelope Envelope
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("weback %s failed: %s", e.Opt, e.Envelope.Msg())
}

// TransportError is returned once every attempt of a request has failed.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("weback request to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}
