package identity

import (
	"errors"
	"fmt"

	"github.com/contesthub/contesthub/internal/oauth"
)

// Code is the closed set of provider failures the rest of the application may branch on.
type Code string

const (
	CodeUserNotFound  Code = "user-not-found"
	CodeWrongPassword Code = "wrong-password"
	CodeInvalidEmail  Code = "invalid-email"
	CodeEmailInUse    Code = "email-already-in-use"
	CodeWeakPassword  Code = "weak-password"
	CodePopupClosed   Code = "popup-closed"
	CodeNoCurrentUser Code = "no-current-user"
	CodeUnknown       Code = "unknown"
)

var ErrNoCurrentUser = &Error{Code: CodeNoCurrentUser, Message: "no user is signed in"}

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf classifies any error returned by a Provider. It returns "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ierr *Error
	if errors.As(err, &ierr) {
		return ierr.Code
	}
	if errors.Is(err, oauth.ErrPopupClosed) {
		return CodePopupClosed
	}
	return CodeUnknown
}

// MessageOf returns the provider's own message for err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var ierr *Error
	if errors.As(err, &ierr) && ierr.Message != "" {
		return ierr.Message
	}
	return err.Error()
}
