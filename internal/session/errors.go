package session

import (
	"errors"

	"github.com/contesthub/contesthub/internal/identity"
)

var ErrOperationInProgress = errors.New("another sign-in operation is in progress")

// Kind groups AuthErrors by how the caller should present them.
type Kind string

const (
	KindCredential  Kind = "credential"
	KindPopup       Kind = "popup"
	KindSession     Kind = "session"
	KindBusy        Kind = "busy"
	KindUnavailable Kind = "unavailable"
)

// AuthError is the failure result of every Store operation. Message is ready to show to the
// person at the keyboard.
type AuthError struct {
	Kind    Kind
	Code    identity.Code
	Title   string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func busyError(title string) *AuthError {
	return &AuthError{
		Kind:    KindBusy,
		Title:   title,
		Message: "Please wait for the current request to finish",
		Err:     ErrOperationInProgress,
	}
}
