package dto

import "github.com/contesthub/contesthub/internal/models"

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// PopupResponse starts a Google sign-in; the outcome arrives on the session event stream.
type PopupResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type CancelPopupRequest struct {
	State string `json:"state"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}

// AuthErrorResponse carries a failed sign-in, sign-up or profile update.
type AuthErrorResponse struct {
	Error string `json:"error"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Code  string `json:"code,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
