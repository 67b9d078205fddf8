// Package access decides whether a route may be rendered for the current session.
package access

import (
	"slices"

	"github.com/contesthub/contesthub/internal/models"
)

type Decision string

const (
	// Pending is the only non-terminal decision. It lasts until the session stops loading.
	Pending Decision = "pending"
	Granted Decision = "granted"
	Denied  Decision = "denied"
)

type State struct {
	Loading bool
	User    *models.User
}

type Result struct {
	Decision   Decision
	RedirectTo string
}

// Authenticated admits any signed-in user and sends everyone else to loginPath.
func Authenticated(state State, loginPath string) Result {
	if state.Loading {
		return Result{Decision: Pending}
	}
	if state.User == nil {
		return Result{Decision: Denied, RedirectTo: loginPath}
	}
	return Result{Decision: Granted}
}

// RoleScoped admits signed-in users holding one of roles. Signed-in users without the role go
// to fallback rather than the login page.
func RoleScoped(state State, roles []models.Role, loginPath, fallback string) Result {
	res := Authenticated(state, loginPath)
	if res.Decision != Granted {
		return res
	}
	if !slices.Contains(roles, state.User.Role) {
		return Result{Decision: Denied, RedirectTo: fallback}
	}
	return res
}
