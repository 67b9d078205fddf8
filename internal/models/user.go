package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

// Platform roles. Every new identity starts as RoleUser.
const (
	RoleUser    Role = "user"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCreator, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is the signed-in identity as the rest of the application sees it. It is replaced
// wholesale on every auth event.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL"`
	Role     Role   `json:"role"`
}

func (u User) Clone() *User {
	return &u
}

// Merge returns a copy of u with the supplied profile fields applied. Clearing the photo
// falls back to a generated avatar.
func (u User) Merge(p ProfileUpdate) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PhotoURL != nil {
		u.PhotoURL = *p.PhotoURL
	}
	if u.PhotoURL == "" {
		u.PhotoURL = FallbackPhoto(u.Name, u.Email)
	}
	return u
}

// ProfileUpdate carries only the fields the caller wants changed.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	PhotoURL *string `json:"photoURL,omitempty"`
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.PhotoURL == nil
}

// AvatarURL generates a placeholder avatar for identities without a photo.
func AvatarURL(name string) string {
	if name == "" {
		name = "User"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

// FallbackPhoto is the avatar for someone without a photo, named after the display name or,
// failing that, the local part of the email.
func FallbackPhoto(name, email string) string {
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return AvatarURL(name)
}

// Account is a row of the self-hosted identity provider.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PhotoURL     *string   `json:"photo_url,omitempty"`
	PasswordHash *string   `json:"-"`
	Provider     string    `json:"provider"`
	ProviderID   string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
