package identity

import (
	"context"

	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/oauth"
)

// Identity is a signed-in person as the identity provider reports it.
type Identity struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
	Provider    string
	// Role is set only by providers that know the authoritative role.
	Role models.Role
}

func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// ProfileChanges carries only the fields to change.
type ProfileChanges struct {
	DisplayName *string
	PhotoURL    *string
}

type Provider interface {
	Name() string
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)
	SignInWithOAuth(ctx context.Context, cred *oauth.Credential) (*Identity, error)
	UpdateProfile(ctx context.Context, changes ProfileChanges) (*Identity, error)
	SignOut(ctx context.Context) error
	// Token returns a bearer token for the current identity, refreshing it when it is about to
	// expire or when forceRefresh is set.
	Token(ctx context.Context, forceRefresh bool) (string, error)
	Current() *Identity
	// OnAuthStateChanged registers fn for every auth state change, in emission order. Once the
	// provider knows its state, a new subscriber immediately receives the current state. A nil
	// identity means signed out.
	OnAuthStateChanged(fn func(*Identity)) (unsubscribe func())
	// Restore rehydrates the previous session from the credential cache and emits the first
	// state notification, whatever the outcome.
	Restore(ctx context.Context) error
}

// CredentialCache keeps a provider's long-lived refresh token across restarts.
type CredentialCache interface {
	LoadRefreshToken(ctx context.Context, provider string) (string, error)
	SaveRefreshToken(ctx context.Context, provider, token string) error
	ClearRefreshToken(ctx context.Context, provider string) error
}
