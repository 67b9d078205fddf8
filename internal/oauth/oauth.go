package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/oauth2"
)

type UserInfo struct {
	Email     string
	Name      string
	AvatarURL string
	ID        string
	Provider  string
}

// Credential is the terminal result of a completed popup: the provider's tokens for the
// person who consented.
type Credential struct {
	Provider string
	Token    *oauth2.Token
	IDToken  string
}

type Provider interface {
	GetConsentURL(state string) string
	Exchange(ctx context.Context, code string) (*Credential, error)
	UserInfo(ctx context.Context, cred *Credential) (*UserInfo, error)
	Name() string
}

func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
