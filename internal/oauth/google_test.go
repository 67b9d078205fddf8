package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contesthub/contesthub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func TestGoogleProvider_Name(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{})
	assert.Equal(t, "google", provider.Name())
}

func TestGoogleProvider_GetConsentURL(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost/callback",
	})

	url := provider.GetConsentURL("test-state")

	assert.Contains(t, url, "accounts.google.com")
	assert.Contains(t, url, "client_id=test-client-id")
	assert.Contains(t, url, "state=test-state")
	assert.Contains(t, url, "prompt=select_account")
}

func TestGoogleProvider_Scopes(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost/callback",
	})

	assert.Contains(t, provider.config.Scopes, "openid")
	assert.Contains(t, provider.config.Scopes, "https://www.googleapis.com/auth/userinfo.email")
	assert.Contains(t, provider.config.Scopes, "https://www.googleapis.com/auth/userinfo.profile")
}

func TestGoogleProvider_Endpoint(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{})

	assert.Equal(t, google.Endpoint.AuthURL, provider.config.Endpoint.AuthURL)
	assert.Equal(t, google.Endpoint.TokenURL, provider.config.Endpoint.TokenURL)
}

func newTestGoogleProvider(t *testing.T) *GoogleProvider {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_, _ = w.Write([]byte(`{"access_token":"google-access","token_type":"Bearer","id_token":"google-id-token"}`))
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer google-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{
				"id": "g-123",
				"email": "jane@example.com",
				"verified_email": true,
				"name": "Jane",
				"picture": "https://example.com/jane.png"
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     "test-client-id",
			ClientSecret: "test-secret",
			Endpoint: oauth2.Endpoint{
				AuthURL:  server.URL + "/authorize",
				TokenURL: server.URL + "/token",
			},
		},
		userInfoURL: server.URL + "/userinfo",
	}
}

func TestGoogleProvider_ExchangeAndUserInfo(t *testing.T) {
	provider := newTestGoogleProvider(t)
	ctx := context.Background()

	cred, err := provider.Exchange(ctx, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "google", cred.Provider)
	assert.Equal(t, "google-id-token", cred.IDToken)
	assert.Equal(t, "google-access", cred.Token.AccessToken)

	info, err := provider.UserInfo(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, "g-123", info.ID)
	assert.Equal(t, "jane@example.com", info.Email)
	assert.Equal(t, "Jane", info.Name)
	assert.Equal(t, "https://example.com/jane.png", info.AvatarURL)
}

func TestGoogleProvider_UserInfoRejected(t *testing.T) {
	provider := newTestGoogleProvider(t)

	_, err := provider.UserInfo(context.Background(), &Credential{
		Token: &oauth2.Token{AccessToken: "wrong", TokenType: "Bearer"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
