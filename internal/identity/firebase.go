package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/contesthub/contesthub/internal/oauth"
	"go.uber.org/zap"
)

const (
	ProviderNameFirebase = "firebase"

	defaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL     = "https://securetoken.googleapis.com/v1"

	// refresh the id token this long before it expires
	tokenExpiryMargin = time.Minute
)

// FirebaseConfig configures the Identity Toolkit REST client. The URLs default to Google's
// production endpoints.
type FirebaseConfig struct {
	APIKey             string
	IdentityToolkitURL string
	SecureTokenURL     string
	HTTPClient         *http.Client
}

type firebaseSession struct {
	identity     *Identity
	idToken      string
	refreshToken string
	expiresAt    time.Time
}

// FirebaseProvider signs people in through the Firebase Auth REST API.
type FirebaseProvider struct {
	apiKey      string
	toolkitURL  string
	tokenURL    string
	client      *http.Client
	cache       CredentialCache
	logger      *zap.Logger
	broadcaster *broadcaster

	mu      sync.Mutex
	session *firebaseSession
}

func NewFirebaseProvider(cfg FirebaseConfig, cache CredentialCache, logger *zap.Logger) *FirebaseProvider {
	p := &FirebaseProvider{
		apiKey:      cfg.APIKey,
		toolkitURL:  strings.TrimRight(cfg.IdentityToolkitURL, "/"),
		tokenURL:    strings.TrimRight(cfg.SecureTokenURL, "/"),
		client:      cfg.HTTPClient,
		cache:       cache,
		logger:      logger.Named("firebase"),
		broadcaster: newBroadcaster(),
	}
	if p.toolkitURL == "" {
		p.toolkitURL = defaultIdentityToolkitURL
	}
	if p.tokenURL == "" {
		p.tokenURL = defaultSecureTokenURL
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 30 * time.Second}
	}
	return p
}

func (p *FirebaseProvider) Name() string {
	return ProviderNameFirebase
}

type firebaseAuthResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type firebaseUser struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

func (u firebaseUser) identity() *Identity {
	return &Identity{
		UID:         u.LocalID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
		Provider:    ProviderNameFirebase,
	}
}

func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	var resp firebaseAuthResponse
	err := p.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.establish(ctx, resp, true)
}

func (p *FirebaseProvider) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	var resp firebaseAuthResponse
	err := p.call(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.establish(ctx, resp, false)
}

func (p *FirebaseProvider) SignInWithOAuth(ctx context.Context, cred *oauth.Credential) (*Identity, error) {
	if cred == nil {
		return nil, newError(CodePopupClosed, "no credential returned", nil)
	}

	postBody := url.Values{"providerId": {providerID(cred.Provider)}}
	switch {
	case cred.IDToken != "":
		postBody.Set("id_token", cred.IDToken)
	case cred.Token != nil:
		postBody.Set("access_token", cred.Token.AccessToken)
	default:
		return nil, newError(CodeUnknown, "credential carries no token", nil)
	}

	var resp firebaseAuthResponse
	err := p.call(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":          postBody.Encode(),
		"requestUri":        "http://localhost",
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.establish(ctx, resp, false)
}

func providerID(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".com"
}

// establish records a freshly authenticated session and notifies subscribers. The sign-in
// response carries no photo, so lookup fills in the full profile when asked.
func (p *FirebaseProvider) establish(ctx context.Context, resp firebaseAuthResponse, lookup bool) (*Identity, error) {
	user := firebaseUser{
		LocalID:     resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoURL,
	}
	if lookup {
		found, err := p.lookup(ctx, resp.IDToken)
		if err != nil {
			p.logger.Warn("profile lookup failed, using sign-in response", zap.Error(err))
		} else {
			user = *found
		}
	}

	sess := &firebaseSession{
		identity:     user.identity(),
		idToken:      resp.IDToken,
		refreshToken: resp.RefreshToken,
		expiresAt:    expiresAt(resp.ExpiresIn),
	}

	if err := p.cache.SaveRefreshToken(ctx, p.Name(), sess.refreshToken); err != nil {
		return nil, fmt.Errorf("failed to cache refresh token: %w", err)
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	p.broadcaster.emit(sess.identity)
	return sess.identity.Clone(), nil
}

func expiresAt(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}

func (p *FirebaseProvider) lookup(ctx context.Context, idToken string) (*firebaseUser, error) {
	var resp struct {
		Users []firebaseUser `json:"users"`
	}
	if err := p.call(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, newError(CodeUserNotFound, "USER_NOT_FOUND", nil)
	}
	return &resp.Users[0], nil
}

func (p *FirebaseProvider) UpdateProfile(ctx context.Context, changes ProfileChanges) (*Identity, error) {
	idToken, err := p.Token(ctx, false)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"idToken":           idToken,
		"returnSecureToken": false,
	}
	if changes.DisplayName != nil {
		body["displayName"] = *changes.DisplayName
	}
	if changes.PhotoURL != nil {
		body["photoUrl"] = *changes.PhotoURL
	}

	var resp firebaseUser
	if err := p.call(ctx, "accounts:update", body, &resp); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, ErrNoCurrentUser
	}
	updated := p.session.identity.Clone()
	if changes.DisplayName != nil {
		updated.DisplayName = resp.DisplayName
	}
	if changes.PhotoURL != nil {
		updated.PhotoURL = resp.PhotoURL
	}
	p.session.identity = updated
	p.broadcaster.replace(updated)
	return updated.Clone(), nil
}

// SignOut drops the local session. Firebase has no server-side sign-out for REST clients.
func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()

	err := p.cache.ClearRefreshToken(ctx, p.Name())
	p.broadcaster.emit(nil)
	if err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

func (p *FirebaseProvider) Token(ctx context.Context, forceRefresh bool) (string, error) {
	p.mu.Lock()
	sess := p.session
	p.mu.Unlock()

	if sess == nil {
		return "", ErrNoCurrentUser
	}
	if !forceRefresh && time.Until(sess.expiresAt) > tokenExpiryMargin {
		return sess.idToken, nil
	}

	refreshed, err := p.refresh(ctx, sess.refreshToken)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	if p.session == sess {
		sess.idToken = refreshed.idToken
		sess.refreshToken = refreshed.refreshToken
		sess.expiresAt = refreshed.expiresAt
	}
	p.mu.Unlock()

	if err := p.cache.SaveRefreshToken(ctx, p.Name(), refreshed.refreshToken); err != nil {
		p.logger.Warn("failed to cache refreshed token", zap.Error(err))
	}
	return refreshed.idToken, nil
}

func (p *FirebaseProvider) refresh(ctx context.Context, refreshToken string) (*firebaseSession, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	endpoint := p.tokenURL + "/token?key=" + url.QueryEscape(p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	if err := p.do(req, &resp); err != nil {
		return nil, err
	}

	return &firebaseSession{
		idToken:      resp.IDToken,
		refreshToken: resp.RefreshToken,
		expiresAt:    expiresAt(resp.ExpiresIn),
	}, nil
}

func (p *FirebaseProvider) Current() *Identity {
	return p.broadcaster.snapshot()
}

func (p *FirebaseProvider) OnAuthStateChanged(fn func(*Identity)) func() {
	return p.broadcaster.subscribe(fn)
}

func (p *FirebaseProvider) Restore(ctx context.Context) error {
	refreshToken, err := p.cache.LoadRefreshToken(ctx, p.Name())
	if err != nil {
		p.broadcaster.emit(nil)
		return fmt.Errorf("failed to load refresh token: %w", err)
	}
	if refreshToken == "" {
		p.broadcaster.emit(nil)
		return nil
	}

	sess, err := p.refresh(ctx, refreshToken)
	if err == nil {
		var user *firebaseUser
		user, err = p.lookup(ctx, sess.idToken)
		if err == nil {
			sess.identity = user.identity()
		}
	}
	if err != nil {
		if clearErr := p.cache.ClearRefreshToken(ctx, p.Name()); clearErr != nil {
			p.logger.Warn("failed to clear stale refresh token", zap.Error(clearErr))
		}
		p.broadcaster.emit(nil)
		return fmt.Errorf("failed to restore session: %w", err)
	}

	if err := p.cache.SaveRefreshToken(ctx, p.Name(), sess.refreshToken); err != nil {
		p.logger.Warn("failed to cache refreshed token", zap.Error(err))
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	p.broadcaster.emit(sess.identity)
	return nil
}

func (p *FirebaseProvider) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := p.toolkitURL + "/" + method + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return p.do(req, out)
}

func (p *FirebaseProvider) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return newError(CodeUnknown, "identity provider unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(CodeUnknown, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return firebaseError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return newError(CodeUnknown, "failed to decode response", err)
	}
	return nil
}

func firebaseError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return newError(CodeUnknown, fmt.Sprintf("identity provider returned status %d", status), nil)
	}
	message := envelope.Error.Message
	return newError(firebaseCode(message), message, nil)
}

// firebaseCode maps an Identity Toolkit error message such as "WEAK_PASSWORD : Password should
// be at least 6 characters" onto a Code.
func firebaseCode(message string) Code {
	key, _, _ := strings.Cut(message, " ")
	switch key {
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		return CodeUserNotFound
	case "INVALID_PASSWORD":
		return CodeWrongPassword
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return CodeInvalidEmail
	case "EMAIL_EXISTS":
		return CodeEmailInUse
	case "WEAK_PASSWORD":
		return CodeWeakPassword
	}
	return CodeUnknown
}
