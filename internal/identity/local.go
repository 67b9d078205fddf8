package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/oauth"
	"github.com/contesthub/contesthub/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ProviderNameLocal = "local"

type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	CreateWithPassword(ctx context.Context, email, name, passwordHash string, photoURL *string) (*models.Account, error)
	FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, photoURL *string) (*models.Account, error)
}

type RefreshTokenStore interface {
	StoreRefreshToken(ctx context.Context, accountID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

type TokenIssuer interface {
	GenerateTokenPair(account *models.Account) (*services.TokenPair, error)
	ValidateAccessToken(tokenString string) (*services.Claims, error)
	ValidateRefreshToken(tokenString string) (uuid.UUID, error)
	RefreshExpiry() time.Duration
}

type localSession struct {
	account      *models.Account
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// LocalProvider is the self-hosted identity provider: accounts in Postgres, bcrypt password
// hashes and HS256 tokens whose claims carry the account's role.
type LocalProvider struct {
	accounts    AccountStore
	tokens      RefreshTokenStore
	issuer      TokenIssuer
	oauth       oauth.Provider
	cache       CredentialCache
	logger      *zap.Logger
	broadcaster *broadcaster

	mu      sync.Mutex
	session *localSession
}

// NewLocalProvider builds the provider. oauthProvider may be nil when no OAuth provider is
// configured.
func NewLocalProvider(
	accounts AccountStore,
	tokens RefreshTokenStore,
	issuer TokenIssuer,
	oauthProvider oauth.Provider,
	cache CredentialCache,
	logger *zap.Logger,
) *LocalProvider {
	return &LocalProvider{
		accounts:    accounts,
		tokens:      tokens,
		issuer:      issuer,
		oauth:       oauthProvider,
		cache:       cache,
		logger:      logger.Named("local"),
		broadcaster: newBroadcaster(),
	}
}

func (p *LocalProvider) Name() string {
	return ProviderNameLocal
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !validEmail(email) {
		return nil, newError(CodeInvalidEmail, "invalid email address", nil)
	}

	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return nil, newError(CodeUserNotFound, "no account for this email", err)
		}
		return nil, newError(CodeUnknown, "account lookup failed", err)
	}

	if err := services.CheckPassword(account.PasswordHash, password); err != nil {
		return nil, newError(CodeWrongPassword, "incorrect password", err)
	}

	return p.establish(ctx, account)
}

func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !validEmail(email) {
		return nil, newError(CodeInvalidEmail, "invalid email address", nil)
	}

	hash, err := services.HashPassword(password)
	if err != nil {
		if errors.Is(err, services.ErrWeakPassword) {
			return nil, newError(CodeWeakPassword, err.Error(), err)
		}
		return nil, newError(CodeUnknown, "could not hash password", err)
	}

	account, err := p.accounts.CreateWithPassword(ctx, email, "", hash, nil)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return nil, newError(CodeEmailInUse, "email already in use", err)
		}
		return nil, newError(CodeUnknown, "could not create account", err)
	}

	return p.establish(ctx, account)
}

func (p *LocalProvider) SignInWithOAuth(ctx context.Context, cred *oauth.Credential) (*Identity, error) {
	if p.oauth == nil {
		return nil, newError(CodeUnknown, "oauth sign-in is not configured", nil)
	}
	if cred == nil {
		return nil, newError(CodePopupClosed, "no credential returned", nil)
	}

	info, err := p.oauth.UserInfo(ctx, cred)
	if err != nil {
		return nil, newError(CodeUnknown, "could not read the provider profile", err)
	}

	account, err := p.accounts.FindOrCreateFromOAuth(ctx, info)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return nil, newError(CodeEmailInUse, "email already in use", err)
		}
		return nil, newError(CodeUnknown, "could not sign in", err)
	}

	return p.establish(ctx, account)
}

func accountIdentity(a *models.Account) *Identity {
	id := &Identity{
		UID:         a.ID.String(),
		DisplayName: a.Name,
		Email:       a.Email,
		Provider:    a.Provider,
		Role:        a.Role,
	}
	if a.PhotoURL != nil {
		id.PhotoURL = *a.PhotoURL
	}
	return id
}

func (p *LocalProvider) issue(ctx context.Context, account *models.Account) (*localSession, error) {
	pair, err := p.issuer.GenerateTokenPair(account)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	expires := time.Now().Add(p.issuer.RefreshExpiry())
	if err := p.tokens.StoreRefreshToken(ctx, account.ID, services.HashToken(pair.RefreshToken), expires); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &localSession{
		account:      account,
		accessToken:  pair.AccessToken,
		refreshToken: pair.RefreshToken,
		expiresAt:    time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second),
	}, nil
}

func (p *LocalProvider) establish(ctx context.Context, account *models.Account) (*Identity, error) {
	sess, err := p.issue(ctx, account)
	if err != nil {
		return nil, newError(CodeUnknown, "could not start session", err)
	}

	if err := p.cache.SaveRefreshToken(ctx, p.Name(), sess.refreshToken); err != nil {
		return nil, newError(CodeUnknown, "could not cache credentials", err)
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	identity := accountIdentity(account)
	p.broadcaster.emit(identity)
	return identity, nil
}

func (p *LocalProvider) UpdateProfile(ctx context.Context, changes ProfileChanges) (*Identity, error) {
	p.mu.Lock()
	sess := p.session
	p.mu.Unlock()
	if sess == nil {
		return nil, ErrNoCurrentUser
	}

	account, err := p.accounts.UpdateProfile(ctx, sess.account.ID, changes.DisplayName, changes.PhotoURL)
	if err != nil {
		return nil, newError(CodeUnknown, "could not update profile", err)
	}

	p.mu.Lock()
	if p.session == sess {
		sess.account = account
	}
	p.mu.Unlock()

	identity := accountIdentity(account)
	p.broadcaster.replace(identity)
	return identity, nil
}

// SignOut revokes the refresh token server-side and always drops the local session, even when
// revocation fails.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.mu.Unlock()

	var errs []error
	if sess != nil {
		if err := p.tokens.RevokeRefreshToken(ctx, services.HashToken(sess.refreshToken)); err != nil {
			errs = append(errs, fmt.Errorf("failed to revoke refresh token: %w", err))
		}
	}
	if err := p.cache.ClearRefreshToken(ctx, p.Name()); err != nil {
		errs = append(errs, fmt.Errorf("failed to clear refresh token: %w", err))
	}

	p.broadcaster.emit(nil)
	return errors.Join(errs...)
}

func (p *LocalProvider) Token(ctx context.Context, forceRefresh bool) (string, error) {
	p.mu.Lock()
	sess := p.session
	p.mu.Unlock()

	if sess == nil {
		return "", ErrNoCurrentUser
	}
	if !forceRefresh && time.Until(sess.expiresAt) > tokenExpiryMargin {
		return sess.accessToken, nil
	}

	rotated, err := p.rotate(ctx, sess.refreshToken)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	if p.session == sess {
		p.session = rotated
	}
	p.mu.Unlock()

	if err := p.cache.SaveRefreshToken(ctx, p.Name(), rotated.refreshToken); err != nil {
		p.logger.Warn("failed to cache rotated refresh token", zap.Error(err))
	}
	return rotated.accessToken, nil
}

// rotate exchanges a refresh token for a new pair. The account is re-read so the new access
// token carries the current role.
func (p *LocalProvider) rotate(ctx context.Context, refreshToken string) (*localSession, error) {
	accountID, err := p.issuer.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, newError(CodeNoCurrentUser, "session expired", err)
	}

	hash := services.HashToken(refreshToken)
	storedID, err := p.tokens.ValidateRefreshToken(ctx, hash)
	if err != nil || storedID != accountID {
		return nil, newError(CodeNoCurrentUser, "session revoked", err)
	}

	if err := p.tokens.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, newError(CodeUnknown, "could not rotate session", err)
	}

	account, err := p.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, newError(CodeNoCurrentUser, "account no longer exists", err)
	}

	sess, err := p.issue(ctx, account)
	if err != nil {
		return nil, newError(CodeUnknown, "could not rotate session", err)
	}

	claims, err := p.issuer.ValidateAccessToken(sess.accessToken)
	if err != nil || claims.AccountID != account.ID {
		return nil, newError(CodeUnknown, "rotated access token is not valid", err)
	}
	return sess, nil
}

func (p *LocalProvider) Current() *Identity {
	return p.broadcaster.snapshot()
}

func (p *LocalProvider) OnAuthStateChanged(fn func(*Identity)) func() {
	return p.broadcaster.subscribe(fn)
}

func (p *LocalProvider) Restore(ctx context.Context) error {
	refreshToken, err := p.cache.LoadRefreshToken(ctx, p.Name())
	if err != nil {
		p.broadcaster.emit(nil)
		return fmt.Errorf("failed to load refresh token: %w", err)
	}
	if refreshToken == "" {
		p.broadcaster.emit(nil)
		return nil
	}

	sess, err := p.rotate(ctx, refreshToken)
	if err != nil {
		if clearErr := p.cache.ClearRefreshToken(ctx, p.Name()); clearErr != nil {
			p.logger.Warn("failed to clear stale refresh token", zap.Error(clearErr))
		}
		p.broadcaster.emit(nil)
		return fmt.Errorf("failed to restore session: %w", err)
	}

	if err := p.cache.SaveRefreshToken(ctx, p.Name(), sess.refreshToken); err != nil {
		p.logger.Warn("failed to cache rotated refresh token", zap.Error(err))
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	p.broadcaster.emit(accountIdentity(sess.account))
	return nil
}
