package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/contesthub/contesthub/internal/identity"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/oauth"
	"github.com/contesthub/contesthub/internal/storage"
	"go.uber.org/zap"
)

// Phase tells whether the user in a Snapshot has been confirmed by the identity provider or
// is the cached copy painted at startup.
type Phase string

const (
	PhaseHydrating Phase = "hydrating"
	PhaseConfirmed Phase = "confirmed"
)

type Snapshot struct {
	User      *models.User `json:"user"`
	IsLoading bool         `json:"isLoading"`
	Phase     Phase        `json:"phase"`
}

// RoleResolver looks up the authoritative role for the holder of token.
type RoleResolver interface {
	ResolveRole(ctx context.Context, token string) (models.Role, error)
}

type Metrics interface {
	ObserveAuth(operation, outcome string)
}

type Options struct {
	Provider identity.Provider
	Record   storage.Store
	Roles    RoleResolver
	Notifier Notifier
	Popups   *oauth.PopupBroker
	Metrics  Metrics
	Logger   *zap.Logger
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
	PhotoURL string
}

const signOutPoll = 20 * time.Millisecond

// Opener shows the consent page of a started popup flow to the user.
type Opener func(popup *oauth.Popup) error

// Store is the single source of truth for who is signed in.
type Store struct {
	provider identity.Provider
	record   storage.Store
	roles    RoleResolver
	notifier Notifier
	popups   *oauth.PopupBroker
	metrics  Metrics
	logger   *zap.Logger

	// op serializes the user-triggered operations.
	op sync.Mutex

	mu        sync.Mutex
	user      *models.User
	loading   bool
	phase     Phase
	epoch     uint64
	listeners map[int]func(Snapshot)
	nextID    int
	loaded    sync.Once
}

// NewStore builds the Store and paints the cached user from the Persisted Record, if any.
// The Store stays loading until FinishLoading is called.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	s := &Store{
		provider:  opts.Provider,
		record:    opts.Record,
		roles:     opts.Roles,
		notifier:  opts.Notifier,
		popups:    opts.Popups,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		loading:   true,
		phase:     PhaseHydrating,
		listeners: make(map[int]func(Snapshot)),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("session")

	rec, err := s.record.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}
	if rec != nil {
		s.user = rec.User.Clone()
	}
	return s, nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{IsLoading: s.loading, Phase: s.phase}
	if s.user != nil {
		snap.User = s.user.Clone()
	}
	return snap
}

// User returns the current user, or nil when nobody is signed in.
func (s *Store) User() *models.User {
	return s.Snapshot().User
}

// Subscribe calls fn with every new Snapshot. fn runs under the Store's lock and must not call
// back into the Store.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) publishLocked() {
	snap := s.snapshotLocked()
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			fn(snap)
		}
	}
}

// FinishLoading ends the startup interval. Only the first call has an effect.
func (s *Store) FinishLoading() {
	s.loaded.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.loading = false
		s.phase = PhaseConfirmed
		s.publishLocked()
	})
}

func (s *Store) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// commit writes token and the user built by derive as one pair and makes that user current,
// unless valid reports that the result is stale. derive runs under the lock.
func (s *Store) commit(ctx context.Context, token string, derive func() models.User, valid func() bool) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if valid != nil && !valid() {
		return nil, false, nil
	}
	user := derive()
	// a write that passed the check runs to completion
	if err := s.record.Save(context.WithoutCancel(ctx), storage.Record{Token: token, User: user}); err != nil {
		return nil, false, fmt.Errorf("failed to persist session: %w", err)
	}
	s.user = user.Clone()
	s.phase = PhaseConfirmed
	s.publishLocked()
	return user.Clone(), true, nil
}

// clear drops the user and the Persisted Record, unless valid reports that the request is stale.
func (s *Store) clear(ctx context.Context, valid func() bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if valid != nil && !valid() {
		return false, nil
	}
	s.user = nil
	s.epoch++
	if !s.loading {
		s.phase = PhaseConfirmed
	}
	err := s.record.Clear(context.WithoutCancel(ctx))
	s.publishLocked()
	if err != nil {
		return true, fmt.Errorf("failed to clear persisted session: %w", err)
	}
	return true, nil
}

// normalize turns a provider identity into the application's User, generating an avatar when
// the provider has no photo.
func normalize(id *identity.Identity, role models.Role) models.User {
	name := id.DisplayName
	photo := id.PhotoURL
	if photo == "" {
		photo = models.FallbackPhoto(name, id.Email)
	}
	return models.User{
		ID:       id.UID,
		Name:     name,
		Email:    id.Email,
		PhotoURL: photo,
		Role:     role,
	}
}

// resolveRole asks the backend first. Falling back to a weaker source is logged because the UI
// may then show a promoted account as a plain user.
func (s *Store) resolveRole(ctx context.Context, token string, id *identity.Identity) models.Role {
	if s.roles != nil {
		role, err := s.roles.ResolveRole(ctx, token)
		if err == nil && role.Valid() {
			return role
		}
		s.logger.Warn("backend role lookup failed", zap.String("uid", id.UID), zap.Error(err))
	}

	if id.Role.Valid() {
		s.logger.Info("using role from identity provider", zap.String("uid", id.UID), zap.String("role", string(id.Role)))
		return id.Role
	}

	s.mu.Lock()
	cached := s.user
	s.mu.Unlock()
	if cached != nil && cached.ID == id.UID && cached.Role.Valid() {
		s.logger.Info("using cached role", zap.String("uid", id.UID), zap.String("role", string(cached.Role)))
		return cached.Role
	}

	s.logger.Warn("no role source available, defaulting to user", zap.String("uid", id.UID))
	return models.RoleUser
}

// establish fetches a token for id, resolves its role and commits the pair.
func (s *Store) establish(ctx context.Context, id *identity.Identity, valid func() bool) (*models.User, bool, error) {
	token, err := s.provider.Token(ctx, false)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get token: %w", err)
	}

	role := s.resolveRole(ctx, token, id)

	return s.commit(ctx, token, func() models.User {
		// profile edits made while the token was in flight win over the notified copy
		if current := s.provider.Current(); current != nil && current.UID == id.UID {
			return normalize(current, role)
		}
		return normalize(id, role)
	}, valid)
}

func (s *Store) notify(n Notification) {
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
}

func (s *Store) observe(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveAuth(operation, outcome)
	}
}

func (s *Store) fail(operation string, e *AuthError) (*models.User, error) {
	s.logger.Info("auth operation failed",
		zap.String("operation", operation),
		zap.String("code", string(e.Code)),
		zap.Error(e.Err))
	s.observe(operation, "failure")
	s.notify(errorNotification(e))
	return nil, e
}

// afterSignIn commits a freshly authenticated identity. If that fails the provider session is
// dropped too, so no half-established session survives.
func (s *Store) afterSignIn(ctx context.Context, operation string, id *identity.Identity, title, fallback string) (*models.User, error) {
	user, _, err := s.establish(ctx, id, nil)
	if err != nil {
		if signOutErr := s.provider.SignOut(ctx); signOutErr != nil {
			s.logger.Warn("failed to roll back provider session", zap.Error(signOutErr))
		}
		return s.fail(operation, &AuthError{Kind: KindUnavailable, Code: identity.CodeUnknown, Title: title, Message: fallback, Err: err})
	}
	return user, nil
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	if !s.op.TryLock() {
		s.observe("signin", "busy")
		return nil, busyError(TitleSignInFailed)
	}
	defer s.op.Unlock()

	id, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return s.fail("signin", credentialError(TitleSignInFailed, MessageSignInFallback, err))
	}

	user, err := s.afterSignIn(ctx, "signin", id, TitleSignInFailed, MessageSignInFallback)
	if err != nil {
		return nil, err
	}

	s.observe("signin", "success")
	s.notify(successNotification(TitleSignedIn, "You have successfully logged in."))
	return user, nil
}

func (s *Store) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	if !s.op.TryLock() {
		s.observe("signup", "busy")
		return nil, busyError(TitleSignUpFailed)
	}
	defer s.op.Unlock()

	id, err := s.provider.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		return s.fail("signup", credentialError(TitleSignUpFailed, MessageSignUpFallback, err))
	}

	changes := identity.ProfileChanges{DisplayName: &in.Name}
	if in.PhotoURL != "" {
		changes.PhotoURL = &in.PhotoURL
	}
	if updated, err := s.provider.UpdateProfile(ctx, changes); err != nil {
		// the account exists and is signed in; it keeps the provider's profile
		s.logger.Warn("failed to set profile on new account", zap.String("uid", id.UID), zap.Error(err))
	} else {
		id = updated
	}

	user, err := s.afterSignIn(ctx, "signup", id, TitleSignUpFailed, MessageSignUpFallback)
	if err != nil {
		return nil, err
	}

	s.observe("signup", "success")
	s.notify(successNotification(TitleSignedUp, "Welcome to ContestHub!"))
	return user, nil
}

// SignInWithOAuth runs the popup flow: open shows the consent page, then the call waits for the
// popup to resolve. An abandoned popup fails the call instead of hanging it.
func (s *Store) SignInWithOAuth(ctx context.Context, open Opener) (*models.User, error) {
	if !s.op.TryLock() {
		s.observe("oauth", "busy")
		return nil, busyError(TitleOAuthFailed)
	}
	defer s.op.Unlock()

	if s.popups == nil {
		return s.fail("oauth", &AuthError{
			Kind:    KindUnavailable,
			Code:    identity.CodeUnknown,
			Title:   TitleOAuthFailed,
			Message: "Google sign-in is not configured",
		})
	}

	popup, err := s.popups.Begin()
	if err != nil {
		return s.fail("oauth", oauthError(err))
	}
	if open != nil {
		if err := open(popup); err != nil {
			s.popups.Cancel(popup.State)
			return s.fail("oauth", oauthError(fmt.Errorf("%w: %v", oauth.ErrPopupClosed, err)))
		}
	}

	cred, err := s.popups.Wait(ctx, popup)
	if err != nil {
		return s.fail("oauth", oauthError(err))
	}

	id, err := s.provider.SignInWithOAuth(ctx, cred)
	if err != nil {
		return s.fail("oauth", oauthError(err))
	}

	user, err := s.afterSignIn(ctx, "oauth", id, TitleOAuthFailed, MessageSignInFallback)
	if err != nil {
		return nil, err
	}

	s.observe("oauth", "success")
	s.notify(successNotification(TitleSignedIn, "You have successfully logged in with Google."))
	return user, nil
}

// SignOut always ends the local session. A pending popup is abandoned first so it cannot hold
// the operation lock; provider errors are logged, never returned.
func (s *Store) SignOut(ctx context.Context) {
	if s.acquireForSignOut(ctx) {
		defer s.op.Unlock()
	}

	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn("identity provider sign-out failed, clearing local session anyway", zap.Error(err))
	}

	if _, err := s.clear(ctx, nil); err != nil {
		s.logger.Error("failed to clear persisted session", zap.Error(err))
	}

	s.observe("signout", "success")
	s.notify(successNotification(TitleSignedOut, "You have been logged out successfully."))
}

// acquireForSignOut waits for the operation in flight, abandoning pending popups so an open
// consent page cannot stall it. It gives up when ctx ends; sign-out proceeds either way.
func (s *Store) acquireForSignOut(ctx context.Context) bool {
	ticker := time.NewTicker(signOutPoll)
	defer ticker.Stop()
	for {
		if s.popups != nil {
			s.popups.CancelAll()
		}
		if s.op.TryLock() {
			return true
		}
		select {
		case <-ctx.Done():
			s.logger.Warn("signing out without waiting for the operation in flight")
			return false
		case <-ticker.C:
		}
	}
}

func (s *Store) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	if !s.op.TryLock() {
		s.observe("profile", "busy")
		return nil, busyError(TitleUpdateFailed)
	}
	defer s.op.Unlock()

	if s.User() == nil {
		return s.fail("profile", &AuthError{
			Kind:    KindSession,
			Code:    identity.CodeNoCurrentUser,
			Title:   TitleUpdateFailed,
			Message: MessageNoUser,
		})
	}

	if _, err := s.provider.UpdateProfile(ctx, identity.ProfileChanges{
		DisplayName: update.Name,
		PhotoURL:    update.PhotoURL,
	}); err != nil {
		msg := MessageUpdateFallback
		if identity.CodeOf(err) == identity.CodeNoCurrentUser {
			msg = MessageNoUser
		}
		return s.fail("profile", &AuthError{
			Kind:    KindSession,
			Code:    identity.CodeOf(err),
			Title:   TitleUpdateFailed,
			Message: msg,
			Err:     err,
		})
	}

	token, err := s.record.Token(ctx)
	if err != nil || token == "" {
		token, err = s.provider.Token(ctx, false)
	}
	if err != nil {
		return s.fail("profile", &AuthError{Kind: KindUnavailable, Code: identity.CodeOf(err), Title: TitleUpdateFailed, Message: MessageUpdateFallback, Err: err})
	}

	var merged models.User
	_, err = s.commitWith(ctx, token, func(current *models.User) (models.User, bool) {
		if current == nil {
			return models.User{}, false
		}
		merged = current.Merge(update)
		return merged, true
	})
	if err != nil {
		return s.fail("profile", &AuthError{Kind: KindUnavailable, Code: identity.CodeUnknown, Title: TitleUpdateFailed, Message: MessageUpdateFallback, Err: err})
	}
	if merged.ID == "" {
		return s.fail("profile", &AuthError{Kind: KindSession, Code: identity.CodeNoCurrentUser, Title: TitleUpdateFailed, Message: MessageNoUser})
	}

	s.observe("profile", "success")
	s.notify(successNotification(TitleProfileUpdate, "Your profile has been updated successfully."))
	return &merged, nil
}

// commitWith derives the new user from the current one under the lock, so a concurrent sign-out
// cannot be overwritten by a stale merge.
func (s *Store) commitWith(ctx context.Context, token string, derive func(current *models.User) (models.User, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := derive(s.user)
	if !ok {
		return false, nil
	}
	if err := s.record.Save(context.WithoutCancel(ctx), storage.Record{Token: token, User: user}); err != nil {
		return false, fmt.Errorf("failed to persist session: %w", err)
	}
	s.user = user.Clone()
	s.publishLocked()
	return true, nil
}

// IsAuthError reports whether err is an AuthError of the given kind.
func IsAuthError(err error, kind Kind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}
