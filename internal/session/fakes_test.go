package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/contesthub/contesthub/internal/identity"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/oauth"
	"github.com/contesthub/contesthub/internal/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeProvider is an identity.Provider whose notifications are emitted by the test.
type fakeProvider struct {
	mu        sync.Mutex
	current   *identity.Identity
	listeners map[int]func(*identity.Identity)
	nextID    int

	accounts map[string]*identity.Identity
	tokenFn  func(ctx context.Context, call int) (string, error)
	calls    int

	signInGate chan struct{}
	entered    chan struct{}
	signInErr  error
	createErr  error
	updateErr  error
	oauthErr   error
	signOutErr error

	signOuts int
	updates  int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		listeners: make(map[int]func(*identity.Identity)),
		accounts:  make(map[string]*identity.Identity),
	}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) addAccount(id *identity.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[id.Email] = id
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Identity, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.signInGate != nil {
		select {
		case <-f.signInGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.mu.Lock()
	id, ok := f.accounts[email]
	f.mu.Unlock()
	if !ok {
		return nil, &identity.Error{Code: identity.CodeUserNotFound, Message: "EMAIL_NOT_FOUND"}
	}
	f.setCurrent(id)
	return id.Clone(), nil
}

func (f *fakeProvider) CreateAccount(_ context.Context, email, _ string) (*identity.Identity, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := &identity.Identity{UID: "uid-" + email, Email: email, Provider: "password"}
	f.addAccount(id)
	f.setCurrent(id)
	return id.Clone(), nil
}

func (f *fakeProvider) SignInWithOAuth(_ context.Context, cred *oauth.Credential) (*identity.Identity, error) {
	if f.oauthErr != nil {
		return nil, f.oauthErr
	}
	id := &identity.Identity{UID: "uid-google", DisplayName: "Gina", Email: "gina@example.com", Provider: cred.Provider}
	f.setCurrent(id)
	return id.Clone(), nil
}

func (f *fakeProvider) UpdateProfile(_ context.Context, changes identity.ProfileChanges) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.current == nil {
		return nil, identity.ErrNoCurrentUser
	}
	if changes.DisplayName != nil {
		f.current.DisplayName = *changes.DisplayName
	}
	if changes.PhotoURL != nil {
		f.current.PhotoURL = *changes.PhotoURL
	}
	return f.current.Clone(), nil
}

func (f *fakeProvider) SignOut(context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.current = nil
	err := f.signOutErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.emit(nil)
	return nil
}

func (f *fakeProvider) Token(ctx context.Context, _ bool) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.tokenFn
	current := f.current.Clone()
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, call)
	}
	if current == nil {
		return "", identity.ErrNoCurrentUser
	}
	return "token-" + current.UID, nil
}

func (f *fakeProvider) Current() *identity.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Clone()
}

func (f *fakeProvider) OnAuthStateChanged(fn func(*identity.Identity)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeProvider) Restore(context.Context) error {
	f.emit(f.Current())
	return nil
}

func (f *fakeProvider) setCurrent(id *identity.Identity) {
	f.mu.Lock()
	f.current = id.Clone()
	f.mu.Unlock()
}

// emit notifies synchronously; the Observer does its own work off the caller's goroutine.
func (f *fakeProvider) emit(id *identity.Identity) {
	f.mu.Lock()
	if id != nil {
		f.current = id.Clone()
	}
	fns := make([]func(*identity.Identity), 0, len(f.listeners))
	for i := 0; i < f.nextID; i++ {
		if fn, ok := f.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(id.Clone())
	}
}

func (f *fakeProvider) signOutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOuts
}

type mockRoleResolver struct {
	mock.Mock
}

func (m *mockRoleResolver) ResolveRole(ctx context.Context, token string) (models.Role, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.Role), args.Error(1)
}

type staticRoles map[string]models.Role

func (r staticRoles) ResolveRole(_ context.Context, token string) (models.Role, error) {
	role, ok := r[token]
	if !ok {
		return "", errors.New("profile lookup failed")
	}
	return role, nil
}

type notifications struct {
	mu   sync.Mutex
	list []Notification
}

func (n *notifications) Notify(note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, note)
}

func (n *notifications) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.list...)
}

func (n *notifications) last() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return Notification{}
	}
	return n.list[len(n.list)-1]
}

type authCounts struct {
	mu     sync.Mutex
	counts map[string]int
}

func (a *authCounts) ObserveAuth(operation, outcome string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counts == nil {
		a.counts = make(map[string]int)
	}
	a.counts[operation+"/"+outcome]++
}

func (a *authCounts) get(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[key]
}

type fixture struct {
	store    *Store
	provider *fakeProvider
	record   *storage.MemoryStore
	notes    *notifications
	metrics  *authCounts
}

type fixtureOption func(*Options)

func withRoles(r RoleResolver) fixtureOption {
	return func(o *Options) { o.Roles = r }
}

func withPopups(b *oauth.PopupBroker) fixtureOption {
	return func(o *Options) { o.Popups = b }
}

func setupStore(t *testing.T, record *storage.MemoryStore, opts ...fixtureOption) *fixture {
	t.Helper()
	if record == nil {
		record = storage.NewMemoryStore()
	}
	f := &fixture{
		provider: newFakeProvider(),
		record:   record,
		notes:    &notifications{},
		metrics:  &authCounts{},
	}
	o := Options{
		Provider: f.provider,
		Record:   record,
		Notifier: f.notes,
		Metrics:  f.metrics,
	}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := NewStore(context.Background(), o)
	require.NoError(t, err)
	f.store = store
	return f
}

func (f *fixture) persisted(t *testing.T) *storage.Record {
	t.Helper()
	rec, err := f.record.Load(context.Background())
	require.NoError(t, err)
	return rec
}

func john() *identity.Identity {
	return &identity.Identity{
		UID:         "uid-john",
		DisplayName: "John Doe",
		Email:       "john@example.com",
		PhotoURL:    "https://example.com/john.png",
		Provider:    "password",
	}
}

func jane() *identity.Identity {
	return &identity.Identity{
		UID:         "uid-jane",
		DisplayName: "Jane Roe",
		Email:       "jane@example.com",
		Provider:    "password",
	}
}
