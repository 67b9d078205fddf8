package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrPopupClosed  = errors.New("popup closed by user")
	ErrUnknownState = errors.New("invalid or expired state")
)

// Popup is one pending consent flow. It resolves exactly once: with a credential, with a
// provider error, or as abandoned.
type Popup struct {
	State string
	URL   string

	done chan popupResult
	once sync.Once
}

type popupResult struct {
	cred *Credential
	err  error
}

func (p *Popup) resolve(cred *Credential, err error) {
	p.once.Do(func() {
		p.done <- popupResult{cred: cred, err: err}
		close(p.done)
	})
}

// PopupBroker tracks pending popups by their state parameter, so the callback request can
// hand its code to the waiting sign-in.
type PopupBroker struct {
	provider Provider
	timeout  time.Duration

	mu      sync.Mutex
	pending map[string]*Popup
}

func NewPopupBroker(provider Provider, timeout time.Duration) *PopupBroker {
	return &PopupBroker{
		provider: provider,
		timeout:  timeout,
		pending:  make(map[string]*Popup),
	}
}

func (b *PopupBroker) Begin() (*Popup, error) {
	state, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	p := &Popup{
		State: state,
		URL:   b.provider.GetConsentURL(state),
		done:  make(chan popupResult, 1),
	}

	b.mu.Lock()
	b.pending[state] = p
	b.mu.Unlock()

	return p, nil
}

func (b *PopupBroker) take(state string) (*Popup, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[state]
	if ok {
		delete(b.pending, state)
	}
	return p, ok
}

// Complete finishes the popup identified by state. providerErr is the provider's error
// query parameter; a consent refusal counts as abandonment.
func (b *PopupBroker) Complete(ctx context.Context, state, code, providerErr string) error {
	p, ok := b.take(state)
	if !ok {
		return ErrUnknownState
	}

	if providerErr != "" {
		err := fmt.Errorf("%w: %s", ErrPopupClosed, providerErr)
		p.resolve(nil, err)
		return err
	}
	if code == "" {
		err := fmt.Errorf("%w: missing authorization code", ErrPopupClosed)
		p.resolve(nil, err)
		return err
	}

	cred, err := b.provider.Exchange(ctx, code)
	p.resolve(cred, err)
	return err
}

// Cancel abandons a pending popup. It reports whether the state was still pending.
func (b *PopupBroker) Cancel(state string) bool {
	p, ok := b.take(state)
	if ok {
		p.resolve(nil, ErrPopupClosed)
	}
	return ok
}

// CancelAll abandons every pending popup.
func (b *PopupBroker) CancelAll() {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[string]*Popup)
	b.mu.Unlock()

	for _, p := range pending {
		p.resolve(nil, ErrPopupClosed)
	}
}

// Wait blocks until the popup resolves. Timeout and context cancellation resolve it as
// abandoned.
func (b *PopupBroker) Wait(ctx context.Context, p *Popup) (*Credential, error) {
	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case res := <-p.done:
		return res.cred, res.err
	case <-timer.C:
	case <-ctx.Done():
	}

	b.take(p.State)
	p.resolve(nil, ErrPopupClosed)
	res := <-p.done
	return res.cred, res.err
}
