package session

import (
	"context"
	"sync"

	"github.com/contesthub/contesthub/internal/identity"
	"go.uber.org/zap"
)

// Observer keeps the Store in step with the identity provider's auth state notifications.
// Notifications are applied in order; when a newer one arrives, work still in flight for an
// older one is cancelled and its result discarded.
type Observer struct {
	store    *Store
	provider identity.Provider
	logger   *zap.Logger

	mu          sync.Mutex
	ctx         context.Context
	stop        context.CancelFunc
	unsubscribe func()
	generation  uint64
	cancelPrev  context.CancelFunc
	wg          sync.WaitGroup
}

func NewObserver(store *Store, provider identity.Provider, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{
		store:    store,
		provider: provider,
		logger:   logger.Named("observer"),
	}
}

// Start registers the one subscription the Observer holds for its lifetime.
func (o *Observer) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.unsubscribe != nil {
		return
	}
	o.ctx, o.stop = context.WithCancel(ctx)
	o.unsubscribe = o.provider.OnAuthStateChanged(o.handle)
}

// Stop drops the subscription and waits for in-flight work to wind down.
func (o *Observer) Stop() {
	o.mu.Lock()
	if o.unsubscribe == nil {
		o.mu.Unlock()
		return
	}
	o.unsubscribe()
	o.stop()
	o.mu.Unlock()

	o.wg.Wait()
}

func (o *Observer) handle(id *identity.Identity) {
	o.mu.Lock()
	if o.ctx == nil || o.ctx.Err() != nil {
		o.mu.Unlock()
		return
	}
	o.generation++
	gen := o.generation
	if o.cancelPrev != nil {
		o.cancelPrev()
	}
	ctx, cancel := context.WithCancel(o.ctx)
	o.cancelPrev = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	epoch := o.store.currentEpoch()
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.process(ctx, gen, epoch, id)
	}()
}

func (o *Observer) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return gen == o.generation
}

func (o *Observer) process(ctx context.Context, gen, epoch uint64, id *identity.Identity) {
	// valid runs under the Store's lock
	valid := func() bool {
		return ctx.Err() == nil && o.current(gen) && o.store.epoch == epoch
	}

	if id == nil {
		applied, err := o.store.clear(ctx, func() bool { return ctx.Err() == nil && o.current(gen) })
		if err != nil {
			o.logger.Error("failed to clear session", zap.Error(err))
		}
		if applied {
			o.store.FinishLoading()
		}
		return
	}

	_, applied, err := o.store.establish(ctx, id, valid)
	if err != nil {
		if ctx.Err() != nil || !o.current(gen) {
			return
		}
		o.logger.Error("failed to synchronize session, signing out locally",
			zap.String("uid", id.UID), zap.Error(err))
		if _, clearErr := o.store.clear(context.WithoutCancel(ctx), func() bool { return o.current(gen) }); clearErr != nil {
			o.logger.Error("failed to clear session", zap.Error(clearErr))
		}
		o.store.FinishLoading()
		return
	}
	if applied {
		o.store.FinishLoading()
	}
}
