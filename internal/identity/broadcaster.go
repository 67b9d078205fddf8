package identity

import "sync"

type delivery struct {
	targets  []func(*Identity)
	identity *Identity
}

// broadcaster delivers auth state changes to subscribers one at a time, in emission order,
// on its own goroutine. Each change goes to the subscribers registered when it was emitted.
type broadcaster struct {
	mu        sync.Mutex
	listeners map[int]func(*Identity)
	nextID    int
	known     bool
	current   *Identity
	queue     []delivery
	draining  bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{listeners: make(map[int]func(*Identity))}
}

func (b *broadcaster) subscribe(fn func(*Identity)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	if b.known {
		b.enqueueLocked(delivery{targets: []func(*Identity){fn}, identity: b.current.Clone()})
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

func (b *broadcaster) emit(identity *Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.known = true
	b.current = identity.Clone()

	targets := make([]func(*Identity), 0, len(b.listeners))
	for id := 0; id < b.nextID; id++ {
		if fn, ok := b.listeners[id]; ok {
			targets = append(targets, fn)
		}
	}
	b.enqueueLocked(delivery{targets: targets, identity: identity.Clone()})
}

// replace updates the current identity without notifying, for profile edits that do not change
// who is signed in.
func (b *broadcaster) replace(identity *Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil && identity != nil && b.current.UID == identity.UID {
		b.current = identity.Clone()
	}
}

func (b *broadcaster) snapshot() *Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.Clone()
}

func (b *broadcaster) enqueueLocked(d delivery) {
	if len(d.targets) == 0 {
		return
	}
	b.queue = append(b.queue, d)
	if !b.draining {
		b.draining = true
		go b.drain()
	}
}

func (b *broadcaster) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			b.mu.Unlock()
			return
		}
		d := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		for _, fn := range d.targets {
			fn(d.identity.Clone())
		}
	}
}
