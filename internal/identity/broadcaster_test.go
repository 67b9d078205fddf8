package identity

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []*Identity
}

func (r *recorder) record(id *Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, id)
}

func (r *recorder) uids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, id := range r.got {
		if id == nil {
			out[i] = "<nil>"
		} else {
			out[i] = id.UID
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestBroadcaster_DeliversInOrder(t *testing.T) {
	b := newBroadcaster()
	rec := &recorder{}
	b.subscribe(rec.record)

	b.emit(&Identity{UID: "a"})
	b.emit(nil)
	b.emit(&Identity{UID: "b"})

	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "<nil>", "b"}, rec.uids())
}

func TestBroadcaster_NoReplayBeforeStateKnown(t *testing.T) {
	b := newBroadcaster()
	rec := &recorder{}
	b.subscribe(rec.record)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestBroadcaster_ReplaysCurrentStateToLateSubscriber(t *testing.T) {
	b := newBroadcaster()
	b.emit(&Identity{UID: "a"})

	rec := &recorder{}
	b.subscribe(rec.record)

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "a", rec.uids()[rec.count()-1])
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := newBroadcaster()
	rec := &recorder{}
	unsubscribe := b.subscribe(rec.record)

	b.emit(&Identity{UID: "a"})
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	b.emit(&Identity{UID: "b"})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"a"}, rec.uids())
}

func TestBroadcaster_ReplaceKeepsIdentity(t *testing.T) {
	b := newBroadcaster()
	b.emit(&Identity{UID: "a", DisplayName: "Old"})

	b.replace(&Identity{UID: "a", DisplayName: "New"})
	assert.Equal(t, "New", b.snapshot().DisplayName)

	// a different person is never swapped in silently
	b.replace(&Identity{UID: "z", DisplayName: "Other"})
	assert.Equal(t, "a", b.snapshot().UID)
}

func TestBroadcaster_DeliversCopies(t *testing.T) {
	b := newBroadcaster()
	rec := &recorder{}
	b.subscribe(rec.record)

	id := &Identity{UID: "a", DisplayName: "Jane"}
	b.emit(id)
	id.DisplayName = "mutated"

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Jane", rec.got[0].DisplayName)
}
