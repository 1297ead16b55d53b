package notification

import (
	"encoding/binary"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// sentRegistry remembers recently enqueued reminders so that overlapping runs
// of the same sweep do not notify a slot twice for one scheduled instant.
type sentRegistry struct {
	mu         sync.Mutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[[32]byte]time.Time
}

func newSentRegistry(ttl time.Duration, maxEntries int, now func() time.Time) *sentRegistry {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 65536
	}
	if now == nil {
		now = time.Now
	}
	return &sentRegistry{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[[32]byte]time.Time),
	}
}

func reminderKey(slotID string, scheduledFor time.Time) [32]byte {
	buf := make([]byte, 0, len(slotID)+9)
	buf = append(buf, slotID...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint64(buf, uint64(scheduledFor.UTC().UnixNano()))
	return blake2b.Sum256(buf)
}

// claim records the key and reports whether it was not already present.
func (r *sentRegistry) claim(key [32]byte) bool {
	if r == nil {
		return true
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if expiresAt, ok := r.entries[key]; ok && now.Before(expiresAt) {
		return false
	}
	if len(r.entries) >= r.maxEntries {
		r.cleanupLocked(now)
	}
	if len(r.entries) >= r.maxEntries {
		r.evictOneLocked()
	}
	r.entries[key] = now.Add(r.ttl)
	return true
}

// release forgets the key so a later run may retry it.
func (r *sentRegistry) release(key [32]byte) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

func (r *sentRegistry) cleanupLocked(now time.Time) {
	for key, expiresAt := range r.entries {
		if !now.Before(expiresAt) {
			delete(r.entries, key)
		}
	}
}

func (r *sentRegistry) evictOneLocked() {
	for key := range r.entries {
		delete(r.entries, key)
		return
	}
}
