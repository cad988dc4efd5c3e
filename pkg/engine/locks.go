package engine

import "sync"

// keyedMutex serializes work per key. The engine locks on instance IDs so no
// two advances ever run concurrently for the same instance, and on
// (workflow, lead) pairs during creation.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

// Lock blocks until the key's lock is held and returns the unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()

	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{}
		k.entries[key] = entry
	}

	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()

		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}

		k.mu.Unlock()
	}
}
