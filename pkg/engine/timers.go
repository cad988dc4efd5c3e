package engine

import (
	"sync"
	"time"
)

// timerTable holds the in-memory timers for waiting instances. It mirrors the
// durable TimerRegistration on each instance; after a restart the sweep
// replays anything this table lost.
type timerTable struct {
	mu      sync.Mutex
	lastGen uint64
	timers  map[string]*tableTimer
}

// tableTimer ties a timer to the generation it was armed under. A fired
// callback may race a Schedule that already replaced it; the generation keeps
// the stale callback from removing the replacement.
type tableTimer struct {
	timer *time.Timer
	gen   uint64
}

func newTimerTable() *timerTable {
	return &timerTable{timers: make(map[string]*tableTimer)}
}

// Schedule arms a timer for the instance, replacing any previous one.
func (t *timerTable) Schedule(instanceID string, d time.Duration, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.timers[instanceID]; ok {
		existing.timer.Stop()
	}

	if d < 0 {
		d = 0
	}

	t.lastGen++
	gen := t.lastGen

	t.timers[instanceID] = &tableTimer{
		gen: gen,
		timer: time.AfterFunc(d, func() {
			t.expire(instanceID, gen)
			fire()
		}),
	}
}

// expire removes the entry for a fired timer, but only while it is still the
// current generation for the instance.
func (t *timerTable) expire(instanceID string, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.timers[instanceID]; ok && entry.gen == gen {
		delete(t.timers, instanceID)
	}
}

func (t *timerTable) Cancel(instanceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.timers[instanceID]; ok {
		entry.timer.Stop()
		delete(t.timers, instanceID)
	}
}

func (t *timerTable) Has(instanceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.timers[instanceID]

	return ok
}

func (t *timerTable) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, entry := range t.timers {
		entry.timer.Stop()
		delete(t.timers, id)
	}
}
