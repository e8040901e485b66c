package schedule

import (
	"fmt"
	"sync"
)

// keyedLocks hands out one mutex per key. Entries are dropped once nobody
// holds or waits for them.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*refLock)}
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// lockAll acquires keys in the given order and returns a function releasing
// them in reverse. Callers pass keys in a globally consistent order.
func (k *keyedLocks) lockAll(keys ...string) func() {
	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		unlocks = append(unlocks, k.lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

func eventKey(id int64) string    { return fmt.Sprintf("event:%d", id) }
func resourceKey(id int64) string { return fmt.Sprintf("resource:%d", id) }

// resourceKeys maps ascending resource ids to lock keys.
func resourceKeys(ids []int64) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = resourceKey(id)
	}
	return keys
}
