package services

import (
	"sort"
	"sync"
)

// LockSet serialises operations per aggregate id so concurrent
// mutations of the same cart or order are applied one at a time. The
// cart and order services must share one set: placement reads, prices,
// and deletes a cart under its cart id, and a cart mutation racing it
// through a separate set could re-persist lines already frozen into an
// order. Mutexes are retained for the life of the process, which is
// fine for the in-memory deployment this engine targets.
type LockSet struct {
	locks sync.Map
}

// NewLockSet returns an empty lock set.
func NewLockSet() *LockSet {
	return &LockSet{}
}

// lock acquires the mutex for key and returns its release func.
func (k *LockSet) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// lockAll acquires the mutexes for every key in a deterministic order so
// two overlapping multi-cart operations cannot deadlock. Duplicate keys
// are locked once.
func (k *LockSet) lockAll(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var unlocks []func()
	var last string
	for i, key := range sorted {
		if i > 0 && key == last {
			continue
		}
		unlocks = append(unlocks, k.lock(key))
		last = key
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
