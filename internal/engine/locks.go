package engine

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockShards = 64

// userLocks serializes work per user. Users hashing to the same shard also
// wait on each other.
type userLocks struct {
	shards [lockShards]sync.Mutex
}

func (l *userLocks) lock(userID string) func() {
	m := &l.shards[xxhash.Sum64String(userID)%lockShards]
	m.Lock()
	return m.Unlock
}

// resets counts Reset calls per user so work that ran outside the lock can
// tell whether the user was cleared in the meantime.
type resets struct {
	mu  sync.Mutex
	gen map[string]uint64
}

func (r *resets) generation(userID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen[userID]
}

func (r *resets) bump(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == nil {
		r.gen = make(map[string]uint64)
	}
	r.gen[userID]++
}
