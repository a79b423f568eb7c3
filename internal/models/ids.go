package models

import "sync"

// MaxID is the largest ID a persisted record may keep: the largest integer a
// JSON number holds exactly in browser clients.
const MaxID int64 = 1 << 53

// IDAllocator hands out strictly increasing workout IDs, starting at 1.
// It is safe for concurrent use.
type IDAllocator struct {
	mu   sync.Mutex
	last int64
}

// NewIDAllocator returns an allocator whose first ID is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns an ID greater than every ID issued before it.
func (a *IDAllocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last++
	return a.last
}

// Claim returns id when it is greater than every ID issued so far and not
// above MaxID, and moves the counter up to it. Otherwise a fresh ID is issued
// as by Next.
func (a *IDAllocator) Claim(id int64) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id > a.last && id <= MaxID {
		a.last = id
		return id
	}
	a.last++
	return a.last
}

// Last returns the most recently issued ID, or 0 if none has been issued.
func (a *IDAllocator) Last() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}
