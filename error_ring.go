package hotplug

import (
	"sync"
	"time"
)

// Fault is a recorded error with the time it was observed.
type Fault struct {
	At  time.Time
	Err error
}

// faultRing is a thread-safe ring buffer of recent faults.
type faultRing struct {
	mu     sync.RWMutex
	faults []Fault
	head   int
	count  int
}

// newFaultRing creates a ring with the given capacity.
// If size is 0, the ring is disabled and every method is a no-op.
func newFaultRing(size int) *faultRing {
	if size <= 0 {
		return nil
	}
	return &faultRing{faults: make([]Fault, size)}
}

func (r *faultRing) push(f Fault) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.faults[r.head] = f
	r.head = (r.head + 1) % len(r.faults)
	if r.count < len(r.faults) {
		r.count++
	}
}

// all returns the recorded faults, oldest first.
func (r *faultRing) all() []Fault {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	size := len(r.faults)
	out := make([]Fault, r.count)
	start := (r.head - r.count + size) % size
	for i := 0; i < r.count; i++ {
		out[i] = r.faults[(start+i)%size]
	}
	return out
}
