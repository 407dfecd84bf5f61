// Package slots implements the fixed-capacity connection slot pool used by
// the TCP server to bound concurrent handlers.
package slots

import "sync"

// Pool hands out ids in [0, capacity). An id is either free or owned by
// exactly one holder until it is freed.
type Pool struct {
	mu   sync.Mutex
	free []int
	used []bool
}

// New returns a pool with capacity free ids. Lower ids are handed out first.
func New(capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	p := &Pool{
		free: make([]int, 0, capacity),
		used: make([]bool, capacity),
	}
	for id := capacity - 1; id >= 0; id-- {
		p.free = append(p.free, id)
	}
	return p
}

// Get takes a free id. ok is false when the pool is exhausted.
func (p *Pool) Get() (id int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		return -1, false
	}
	id = p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.used[id] = true
	return id, true
}

// Free returns id to the pool. Freeing an id that is out of range or not
// currently owned is a no-op and reports false.
func (p *Pool) Free(id int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id < 0 || id >= len(p.used) || !p.used[id] {
		return false
	}
	p.used[id] = false
	p.free = append(p.free, id)
	return true
}

// Available reports how many ids are free.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Capacity reports the total number of ids.
func (p *Pool) Capacity() int {
	return len(p.used)
}

// InUse reports how many ids are owned.
func (p *Pool) InUse() int {
	return p.Capacity() - p.Available()
}
