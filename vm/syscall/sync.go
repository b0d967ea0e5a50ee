package syscall

import (
	"fmt"
	"sync"
)

// MutexRegistry is the guest-visible mutex namespace: one native
// sync.Mutex per allocated id. Grounded on gvm/vm/devices.go's pattern
// of one resource struct per registered id, generalized from a fixed
// 16-device array to an open, growable map.
type MutexRegistry struct {
	mu      sync.Mutex
	mutexes map[int]*sync.Mutex
	next    int
}

func NewMutexRegistry() *MutexRegistry {
	return &MutexRegistry{mutexes: make(map[int]*sync.Mutex), next: 1}
}

func (r *MutexRegistry) Create() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.mutexes[id] = &sync.Mutex{}
	return id
}

func (r *MutexRegistry) Lock(id int) error {
	r.mu.Lock()
	m, ok := r.mutexes[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: lock on unknown mutex %d", id)
	}
	m.Lock()
	return nil
}

func (r *MutexRegistry) Unlock(id int) error {
	r.mu.Lock()
	m, ok := r.mutexes[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: unlock on unknown mutex %d", id)
	}
	m.Unlock()
	return nil
}

// CondRegistry is the guest-visible condition-variable namespace, each
// bound at creation to the MutexRegistry entry it waits against — the
// same locking discipline sync.Cond requires of its own L field.
type CondRegistry struct {
	mu    sync.Mutex
	conds map[int]*sync.Cond
	next  int
}

func NewCondRegistry() *CondRegistry {
	return &CondRegistry{conds: make(map[int]*sync.Cond), next: 1}
}

func (r *CondRegistry) Create(locker sync.Locker) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.conds[id] = sync.NewCond(locker)
	return id
}

func (r *CondRegistry) Wait(id int) error {
	r.mu.Lock()
	c, ok := r.conds[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: wait on unknown condvar %d", id)
	}
	c.Wait()
	return nil
}

func (r *CondRegistry) Signal(id int) error {
	r.mu.Lock()
	c, ok := r.conds[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: signal on unknown condvar %d", id)
	}
	c.Signal()
	return nil
}

func (r *CondRegistry) Broadcast(id int) error {
	r.mu.Lock()
	c, ok := r.conds[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: broadcast on unknown condvar %d", id)
	}
	c.Broadcast()
	return nil
}

// RWLockRegistry is the guest-visible reader/writer lock namespace.
type RWLockRegistry struct {
	mu    sync.Mutex
	locks map[int]*sync.RWMutex
	next  int
}

func NewRWLockRegistry() *RWLockRegistry {
	return &RWLockRegistry{locks: make(map[int]*sync.RWMutex), next: 1}
}

func (r *RWLockRegistry) Create() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.locks[id] = &sync.RWMutex{}
	return id
}

func (r *RWLockRegistry) RLock(id int) error {
	r.mu.Lock()
	l, ok := r.locks[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: rlock on unknown rwlock %d", id)
	}
	l.RLock()
	return nil
}

func (r *RWLockRegistry) RUnlock(id int) error {
	r.mu.Lock()
	l, ok := r.locks[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: runlock on unknown rwlock %d", id)
	}
	l.RUnlock()
	return nil
}

func (r *RWLockRegistry) Lock(id int) error {
	r.mu.Lock()
	l, ok := r.locks[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: lock on unknown rwlock %d", id)
	}
	l.Lock()
	return nil
}

func (r *RWLockRegistry) Unlock(id int) error {
	r.mu.Lock()
	l, ok := r.locks[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: unlock on unknown rwlock %d", id)
	}
	l.Unlock()
	return nil
}

// SemaphoreRegistry is the guest-visible counting-semaphore namespace,
// implemented with a buffered channel the way gvm/vm/devices.go uses a
// buffered channel as its nonBlockingChan's backing store.
type SemaphoreRegistry struct {
	mu   sync.Mutex
	sems map[int]chan struct{}
	next int
}

func NewSemaphoreRegistry() *SemaphoreRegistry {
	return &SemaphoreRegistry{sems: make(map[int]chan struct{}), next: 1}
}

// Create allocates a semaphore with the given initial count; init must
// be >= 0, enforced by the caller (Table.Dispatch) before this runs.
func (r *SemaphoreRegistry) Create(init int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	ch := make(chan struct{}, init+1024)
	for i := 0; i < init; i++ {
		ch <- struct{}{}
	}
	r.sems[id] = ch
	return id
}

func (r *SemaphoreRegistry) Acquire(id int) error {
	r.mu.Lock()
	ch, ok := r.sems[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: acquire on unknown semaphore %d", id)
	}
	<-ch
	return nil
}

func (r *SemaphoreRegistry) Release(id int) error {
	r.mu.Lock()
	ch, ok := r.sems[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: release on unknown semaphore %d", id)
	}
	ch <- struct{}{}
	return nil
}
