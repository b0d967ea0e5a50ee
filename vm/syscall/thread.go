package syscall

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// threadEntry is a worker plus the slot its result lands in once the
// worker completes; Join blocks on done and then removes the entry,
// mirroring gvm/vm/devices.go's InteractionID response-then-consume
// lifecycle.
type threadEntry struct {
	done   chan struct{}
	err    error
	result *int64
}

// ThreadRegistry models cooperative worker threads: Spawn starts a
// goroutine under the shared errgroup.Group, and an error returned by a
// worker is reported by Join. A panic in a worker is not recovered.
type ThreadRegistry struct {
	mu      sync.Mutex
	threads map[int]*threadEntry
	next    int
}

func NewThreadRegistry() *ThreadRegistry {
	return &ThreadRegistry{threads: make(map[int]*threadEntry), next: 1}
}

// Spawn runs work on its own goroutine under group, returning the new
// thread's id immediately.
func (r *ThreadRegistry) Spawn(group *errgroup.Group, work func() error) int {
	r.mu.Lock()
	id := r.next
	r.next++
	entry := &threadEntry{done: make(chan struct{})}
	r.threads[id] = entry
	r.mu.Unlock()

	group.Go(func() error {
		err := work()
		entry.err = err
		close(entry.done)
		return err
	})
	return id
}

// Join blocks until id's worker completes, then removes its entry.
func (r *ThreadRegistry) Join(id int) error {
	r.mu.Lock()
	entry, ok := r.threads[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("syscall: join on unknown thread %d", id)
	}
	<-entry.done
	r.mu.Lock()
	delete(r.threads, id)
	r.mu.Unlock()
	return entry.err
}

// SetResult records a worker's return value ahead of Join picking it
// up; id must still be registered (i.e. Join has not already run).
func (r *ThreadRegistry) SetResult(id int, value int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.threads[id]
	if !ok {
		return fmt.Errorf("syscall: set result on unknown thread %d", id)
	}
	entry.result = &value
	return nil
}

// processEntry mirrors threadEntry for host-visible child processes;
// kept distinct from ThreadRegistry since a process additionally
// carries an exit code and an environment snapshot at spawn time.
type processEntry struct {
	done     chan struct{}
	exitCode int
	env      map[string]string
}

// ProcessRegistry models spawned child processes. A real exec.Cmd
// launch is out of scope for the syscall surface here — processes run
// as in-engine goroutines the same way ThreadRegistry's threads do,
// differing only in carrying their own environment snapshot.
type ProcessRegistry struct {
	mu        sync.Mutex
	processes map[int]*processEntry
	next      int
}

func NewProcessRegistry() *ProcessRegistry {
	return &ProcessRegistry{processes: make(map[int]*processEntry), next: 1}
}

// Spawn starts work with its own snapshot of env, returning the new
// process's id immediately.
func (r *ProcessRegistry) Spawn(group *errgroup.Group, env map[string]string, work func() (int, error)) int {
	r.mu.Lock()
	id := r.next
	r.next++
	entry := &processEntry{done: make(chan struct{}), env: env}
	r.processes[id] = entry
	r.mu.Unlock()

	group.Go(func() error {
		code, err := work()
		entry.exitCode = code
		close(entry.done)
		return err
	})
	return id
}

// Wait blocks until id's process exits, returning its exit code.
func (r *ProcessRegistry) Wait(id int) (int, error) {
	r.mu.Lock()
	entry, ok := r.processes[id]
	r.mu.Unlock()
	if !ok {
		return -1, fmt.Errorf("syscall: wait on unknown process %d", id)
	}
	<-entry.done
	r.mu.Lock()
	delete(r.processes, id)
	r.mu.Unlock()
	return entry.exitCode, nil
}
