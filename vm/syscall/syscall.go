// Package syscall implements the VM's SYSCALL subsystem: dispatch by
// integer call id, plus the resource registries backing file
// descriptors, sockets, epoll, synchronization primitives, threads,
// processes, and the process environment.
//
// Grounded on gvm/vm/devices.go's HardwareDevice registry pattern
// (DeviceBaseInfo, a response bus, per-device goroutines for blocking
// work) — generalized from "16 fixed hardware device slots" to "one
// open integer id space per resource kind."
package syscall

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Call ids. Grouped the way gvm/vm/bytecode.go groups its opcode
// ranges — by subsystem, with room between groups for growth.
const (
	CallFsOpen  = 100
	CallFsRead  = 101
	CallFsWrite = 102
	CallFsClose = 103
	CallFsDup   = 104
	CallFsDup2  = 105

	CallEnvGet      = 200
	CallEnvSet      = 201
	CallEnvSnapshot = 202

	CallThreadSpawn = 300
	CallThreadJoin  = 301

	CallSemCreate  = 400
	CallSemAcquire = 401
	CallSemRelease = 402

	CallMutexCreate = 500
	CallMutexLock   = 501
	CallMutexUnlock = 502

	// Present in the dispatch table but intentionally unimplemented —
	// SPEC_FULL.md §E documents these as total-but-stubbed so an
	// unrecognized-but-reserved id traps with a distinct, documented
	// error instead of ErrUnknownCall.
	CallFsUnlink = 106
	CallFsFstat  = 107
)

// ErrUnknownCall is returned for a call id the dispatch table has no
// entry for at all (neither implemented nor reserved-stub).
var ErrUnknownCall = fmt.Errorf("syscall: unknown call id")

// ErrNotImplemented is returned for a reserved-but-stubbed call id.
var ErrNotImplemented = fmt.Errorf("syscall: call recognized but not implemented")

// Table is the engine's live syscall subsystem: one instance per
// running program, owning every resource registry plus the dispatch
// table itself.
type Table struct {
	mu sync.Mutex

	Files     *FDTable
	Sockets   *SocketRegistry
	Epoll     *EpollRegistry
	Mutexes   *MutexRegistry
	Conds     *CondRegistry
	RWLocks   *RWLockRegistry
	Sems      *SemaphoreRegistry
	Threads   *ThreadRegistry
	Processes *ProcessRegistry
	Env       *EnvOverlay

	group *errgroup.Group
}

// NewTable creates a syscall subsystem with stdin/stdout/stderr
// preallocated to fd 0/1/2 and an empty environment overlay.
func NewTable() *Table {
	t := &Table{
		Files:     NewFDTable(),
		Sockets:   NewSocketRegistry(),
		Epoll:     NewEpollRegistry(),
		Mutexes:   NewMutexRegistry(),
		Conds:     NewCondRegistry(),
		RWLocks:   NewRWLockRegistry(),
		Sems:      NewSemaphoreRegistry(),
		Threads:   NewThreadRegistry(),
		Processes: NewProcessRegistry(),
		Env:       NewEnvOverlay(),
		group:     &errgroup.Group{},
	}
	return t
}

// Dispatch routes a SYSCALL instruction's call id and raw argument
// words to the owning registry. args/results are left generic ([]int64)
// since the VM's operand stack already reduced every Value to its
// underlying numeric/string-table form by the time a SYSCALL fires;
// string arguments travel as fd-table-registered handles or, for a
// literal path/string-shaped argument, as an index into strs.
func (t *Table) Dispatch(callID int64, args []int64, strs []string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch callID {
	case CallFsOpen:
		path := argStr(strs, 0)
		return int64(t.Files.Open(path)), nil
	case CallFsRead:
		return t.Files.Read(int(args[0]))
	case CallFsWrite:
		data := argStr(strs, 0)
		return t.Files.Write(int(args[0]), data)
	case CallFsClose:
		return 0, t.Files.Close(int(args[0]))
	case CallFsDup:
		return int64(t.Files.Dup(int(args[0]))), nil
	case CallFsDup2:
		return int64(t.Files.Dup2(int(args[0]), int(args[1]))), nil

	case CallEnvGet:
		v, ok := t.Env.Get(argStr(strs, 0))
		if !ok {
			return -1, nil
		}
		return int64(t.Files.internStr(v)), nil
	case CallEnvSet:
		t.Env.Set(argStr(strs, 0), argStr(strs, 1))
		return 0, nil
	case CallEnvSnapshot:
		_ = t.Env.Snapshot()
		return 0, nil

	case CallThreadSpawn:
		id := t.Threads.Spawn(t.group, func() error { return nil })
		return int64(id), nil
	case CallThreadJoin:
		return 0, t.Threads.Join(int(args[0]))

	case CallSemCreate:
		if args[0] < 0 {
			return -1, fmt.Errorf("syscall: semaphore init must be >= 0")
		}
		return int64(t.Sems.Create(int(args[0]))), nil
	case CallSemAcquire:
		return 0, t.Sems.Acquire(int(args[0]))
	case CallSemRelease:
		return 0, t.Sems.Release(int(args[0]))

	case CallMutexCreate:
		return int64(t.Mutexes.Create()), nil
	case CallMutexLock:
		return 0, t.Mutexes.Lock(int(args[0]))
	case CallMutexUnlock:
		return 0, t.Mutexes.Unlock(int(args[0]))

	case CallFsUnlink, CallFsFstat:
		return -1, ErrNotImplemented

	default:
		return -1, ErrUnknownCall
	}
}

func argStr(strs []string, i int) string {
	if i < len(strs) {
		return strs[i]
	}
	return ""
}

// RequestID mints a fresh uuid.UUID identity for a pending blocking
// interaction, the role gvm/vm/devices.go's InteractionID counter plays
// there. No registry in this package calls it; each registry keys its
// entries by its own int id.
func RequestID() uuid.UUID { return uuid.New() }
