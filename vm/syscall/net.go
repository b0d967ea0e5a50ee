package syscall

import "sync"

// SocketRegistry tracks open sockets by id, drawn from its own counter
// starting at 1 rather than from FDTable, so a socket id can equal a
// file descriptor. It keeps its own connection-state map since a
// socket's lifecycle (connect/listen/accept) differs enough from a
// plain buffer-backed fd to warrant a dedicated struct.
type SocketRegistry struct {
	mu      sync.Mutex
	sockets map[int]*socketEntry
	next    int
}

type socketEntry struct {
	listening bool
	peer      int
}

func NewSocketRegistry() *SocketRegistry {
	return &SocketRegistry{sockets: make(map[int]*socketEntry), next: 1}
}

// Create allocates a new unconnected socket, returning its id.
func (r *SocketRegistry) Create() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.sockets[id] = &socketEntry{}
	return id
}

// Listen marks sockID as a listening (server) socket.
func (r *SocketRegistry) Listen(sockID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sockets[sockID]; ok {
		s.listening = true
	}
}

// Connect pairs two sockets as peers of one another, modeling an
// in-process loopback connection since the VM's syscall surface does
// not reach a real network stack.
func (r *SocketRegistry) Connect(a, b int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sa, ok := r.sockets[a]; ok {
		sa.peer = b
	}
	if sb, ok := r.sockets[b]; ok {
		sb.peer = a
	}
}

// EpollRegistry tracks interest sets (epoll id to a set of fds) for
// readiness polling. It records set membership only; it does not
// detect or report readiness.
type EpollRegistry struct {
	mu    sync.Mutex
	sets  map[int]map[int]bool
	next  int
}

func NewEpollRegistry() *EpollRegistry {
	return &EpollRegistry{sets: make(map[int]map[int]bool), next: 1}
}

// Create allocates a new empty interest set, returning its id.
func (r *EpollRegistry) Create() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.sets[id] = make(map[int]bool)
	return id
}

// Add registers fd in epollID's interest set.
func (r *EpollRegistry) Add(epollID, fd int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sets[epollID]; ok {
		s[fd] = true
	}
}

// Remove drops fd from epollID's interest set.
func (r *EpollRegistry) Remove(epollID, fd int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sets[epollID]; ok {
		delete(s, fd)
	}
}
