package dcc

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/matt0x6f/driftwood/internal/config"
	"github.com/matt0x6f/driftwood/internal/logger"
	"github.com/matt0x6f/driftwood/internal/state"
)

// Manager owns the live side of transfers: sockets, file handles, and
// the goroutines pumping bytes. Transfer metadata stays in the session;
// the manager reports back through the shared event queue.
type Manager struct {
	queue chan<- interface{}

	mu    sync.Mutex
	tasks map[int]*task
}

type task struct {
	cancel chan struct{}
	conn   net.Conn
}

// NewManager builds a manager that emits Progress, Completed, and
// Failed events onto queue.
func NewManager(queue chan<- interface{}) *Manager {
	return &Manager{
		queue: queue,
		tasks: make(map[int]*task),
	}
}

// Accept starts receiving a pending transfer. It resolves the download
// path, moves the transfer to Active, and spawns the receive goroutine.
func (m *Manager) Accept(t *state.DccTransfer, dccCfg config.DCC) (string, error) {
	if t.Status != state.TransferPending {
		return "", fmt.Errorf("transfer #%d is %s, not pending", t.ID, t.Status)
	}

	dir := config.ExpandPath(dccCfg.DownloadDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}
	path, err := SafeDownloadPath(dir, t.Filename)
	if err != nil {
		return "", err
	}

	if !t.Transition(state.TransferActive) {
		return "", fmt.Errorf("transfer #%d can no longer start", t.ID)
	}

	tk := &task{cancel: make(chan struct{})}
	m.mu.Lock()
	m.tasks[t.ID] = tk
	m.mu.Unlock()

	addr := net.JoinHostPort(t.IP.String(), fmt.Sprintf("%d", t.Port))
	logger.Log.Info().Int("transfer", t.ID).Str("addr", addr).Str("path", path).Msg("starting DCC receive")
	go m.receive(t.ID, addr, path, t.Size, tk.cancel)

	return path, nil
}

// Cancel tears down a running transfer. Closing the cancel channel
// first and the socket second lets the receive loop tell a local cancel
// apart from a network failure.
func (m *Manager) Cancel(id int) {
	m.mu.Lock()
	tk, ok := m.tasks[id]
	if ok {
		delete(m.tasks, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	close(tk.cancel)
	if tk.conn != nil {
		tk.conn.Close()
	}
	logger.Log.Info().Int("transfer", id).Msg("cancelled DCC receive")
}

// Shutdown cancels every running transfer.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Cancel(id)
	}
}

// attach records the dialed socket so Cancel can close it.
func (m *Manager) attach(id int, conn net.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tk, ok := m.tasks[id]; ok {
		tk.conn = conn
	}
}

// finish drops the task entry once the receive goroutine is done.
func (m *Manager) finish(id int) {
	m.mu.Lock()
	delete(m.tasks, id)
	m.mu.Unlock()
}
