package compiler

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

// liveRun is one program execution bound to its own websocket
type liveRun struct {
	id uuid.UUID

	mu   sync.Mutex
	conn *websocket.Conn

	killOnce sync.Once
	killed   chan struct{}

	// started is closed once the init frame is written
	started chan struct{}
}

func newLiveRun(id uuid.UUID) *liveRun {
	return &liveRun{id: id, killed: make(chan struct{}), started: make(chan struct{})}
}

func (r *liveRun) attach(conn *websocket.Conn) {
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
}

func (r *liveRun) kill() {
	r.killOnce.Do(func() { close(r.killed) })
}

func (r *liveRun) markStarted() {
	close(r.started)
}

func (r *liveRun) isStarted() bool {
	select {
	case <-r.started:
		return true
	default:
		return false
	}
}

func (r *liveRun) isKilled() bool {
	select {
	case <-r.killed:
		return true
	default:
		return false
	}
}

// send serializes writes; gorilla connections allow one concurrent writer
func (r *liveRun) send(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return fmt.Errorf("run %s has no connection", r.id)
	}
	_ = r.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return r.conn.WriteJSON(msg)
}

// ConnectionManager tracks the live run of each attempt
type ConnectionManager struct {
	runs   map[string]*liveRun
	mu     sync.RWMutex
	Logger primary.Logger
}

func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		runs:   make(map[string]*liveRun),
		Logger: logger,
	}
}

// Register binds run to owner. An owner runs one program at a time.
func (cm *ConnectionManager) Register(owner string, run *liveRun) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if _, busy := cm.runs[owner]; busy {
		return errs.ErrRunInProgress
	}
	cm.runs[owner] = run
	return nil
}

// Remove unbinds run, leaving a newer run of the same owner in place
func (cm *ConnectionManager) Remove(owner string, run *liveRun) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.runs[owner] == run {
		delete(cm.runs, owner)
	}
}

func (cm *ConnectionManager) Get(owner string) (*liveRun, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	run, ok := cm.runs[owner]
	return run, ok
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.runs)
}
