package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// session is one realtime subscriber: the upgraded socket, the queue feeding
// it and the liveness timestamp the watchdog inspects.
type session struct {
	peerAddr    string
	userID      string
	queueName   string
	consumerTag string

	conn    *websocket.Conn
	writeMu sync.Mutex

	aliveMu   sync.Mutex
	lastAlive time.Time
}

// send writes one text frame under the session write lock
func (s *session) send(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *session) markAlive() {
	s.aliveMu.Lock()
	s.lastAlive = time.Now()
	s.aliveMu.Unlock()
}

func (s *session) aliveSince() time.Time {
	s.aliveMu.Lock()
	defer s.aliveMu.Unlock()
	return s.lastAlive
}

// registry is the subscriber map, keyed by peer address. The lock is held
// only for map mutation, never across socket or broker I/O.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session)}
}

func (r *registry) add(s *session) {
	r.mu.Lock()
	r.sessions[s.peerAddr] = s
	r.mu.Unlock()
}

func (r *registry) remove(peerAddr string) {
	r.mu.Lock()
	delete(r.sessions, peerAddr)
	r.mu.Unlock()
}

// snapshot copies the current session set so callers iterate without the lock
func (r *registry) snapshot() []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
