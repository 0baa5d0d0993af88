package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"

	"github.com/zogwei/greys-anatomy/internal/metrics"
	"github.com/zogwei/greys-anatomy/util"
)

// Registry owns every live session.  It only indexes them — the server
// decides when sessions are created and destroyed; destruction
// unregisters automatically.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	nextID   atomic.Int64

	logger  *util.Logger
	metrics *metrics.Collector
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *util.Logger, collector *metrics.Collector) *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		logger:   logger,
		metrics:  collector,
	}
}

// NewSession creates and registers a session for an accepted
// connection.
func (r *Registry) NewSession(pid int, conn net.Conn, charset encoding.Encoding, charsetName string) *Session {
	s := &Session{
		id:        r.nextID.Add(1),
		token:     uuid.New(),
		pid:       pid,
		conn:      conn,
		charset:   charset,
		charsetNm: charsetName,
		createdAt: time.Now(),
	}
	s.metrics = r.metrics
	s.onDestroy = r.remove

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	r.metrics.SessionCreated()
	r.logger.Verbose("%s created, client=%s charset=%s", s, s.RemoteAddr(), charsetName)
	return s
}

// Get looks a session up by id.
func (r *Registry) Get(id int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Clean destroys every live session.  Called during unbind and from
// the shutdown hook.
func (r *Registry) Clean() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Destroy()
	}
	if len(all) > 0 {
		r.logger.Verbose("registry cleaned, %d session(s) destroyed", len(all))
	}
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.id)
	r.mu.Unlock()

	r.metrics.SessionDestroyed()
	r.logger.Verbose("%s destroyed", s)
}
