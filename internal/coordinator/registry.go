package coordinator

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// registeredSession is the in-memory handle a live Poll stream is tracked
// under: just enough to cancel it during shutdown, since the Store remains
// the single source of truth for whether a client is connected.
type registeredSession struct {
	cancel context.CancelFunc
}

// SessionRegistry is the in-memory, mutex-guarded map from client id to its
// live session, mirroring the teacher's agentmanager.Manager. It exists
// solely to let the coordinator cancel every open Poll stream during
// graceful shutdown instead of waiting out each stream's own I/O timeout.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*registeredSession
	logger   *zap.Logger
}

func NewSessionRegistry(logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*registeredSession),
		logger:   logger.Named("registry"),
	}
}

// Register tracks clientID's cancel func, replacing the registration of any
// stale prior session with the same id (Store's conditional connect already
// rejects concurrent live sessions, so this path is a race-loser cleanup).
func (r *SessionRegistry) Register(clientID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[clientID] = &registeredSession{cancel: cancel}
	r.logger.Debug("session registered", zap.String("client_id", clientID), zap.Int("total", len(r.sessions)))
}

// Deregister removes whatever registration clientID currently has; it does
// not check that the registration belongs to the calling session.
func (r *SessionRegistry) Deregister(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, clientID)
	r.logger.Debug("session deregistered", zap.String("client_id", clientID), zap.Int("total", len(r.sessions)))
}

// ConnectedClients returns a snapshot of currently registered client ids.
func (r *SessionRegistry) ConnectedClients() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// CancelAll cancels every registered session's context, so every open Poll
// stream unblocks promptly during coordinator shutdown.
func (r *SessionRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.cancel()
		r.logger.Debug("session cancelled on shutdown", zap.String("client_id", id))
	}
}
