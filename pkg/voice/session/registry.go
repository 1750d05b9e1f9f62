package session

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrSessionAlreadyExists = errors.New("session id already in use")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionEnded         = errors.New("session has ended")
	ErrSessionPaused        = errors.New("session is paused")
)

// Handle owns one live session. opMu serializes whole operations (one
// processInput at a time per session); mu guards the state for short reads
// and writes, so End can flip the session to ENDED without waiting for an
// in-flight operation's external calls — the operation re-checks Ended()
// after every suspension point and discards its result if set.
type Handle struct {
	opMu sync.Mutex

	mu   sync.RWMutex
	sess *Session
}

// Lock serializes per-session processing. Callers must Unlock.
func (h *Handle) Lock()   { h.opMu.Lock() }
func (h *Handle) Unlock() { h.opMu.Unlock() }

// Snapshot returns a copy of the session safe for reading without the lock.
func (h *Handle) Snapshot() Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap := *h.sess
	snap.History = append([]Turn(nil), h.sess.History...)
	return snap
}

// State reads the current state.
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sess.State
}

// Ended reports whether the session reached its terminal state.
func (h *Handle) Ended() bool {
	return h.State() == StateEnded
}

// ClientId reads the owning client.
func (h *Handle) ClientId() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sess.ClientId
}

// Config reads the session config (immutable after start).
func (h *Handle) Config() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sess.Config
}

// SetState transitions the state machine. Transitions out of ENDED are
// refused: the id must be re-started instead.
func (h *Handle) SetState(s State) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess.State == StateEnded {
		return ErrSessionEnded
	}
	h.sess.State = s
	return nil
}

// SetSpeaker records the current speaker; only meaningful when speaker
// identification is enabled.
func (h *Handle) SetSpeaker(speakerId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess.Config.EnableSpeakerIdentification {
		h.sess.CurrentSpeakerId = speakerId
	}
}

// SetUIContext replaces the latest UI state snapshot from the client.
func (h *Handle) SetUIContext(ctx map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess.UIContext = ctx
}

// UIContext reads the latest UI state snapshot.
func (h *Handle) UIContext() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sess.UIContext
}

// AppendTurn adds to the conversation history and bumps activity. Appending
// to an ended session is refused so late results are discarded, not applied.
func (h *Handle) AppendTurn(t Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess.State == StateEnded {
		return ErrSessionEnded
	}
	h.sess.History = append(h.sess.History, t)
	h.sess.LastActivity = t.Timestamp
	return nil
}

// Touch bumps the activity timestamp.
func (h *Handle) Touch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess.LastActivity = time.Now()
}

// IdleSince reports the last activity timestamp.
func (h *Handle) IdleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sess.LastActivity
}

// Registry owns all live sessions. It is the only way sessions are created
// or removed; there is no global state outside the orchestrator's instance.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Handle),
	}
}

// Create registers a new ACTIVE session. A live duplicate id fails rather
// than overwriting.
func (r *Registry) Create(sessionId, clientId string, cfg Config) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sessionId]; exists {
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	h := &Handle{
		sess: &Session{
			SessionId:    sessionId,
			ClientId:     clientId,
			Config:       cfg,
			State:        StateActive,
			History:      make([]Turn, 0),
			StartedAt:    now,
			LastActivity: now,
		},
	}
	r.sessions[sessionId] = h
	return h, nil
}

// Get finds a live session handle.
func (r *Registry) Get(sessionId string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sessions[sessionId]
	return h, ok
}

// Remove drops a session from the registry, freeing the id for reuse.
func (r *Registry) Remove(sessionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionId)
}

// Handles snapshots all live handles, for the idle sweeper.
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Handle, 0, len(r.sessions))
	for _, h := range r.sessions {
		out = append(out, h)
	}
	return out
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
