package turn

import (
	"sync"
	"time"
)

// Manager enforces one-speaker-at-a-time turn taking per session. A speaker
// keeps the turn across inputs once acquired; denied speakers get a queue
// position, and the head of the queue is promoted on release. Turns held
// past maxHold with no re-acquire are considered abandoned and may be taken
// over.
type Manager struct {
	maxHold time.Duration

	mu       sync.Mutex
	sessions map[string]*turnState
}

type turnState struct {
	current string
	since   time.Time
	queue   []string
}

func NewManager(maxHold time.Duration) *Manager {
	if maxHold <= 0 {
		maxHold = 30 * time.Second
	}
	return &Manager{
		maxHold:  maxHold,
		sessions: make(map[string]*turnState),
	}
}

// Acquire tries to claim the turn for speakerID. On denial it returns the
// speaker's 1-based position in the waiting queue.
func (m *Manager) Acquire(sessionID, speakerID string) (ok bool, queuePosition int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, found := m.sessions[sessionID]
	if !found {
		state = &turnState{}
		m.sessions[sessionID] = state
	}

	// Abandoned turn: the holder went silent past the hold limit.
	if state.current != "" && time.Since(state.since) > m.maxHold {
		state.current = ""
	}

	if state.current == "" || state.current == speakerID {
		state.current = speakerID
		state.since = time.Now()
		state.dequeue(speakerID)
		return true, 0
	}

	return false, state.enqueue(speakerID)
}

// Release gives up the turn. The head of the queue, if any, inherits it so
// the next Acquire by that speaker succeeds immediately.
func (m *Manager) Release(sessionID, speakerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, found := m.sessions[sessionID]
	if !found || state.current != speakerID {
		return
	}

	state.current = ""
	if len(state.queue) > 0 {
		state.current = state.queue[0]
		state.since = time.Now()
		state.queue = state.queue[1:]
	}
}

// Current reports the speaker holding the turn, empty when free.
func (m *Manager) Current(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, found := m.sessions[sessionID]; found {
		return state.current
	}
	return ""
}

// Clear drops all turn state for a session. Called on session end.
func (m *Manager) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func (s *turnState) enqueue(speakerID string) int {
	for i, queued := range s.queue {
		if queued == speakerID {
			return i + 1
		}
	}
	s.queue = append(s.queue, speakerID)
	return len(s.queue)
}

func (s *turnState) dequeue(speakerID string) {
	for i, queued := range s.queue {
		if queued == speakerID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}
