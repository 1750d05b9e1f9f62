package recovery

import (
	"sync"
	"time"
)

// KindState is the per-kind consecutive failure record inside one session.
type KindState struct {
	Consecutive int
	LastSeen    time.Time
}

// Tracker keeps per-session error history. A success of a kind resets that
// kind's consecutive count to zero; ending the session clears everything.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]map[Kind]*KindState
}

func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[string]map[Kind]*KindState),
	}
}

// TrackError increments the consecutive count for kind and returns the new count.
func (t *Tracker) TrackError(sessionID string, kind Kind) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	kinds, ok := t.sessions[sessionID]
	if !ok {
		kinds = make(map[Kind]*KindState)
		t.sessions[sessionID] = kinds
	}

	state, ok := kinds[kind]
	if !ok {
		state = &KindState{}
		kinds[kind] = state
	}

	state.Consecutive++
	state.LastSeen = time.Now()
	return state.Consecutive
}

// TrackSuccess resets the consecutive count for kind.
func (t *Tracker) TrackSuccess(sessionID string, kind Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if kinds, ok := t.sessions[sessionID]; ok {
		if state, ok := kinds[kind]; ok {
			state.Consecutive = 0
		}
	}
}

// Count returns the current consecutive count for kind.
func (t *Tracker) Count(sessionID string, kind Kind) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if kinds, ok := t.sessions[sessionID]; ok {
		if state, ok := kinds[kind]; ok {
			return state.Consecutive
		}
	}
	return 0
}

// Counts snapshots all per-kind counts for a session, keyed by kind name.
// Only kinds that errored at least once appear.
func (t *Tracker) Counts(sessionID string) map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int)
	if kinds, ok := t.sessions[sessionID]; ok {
		for kind, state := range kinds {
			if state.Consecutive > 0 {
				out[kind.String()] = state.Consecutive
			}
		}
	}
	return out
}

// Clear drops all error state for a session. Called on session end.
func (t *Tracker) Clear(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}
