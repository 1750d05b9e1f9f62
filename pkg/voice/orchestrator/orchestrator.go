package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"voicepilot-be/pkg/retrieval"
	"voicepilot-be/pkg/speech"
	"voicepilot-be/pkg/voice/recovery"
	"voicepilot-be/pkg/voice/response"
	"voicepilot-be/pkg/voice/session"
	"voicepilot-be/pkg/voice/turn"
)

// Lifecycle event types published by the orchestrator.
const (
	EventSessionStarted = "SESSION_STARTED"
	EventSessionEnded   = "SESSION_ENDED"
	EventErrorEscalated = "ERROR_ESCALATED"
)

// Notifier pushes asynchronous UI events to whoever is watching the session
// (the websocket hub in practice). Implementations must not block.
type Notifier interface {
	Notify(sessionID string, eventType string, payload interface{})
}

// Archiver persists a finished session. Archive failures are logged, never
// surfaced to the caller ending the session.
type Archiver interface {
	Archive(ctx context.Context, snap session.Session, errorCounts map[string]int) error
}

// EventPublisher emits lifecycle events onto the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// Escalator is told when an error kind crosses the escalation threshold.
type Escalator interface {
	Escalate(ctx context.Context, snap session.Session, decision recovery.Decision)
}

// Deps are the orchestrator's collaborators. Synth, Notifier, Archiver,
// Events and Escalator may be nil; the orchestrator degrades to text-only
// replies with no side channels.
type Deps struct {
	Registry  *session.Registry
	Turns     *turn.Manager
	Engine    *retrieval.Engine
	Replies   *response.Builder
	Synth     speech.Synthesizer
	Policy    *recovery.Policy
	Notifier  Notifier
	Archiver  Archiver
	Events    EventPublisher
	Escalator Escalator
	Logger    *log.Logger
}

// Config tunes retrieval and housekeeping. Zero values pick the defaults.
type Config struct {
	TopK          int
	MinSimilarity float32
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

const (
	defaultIdleTimeout   = 10 * time.Minute
	defaultSweepInterval = 30 * time.Second
)

// Orchestrator coordinates the full voice pipeline for every live session:
// lifecycle, turn taking, retrieval, reply building, speech synthesis, and
// error recovery. One instance serves all sessions.
type Orchestrator struct {
	registry  *session.Registry
	turns     *turn.Manager
	engine    *retrieval.Engine
	replies   *response.Builder
	synth     speech.Synthesizer
	policy    *recovery.Policy
	notifier  Notifier
	archiver  Archiver
	events    EventPublisher
	escalator Escalator
	logger    *log.Logger

	topK          int
	minSimilarity float32
	idleTimeout   time.Duration
	sweepInterval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = retrieval.DefaultMinSimilarity
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	return &Orchestrator{
		registry:      deps.Registry,
		turns:         deps.Turns,
		engine:        deps.Engine,
		replies:       deps.Replies,
		synth:         deps.Synth,
		policy:        deps.Policy,
		notifier:      deps.Notifier,
		archiver:      deps.Archiver,
		events:        deps.Events,
		escalator:     deps.Escalator,
		logger:        deps.Logger,
		topK:          cfg.TopK,
		minSimilarity: cfg.MinSimilarity,
		idleTimeout:   cfg.IdleTimeout,
		sweepInterval: cfg.SweepInterval,
		stop:          make(chan struct{}),
	}
}

// Start registers a new session and returns its initial snapshot.
func (o *Orchestrator) Start(ctx context.Context, sessionID, clientID string, cfg session.Config) (session.Session, error) {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.ConversationMode == "" {
		cfg.ConversationMode = session.ModeSingleSpeaker
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = o.idleTimeout
	}

	h, err := o.registry.Create(sessionID, clientID, cfg)
	if err != nil {
		return session.Session{}, err
	}

	snap := h.Snapshot()
	o.logger.Printf("[SESSION] started session=%s client=%s mode=%s", sessionID, clientID, cfg.ConversationMode)
	o.publish(ctx, EventSessionStarted, snap)
	return snap, nil
}

// Pause suspends voice processing. Only resume and end commands are honored
// until Resume.
func (o *Orchestrator) Pause(sessionID string) error {
	h, ok := o.registry.Get(sessionID)
	if !ok {
		return session.ErrSessionNotFound
	}
	if err := h.SetState(session.StatePaused); err != nil {
		return err
	}
	o.logger.Printf("[SESSION] paused session=%s", sessionID)
	return nil
}

// Resume reactivates a paused session.
func (o *Orchestrator) Resume(sessionID string) error {
	h, ok := o.registry.Get(sessionID)
	if !ok {
		return session.ErrSessionNotFound
	}
	if err := h.SetState(session.StateActive); err != nil {
		return err
	}
	h.Touch()
	o.logger.Printf("[SESSION] resumed session=%s", sessionID)
	return nil
}

// End terminates the session and returns its final stats. It takes effect
// immediately: an in-flight ProcessInput notices the ENDED state at its next
// check and discards its result. The id becomes reusable right away.
func (o *Orchestrator) End(ctx context.Context, sessionID string) (session.Stats, error) {
	h, ok := o.registry.Get(sessionID)
	if !ok {
		return session.Stats{}, session.ErrSessionNotFound
	}

	// Deliberately not holding opMu here: End must not wait behind an
	// in-flight operation's external calls.
	if err := h.SetState(session.StateEnded); err != nil {
		return session.Stats{}, err
	}

	snap := h.Snapshot()
	errCounts := o.policy.Tracker().Counts(sessionID)
	stats := buildStats(snap, errCounts)

	o.turns.Clear(sessionID)
	o.policy.Tracker().Clear(sessionID)
	o.registry.Remove(sessionID)

	o.logger.Printf("[SESSION] ended session=%s turns=%d duration=%s", sessionID, stats.InteractionCount, stats.Duration)
	o.publish(ctx, EventSessionEnded, stats)

	if o.archiver != nil {
		if err := o.archiver.Archive(ctx, snap, errCounts); err != nil {
			o.logger.Printf("[ERROR] archiving session %s failed: %v", sessionID, err)
		}
	}
	return stats, nil
}

// Stats reports live stats for a session still in the registry.
func (o *Orchestrator) Stats(sessionID string) (session.Stats, error) {
	h, ok := o.registry.Get(sessionID)
	if !ok {
		return session.Stats{}, session.ErrSessionNotFound
	}
	return buildStats(h.Snapshot(), o.policy.Tracker().Counts(sessionID)), nil
}

// UpdateUIContext stores the client's latest UI state snapshot so extracted
// actions can be interpreted against it.
func (o *Orchestrator) UpdateUIContext(sessionID string, uiCtx map[string]interface{}) error {
	h, ok := o.registry.Get(sessionID)
	if !ok {
		return session.ErrSessionNotFound
	}
	h.SetUIContext(uiCtx)
	h.Touch()
	return nil
}

// StartSweeper launches the background loop that ends idle sessions.
func (o *Orchestrator) StartSweeper() {
	go func() {
		ticker := time.NewTicker(o.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-o.stop:
				return
			case <-ticker.C:
				o.sweepIdle()
			}
		}
	}()
}

// Close stops the sweeper. Live sessions are left untouched.
func (o *Orchestrator) Close() {
	o.stopOnce.Do(func() { close(o.stop) })
}

func (o *Orchestrator) sweepIdle() {
	for _, h := range o.registry.Handles() {
		if h.Ended() {
			continue
		}
		timeout := h.Config().IdleTimeout
		if timeout <= 0 {
			timeout = o.idleTimeout
		}
		if time.Since(h.IdleSince()) < timeout {
			continue
		}
		snap := h.Snapshot()
		o.logger.Printf("[SESSION] sweeping idle session=%s idle=%s", snap.SessionId, time.Since(snap.LastActivity))
		if _, err := o.End(context.Background(), snap.SessionId); err != nil {
			o.logger.Printf("[ERROR] ending idle session %s failed: %v", snap.SessionId, err)
		}
	}
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, payload interface{}) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, eventType, payload); err != nil {
		o.logger.Printf("[ERROR] publishing %s failed: %v", eventType, err)
	}
}

func buildStats(snap session.Session, errCounts map[string]int) session.Stats {
	perSpeaker := make(map[string]int)
	for _, t := range snap.History {
		if t.SpeakerId != "" {
			perSpeaker[t.SpeakerId]++
		}
	}
	return session.Stats{
		SessionId:        snap.SessionId,
		ClientId:         snap.ClientId,
		State:            snap.State,
		Duration:         snap.LastActivity.Sub(snap.StartedAt),
		InteractionCount: len(snap.History),
		PerSpeakerCounts: perSpeaker,
		ErrorCounts:      errCounts,
	}
}
