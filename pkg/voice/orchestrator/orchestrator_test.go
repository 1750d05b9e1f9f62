package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"voicepilot-be/pkg/blobstore"
	"voicepilot-be/pkg/embedding"
	"voicepilot-be/pkg/llm"
	"voicepilot-be/pkg/retrieval"
	"voicepilot-be/pkg/speech"
	"voicepilot-be/pkg/voice/recovery"
	"voicepilot-be/pkg/voice/response"
	"voicepilot-be/pkg/voice/session"
	"voicepilot-be/pkg/voice/turn"
)

const returnPolicyDoc = "Our return policy allows returns within 30 days of purchase."

// scriptedEmbedder serves pre-baked vectors by normalized text and fails any
// other input with a configurable error.
type scriptedEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *scriptedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[embedding.NormalizeKey(text)]; ok {
		return v, nil
	}
	if s.err != nil {
		return nil, fmt.Errorf("scripted embedder: %w", s.err)
	}
	return nil, fmt.Errorf("scripted embedder: %w", embedding.ErrUnavailable)
}

type stubCompletion struct {
	reply       string
	completeErr error
	chatErr     error
}

func (s *stubCompletion) Complete(_ context.Context, _ string, contextDocs []string, _ ...llm.Option) (string, error) {
	if s.completeErr != nil {
		return "", s.completeErr
	}
	if s.reply != "" {
		return s.reply, nil
	}
	return "Based on your documents: " + strings.Join(contextDocs, " "), nil
}

func (s *stubCompletion) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	if s.chatErr != nil {
		return "", s.chatErr
	}
	if s.reply != "" {
		return s.reply, nil
	}
	return "In general: " + history[len(history)-1].Content, nil
}

type failingSynth struct{}

func (failingSynth) Synthesize(context.Context, string, string, string) ([]byte, error) {
	return nil, fmt.Errorf("backend 500: %w", speech.ErrTTSFailed)
}

type okSynth struct{}

func (okSynth) Synthesize(context.Context, string, string, string) ([]byte, error) {
	return []byte("audio-bytes"), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(sessionID, eventType string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingPublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, eventType)
	return nil
}

func (r *recordingPublisher) has(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.types {
		if t == eventType {
			return true
		}
	}
	return false
}

type recordingEscalator struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingEscalator) Escalate(context.Context, session.Session, recovery.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

type fixture struct {
	orch       *Orchestrator
	engine     *retrieval.Engine
	turns      *turn.Manager
	tracker    *recovery.Tracker
	embedder   *scriptedEmbedder
	completion *stubCompletion
	notifier   *recordingNotifier
	events     *recordingPublisher
	escalator  *recordingEscalator
}

func newFixture(t *testing.T, cfg Config, synth speech.Synthesizer) *fixture {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	blobs, err := blobstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	embedder := &scriptedEmbedder{vectors: map[string][]float32{
		embedding.NormalizeKey(returnPolicyDoc):              {1, 0, 0},
		embedding.NormalizeKey("What is the return policy?"): {1, 0.2, 0},
		embedding.NormalizeKey("How is the weather today?"):  {0, 1, 0},
		embedding.NormalizeKey("Open my settings for me."):   {0, 0, 1},
		embedding.NormalizeKey("Click on the save button."):  {0, 1, 1},
	}}
	cache := embedding.NewCache(embedder)
	store := retrieval.NewStore(blobs, cache, 3, logger)
	engine := retrieval.NewEngine(store, cache, logger)

	completion := &stubCompletion{}
	turns := turn.NewManager(0)
	tracker := recovery.NewTracker()
	notifier := &recordingNotifier{}
	events := &recordingPublisher{}
	escalator := &recordingEscalator{}

	orch := New(Deps{
		Registry:  session.NewRegistry(),
		Turns:     turns,
		Engine:    engine,
		Replies:   response.NewBuilder(completion, logger),
		Synth:     synth,
		Policy:    recovery.NewPolicy(tracker, logger),
		Notifier:  notifier,
		Events:    events,
		Escalator: escalator,
		Logger:    logger,
	}, cfg)
	t.Cleanup(orch.Close)

	return &fixture{
		orch:       orch,
		engine:     engine,
		turns:      turns,
		tracker:    tracker,
		embedder:   embedder,
		completion: completion,
		notifier:   notifier,
		events:     events,
		escalator:  escalator,
	}
}

func (f *fixture) seedKnowledge(t *testing.T) {
	t.Helper()
	_, err := f.engine.Ingest(context.Background(), "client-1", retrieval.Document{
		Id:      "doc-returns",
		Content: returnPolicyDoc,
		Source:  retrieval.SourceManual,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
}

func (f *fixture) startSession(t *testing.T, id string, cfg session.Config) {
	t.Helper()
	if _, err := f.orch.Start(context.Background(), id, "client-1", cfg); err != nil {
		t.Fatalf("start session: %v", err)
	}
}

func TestProcessInputAnswersFromKnowledgeBase(t *testing.T) {
	f := newFixture(t, Config{}, okSynth{})
	f.seedKnowledge(t)
	f.startSession(t, "s1", session.Config{})

	res := f.orch.ProcessInput(context.Background(), "s1", "", "What is the return policy?")

	if !res.Success {
		t.Fatalf("expected success, got error code %s", res.ErrorCode)
	}
	if res.ResponseType != response.TypeKnowledgeBase {
		t.Errorf("response type = %s, want %s", res.ResponseType, response.TypeKnowledgeBase)
	}
	if !strings.Contains(res.ResponseText, "30 days") {
		t.Errorf("response %q does not mention the retrieved policy", res.ResponseText)
	}
	if len(res.Audio) == 0 {
		t.Error("expected synthesized audio")
	}

	stats, err := f.orch.Stats("s1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.InteractionCount != 1 {
		t.Errorf("interaction count = %d, want 1", stats.InteractionCount)
	}
}

func TestProcessInputFallsBackToGeneralWhenNoMatch(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.seedKnowledge(t)
	f.startSession(t, "s1", session.Config{})

	res := f.orch.ProcessInput(context.Background(), "s1", "", "How is the weather today?")

	if !res.Success {
		t.Fatalf("expected success, got error code %s", res.ErrorCode)
	}
	if res.ResponseType != response.TypeGeneral {
		t.Errorf("response type = %s, want %s", res.ResponseType, response.TypeGeneral)
	}
}

func TestProcessInputFallsBackToGeneralWhenEmbeddingDown(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})

	// "unknown transcript" has no scripted vector, so the query embed fails
	// with ErrUnavailable and the reply degrades to the ungrounded path.
	res := f.orch.ProcessInput(context.Background(), "s1", "", "unknown transcript")

	if !res.Success {
		t.Fatalf("expected graceful degradation, got error code %s", res.ErrorCode)
	}
	if res.ResponseType != response.TypeGeneral {
		t.Errorf("response type = %s, want %s", res.ResponseType, response.TypeGeneral)
	}
}

func TestProcessInputRateLimitedCarriesBackoff(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})
	f.embedder.err = embedding.ErrRateLimited

	res := f.orch.ProcessInput(context.Background(), "s1", "", "anything at all")

	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.ErrorCode != string(recovery.KindApiRateLimited) {
		t.Errorf("error code = %s, want %s", res.ErrorCode, recovery.KindApiRateLimited)
	}
	if res.BackoffSeconds != 30 {
		t.Errorf("backoff = %d, want 30", res.BackoffSeconds)
	}
	if res.RetryRecommended {
		t.Error("rate-limited input must not recommend an immediate retry")
	}
}

func TestControlPhrasesDriveLifecycle(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})
	ctx := context.Background()

	res := f.orch.ProcessInput(ctx, "s1", "", "Pause.")
	if !res.Success || res.ResponseType != response.TypeControl {
		t.Fatalf("pause result = %+v", res)
	}

	// Normal input is refused while paused.
	res = f.orch.ProcessInput(ctx, "s1", "", "How is the weather today?")
	if res.Success {
		t.Fatal("paused session must refuse normal input")
	}
	if res.ResponseType != response.TypeControl {
		t.Errorf("paused refusal type = %s, want %s", res.ResponseType, response.TypeControl)
	}

	res = f.orch.ProcessInput(ctx, "s1", "", "resume")
	if !res.Success {
		t.Fatalf("resume refused: %+v", res)
	}

	res = f.orch.ProcessInput(ctx, "s1", "", "end session")
	if !res.Success || res.ResponseType != response.TypeControl {
		t.Fatalf("end result = %+v", res)
	}
	if _, err := f.orch.Stats("s1"); err != session.ErrSessionNotFound {
		t.Errorf("stats after end: err = %v, want ErrSessionNotFound", err)
	}
	if !f.events.has(EventSessionEnded) {
		t.Error("expected SESSION_ENDED event")
	}
}

func TestEndedSessionIdIsReusable(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})
	if _, err := f.orch.End(context.Background(), "s1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	f.startSession(t, "s1", session.Config{})
}

func TestTurnDenialReturnsQueuePosition(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.seedKnowledge(t)
	f.startSession(t, "s1", session.Config{
		EnableSpeakerIdentification: true,
		EnableTurnManagement:        true,
		ConversationMode:            session.ModeMultiSpeaker,
	})

	// Alice holds the turn while Bob speaks.
	if ok, _ := f.turns.Acquire("s1", "alice"); !ok {
		t.Fatal("alice could not take a free turn")
	}

	res := f.orch.ProcessInput(context.Background(), "s1", "bob", "What is the return policy?")
	if res.Success {
		t.Fatal("expected turn denial")
	}
	if res.ErrorCode != string(recovery.KindTurnNotAllowed) {
		t.Errorf("error code = %s, want %s", res.ErrorCode, recovery.KindTurnNotAllowed)
	}
	if res.QueuePosition == nil || *res.QueuePosition != 1 {
		t.Fatalf("queue position = %v, want 1", res.QueuePosition)
	}

	// Once Alice releases, Bob inherited the turn and goes through.
	f.turns.Release("s1", "alice")
	res = f.orch.ProcessInput(context.Background(), "s1", "bob", "What is the return policy?")
	if !res.Success {
		t.Fatalf("bob refused after promotion: %+v", res)
	}
}

func TestRepeatedFailuresEscalate(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})
	f.completion.chatErr = fmt.Errorf("model down: %w", llm.ErrUnavailable)
	ctx := context.Background()

	var res Result
	for i := 0; i < recovery.EscalationThreshold; i++ {
		res = f.orch.ProcessInput(ctx, "s1", "", "How is the weather today?")
		if res.Success {
			t.Fatalf("attempt %d unexpectedly succeeded", i+1)
		}
	}

	if res.ErrorCode != string(recovery.KindCompletionUnavailable) {
		t.Errorf("error code = %s, want %s", res.ErrorCode, recovery.KindCompletionUnavailable)
	}
	if res.RecoveryAction != string(recovery.ActionRestartSession) {
		t.Errorf("recovery action = %s, want %s", res.RecoveryAction, recovery.ActionRestartSession)
	}
	if f.escalator.calls != 1 {
		t.Errorf("escalator calls = %d, want 1", f.escalator.calls)
	}
	if !f.events.has(EventErrorEscalated) {
		t.Error("expected ERROR_ESCALATED event")
	}

	// A success resets the streak; the next failure starts over.
	f.completion.chatErr = nil
	if res = f.orch.ProcessInput(ctx, "s1", "", "How is the weather today?"); !res.Success {
		t.Fatalf("recovery attempt failed: %+v", res)
	}
	f.completion.chatErr = fmt.Errorf("model down: %w", llm.ErrUnavailable)
	res = f.orch.ProcessInput(ctx, "s1", "", "How is the weather today?")
	if res.RecoveryAction == string(recovery.ActionRestartSession) && !res.Recoverable {
		t.Errorf("streak did not reset after success: %+v", res)
	}
}

func TestPersistentRetrievalOutageEscalates(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})
	ctx := context.Background()

	// No scripted vector for this transcript: every query embed fails while
	// the general reply path keeps working. The degraded replies must not
	// reset the embedding streak.
	var res Result
	for i := 0; i < recovery.EscalationThreshold-1; i++ {
		res = f.orch.ProcessInput(ctx, "s1", "", "tell me about shipping")
		if !res.Success || res.ResponseType != response.TypeGeneral {
			t.Fatalf("attempt %d: expected degraded general reply, got %+v", i+1, res)
		}
	}

	res = f.orch.ProcessInput(ctx, "s1", "", "tell me about shipping")
	if res.Success {
		t.Fatal("third consecutive embedding outage must not be papered over")
	}
	if res.ErrorCode != string(recovery.KindEmbeddingUnavailable) {
		t.Errorf("error code = %s, want %s", res.ErrorCode, recovery.KindEmbeddingUnavailable)
	}
	if f.escalator.calls != 1 {
		t.Errorf("escalator calls = %d, want 1", f.escalator.calls)
	}
	if !f.events.has(EventErrorEscalated) {
		t.Error("expected ERROR_ESCALATED event")
	}
}

func TestTurnHeldAcrossInputs(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.seedKnowledge(t)
	f.startSession(t, "s1", session.Config{EnableTurnManagement: true})
	ctx := context.Background()

	res := f.orch.ProcessInput(ctx, "s1", "alice", "What is the return policy?")
	if !res.Success {
		t.Fatalf("alice's first input failed: %+v", res)
	}

	// Alice still holds the turn when Bob speaks on the next input.
	res = f.orch.ProcessInput(ctx, "s1", "bob", "What is the return policy?")
	if res.Success {
		t.Fatal("expected bob to be denied while alice holds the turn")
	}
	if res.ErrorCode != string(recovery.KindTurnNotAllowed) {
		t.Errorf("error code = %s, want %s", res.ErrorCode, recovery.KindTurnNotAllowed)
	}
	if res.QueuePosition == nil || *res.QueuePosition != 1 {
		t.Fatalf("queue position = %v, want 1", res.QueuePosition)
	}

	// The holder keeps speaking freely.
	res = f.orch.ProcessInput(ctx, "s1", "alice", "What is the return policy?")
	if !res.Success {
		t.Fatalf("holder re-acquire failed: %+v", res)
	}
}

func TestPausedSessionHonorsControlPhrases(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})
	ctx := context.Background()

	if res := f.orch.ProcessInput(ctx, "s1", "", "pause"); !res.Success {
		t.Fatalf("pause failed: %+v", res)
	}

	res := f.orch.ProcessInput(ctx, "s1", "", "help")
	if !res.Success || res.ResponseText != helpMessage {
		t.Fatalf("help while paused = %+v", res)
	}

	res = f.orch.ProcessInput(ctx, "s1", "", "How is the weather today?")
	if res.Success {
		t.Fatal("paused session must refuse normal input")
	}
	if res.ErrorCode != errorCodeSessionPaused {
		t.Errorf("error code = %s, want %s", res.ErrorCode, errorCodeSessionPaused)
	}

	if res := f.orch.ProcessInput(ctx, "s1", "", "resume"); !res.Success {
		t.Fatalf("resume failed: %+v", res)
	}
}

func TestUnknownSessionLeavesNoTrackerState(t *testing.T) {
	f := newFixture(t, Config{}, nil)

	for i := 0; i < 5; i++ {
		if res := f.orch.ProcessInput(context.Background(), "ghost", "", "hello"); res.Success {
			t.Fatal("expected failure for unknown session")
		}
	}
	if n := f.tracker.Count("ghost", recovery.KindSessionNotFound); n != 0 {
		t.Errorf("tracker count for unknown session = %d, want 0", n)
	}
}

func TestEmptyTranscriptEncouragesRetry(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})

	res := f.orch.ProcessInput(context.Background(), "s1", "", "   ")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorCode != string(recovery.KindSttFailed) {
		t.Errorf("error code = %s, want %s", res.ErrorCode, recovery.KindSttFailed)
	}
	if !res.RetryRecommended {
		t.Error("empty transcript should recommend a retry")
	}
}

func TestUnknownSessionTerminates(t *testing.T) {
	f := newFixture(t, Config{}, nil)

	res := f.orch.ProcessInput(context.Background(), "nope", "", "hello")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorCode != string(recovery.KindSessionNotFound) {
		t.Errorf("error code = %s, want %s", res.ErrorCode, recovery.KindSessionNotFound)
	}
	if res.Recoverable {
		t.Error("unknown session must be non-recoverable")
	}
}

func TestUIActionsExtractedAndPushed(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})
	f.completion.reply = "Go to settings. Then click on the save button."

	res := f.orch.ProcessInput(context.Background(), "s1", "", "Open my settings for me.")
	if !res.Success {
		t.Fatalf("process failed: %+v", res)
	}
	if len(res.Actions) != 2 {
		t.Fatalf("actions = %v, want navigate + click", res.Actions)
	}
	if res.Actions[0].Action != "navigate" || res.Actions[0].Target != "settings" {
		t.Errorf("first action = %+v", res.Actions[0])
	}
	if res.Actions[1].Action != "click" || res.Actions[1].Target != "save" {
		t.Errorf("second action = %+v", res.Actions[1])
	}

	f.notifier.mu.Lock()
	pushed := len(f.notifier.events)
	f.notifier.mu.Unlock()
	if pushed != 2 {
		t.Errorf("pushed ui events = %d, want 2", pushed)
	}
}

func TestActionsComeFromReplyNotTranscript(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.startSession(t, "s1", session.Config{})
	ctx := context.Background()

	// A command phrased in the transcript carries no actions by itself.
	f.completion.reply = "The save option lives in the File menu."
	res := f.orch.ProcessInput(ctx, "s1", "", "Click on the save button.")
	if !res.Success {
		t.Fatalf("process failed: %+v", res)
	}
	if len(res.Actions) != 0 {
		t.Errorf("actions from transcript = %v, want none", res.Actions)
	}

	// Only what the reply says drives the UI.
	f.completion.reply = "Click on the save button."
	res = f.orch.ProcessInput(ctx, "s1", "", "How is the weather today?")
	if !res.Success {
		t.Fatalf("process failed: %+v", res)
	}
	if len(res.Actions) != 1 || res.Actions[0].Action != "click" || res.Actions[0].Target != "save" {
		t.Errorf("actions from reply = %v, want a click on save", res.Actions)
	}
}

func TestTtsFailureFallsBackToText(t *testing.T) {
	f := newFixture(t, Config{}, failingSynth{})
	f.seedKnowledge(t)
	f.startSession(t, "s1", session.Config{})

	res := f.orch.ProcessInput(context.Background(), "s1", "", "What is the return policy?")
	if !res.Success {
		t.Fatalf("tts failure must not fail the turn: %+v", res)
	}
	if len(res.Audio) != 0 {
		t.Error("expected no audio")
	}
	if res.RecoveryAction != string(recovery.ActionUseTextMode) {
		t.Errorf("recovery action = %s, want %s", res.RecoveryAction, recovery.ActionUseTextMode)
	}
	if !strings.Contains(res.ResponseText, "30 days") {
		t.Errorf("text reply %q lost the answer", res.ResponseText)
	}
}

func TestIdleSweeperEndsStaleSessions(t *testing.T) {
	f := newFixture(t, Config{IdleTimeout: 20 * time.Millisecond, SweepInterval: 5 * time.Millisecond}, nil)
	f.startSession(t, "s1", session.Config{IdleTimeout: 20 * time.Millisecond})
	f.orch.StartSweeper()

	deadline := time.After(2 * time.Second)
	for {
		if _, err := f.orch.Stats("s1"); err == session.ErrSessionNotFound {
			break
		}
		select {
		case <-deadline:
			t.Fatal("idle session was never swept")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !f.events.has(EventSessionEnded) {
		t.Error("expected SESSION_ENDED event from the sweeper")
	}
}
