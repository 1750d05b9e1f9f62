package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"voicepilot-be/pkg/voice/recovery"
	"voicepilot-be/pkg/voice/response"
	"voicepilot-be/pkg/voice/session"
	"voicepilot-be/pkg/voice/uiaction"
)

// Result is the full outcome of one processed voice input.
type Result struct {
	Success          bool              `json:"success"`
	ResponseText     string            `json:"response_text,omitempty"`
	ResponseType     string            `json:"response_type"`
	Audio            []byte            `json:"audio,omitempty"`
	Actions          []uiaction.Action `json:"actions,omitempty"`
	ErrorCode        string            `json:"error_code,omitempty"`
	Recoverable      bool              `json:"recoverable,omitempty"`
	RecoveryAction   string            `json:"recovery_action,omitempty"`
	RetryRecommended bool              `json:"retry_recommended,omitempty"`
	BackoffSeconds   int               `json:"backoff_seconds,omitempty"`
	QueuePosition    *int              `json:"queue_position,omitempty"`
}

const helpMessage = "You can ask me anything from your knowledge base, tell me to navigate, click, type or scroll, and say 'pause', 'resume' or 'end session' to control this conversation."

const pausedMessage = "The session is paused. Say 'resume' to continue or 'end session' to finish."

// errorCodeSessionPaused marks inputs refused by the paused gate. It is a
// session-state marker, not an error-history kind, so it is never tracked.
const errorCodeSessionPaused = "SESSION_PAUSED"

// controlCommand is what a transcript resolves to when it is a session
// control phrase rather than a query.
type controlCommand int

const (
	controlNone controlCommand = iota
	controlPause
	controlResume
	controlEnd
	controlHelp
)

var controlPhrases = map[string]controlCommand{
	"pause":            controlPause,
	"pause listening":  controlPause,
	"pause session":    controlPause,
	"resume":           controlResume,
	"resume listening": controlResume,
	"resume session":   controlResume,
	"continue":         controlResume,
	"end session":      controlEnd,
	"stop session":     controlEnd,
	"stop listening":   controlEnd,
	"goodbye":          controlEnd,
	"help":             controlHelp,
	"what can you do":  controlHelp,
}

func parseControl(transcript string) controlCommand {
	normalized := strings.ToLower(strings.TrimSpace(transcript))
	normalized = strings.TrimRight(normalized, ".!?")
	normalized = strings.Join(strings.Fields(normalized), " ")
	return controlPhrases[normalized]
}

// ProcessInput runs one transcript through the full pipeline: control phrase
// handling, turn management, retrieval, reply building, UI action extraction
// and speech synthesis. It never returns a Go error; every failure is turned
// into a structured recovery Result.
func (o *Orchestrator) ProcessInput(ctx context.Context, sessionID, speakerID, transcript string) Result {
	h, ok := o.registry.Get(sessionID)
	if !ok {
		// Nothing would ever clear tracker state keyed by an unregistered
		// id, so this failure is decided without recording it.
		return decisionResult(o.policy.DecideDetached(recovery.KindSessionNotFound, recovery.OpContext{}))
	}

	// One operation at a time per session. Concurrent inputs queue here.
	h.Lock()
	defer h.Unlock()

	if h.Ended() {
		return endedResult()
	}

	if strings.TrimSpace(transcript) == "" {
		return o.failure(sessionID, recovery.KindSttFailed, recovery.OpContext{})
	}

	// Control phrases bypass turn management and the paused gate: a paused
	// session still honors pause/resume/end/help, and refuses anything else.
	cmd := parseControl(transcript)
	if cmd != controlNone {
		return o.handleControl(ctx, sessionID, h, cmd)
	}
	if h.State() == session.StatePaused {
		return pausedResult()
	}

	cfg := h.Config()
	if cfg.EnableTurnManagement && speakerID != "" {
		granted, pos := o.turns.Acquire(sessionID, speakerID)
		if !granted {
			res := o.failure(sessionID, recovery.KindTurnNotAllowed, recovery.OpContext{})
			res.QueuePosition = &pos
			return res
		}
		// The turn is held past this input; it moves on when the holder
		// goes silent past the manager's hold limit or the session ends.
	}
	h.SetSpeaker(speakerID)
	h.Touch()

	return o.answer(ctx, sessionID, speakerID, transcript, h)
}

// answer runs the retrieval and reply stages. The session may be ended from
// another goroutine while an external call is in flight; the ENDED state is
// re-checked after every such call and a late result is discarded.
func (o *Orchestrator) answer(ctx context.Context, sessionID, speakerID, transcript string, h *session.Handle) Result {
	snap := h.Snapshot()

	chunks, err := o.engine.Query(ctx, snap.ClientId, transcript, o.topK, o.minSimilarity)
	if h.Ended() {
		return endedResult()
	}
	queryFailed := err != nil

	responseType := response.TypeKnowledgeBase
	var text string
	switch {
	case err != nil:
		kind := recovery.Classify(err)
		decision := o.policy.SafeDecide(sessionID, kind, recovery.OpContext{})
		o.maybeEscalate(ctx, snap, decision)
		if decision.Strategy != recovery.StrategyFallbackToGeneral {
			return decisionResult(decision)
		}
		// Retrieval is down but the conversation can continue ungrounded.
		responseType = response.TypeGeneral
		text, err = o.replies.BuildGeneralResponse(ctx, transcript, snap.History)
	case len(chunks) == 0:
		responseType = response.TypeGeneral
		text, err = o.replies.BuildGeneralResponse(ctx, transcript, snap.History)
	default:
		text, err = o.replies.BuildKnowledgeResponse(ctx, transcript, chunks)
	}
	if h.Ended() {
		return endedResult()
	}
	if err != nil {
		kind := recovery.Classify(err)
		decision := o.policy.SafeDecide(sessionID, kind, recovery.OpContext{CriticalOperation: true})
		o.maybeEscalate(ctx, snap, decision)
		return decisionResult(decision)
	}
	// A fallback reply is not a retrieval success: only the kinds whose
	// operation actually ran clean this turn reset their streaks, so a
	// persistent embedding or search outage still escalates.
	resetKinds := []recovery.Kind{
		recovery.KindSttFailed,
		recovery.KindCompletionUnavailable,
	}
	if !queryFailed {
		resetKinds = append(resetKinds,
			recovery.KindRagSearchFailed,
			recovery.KindEmbeddingUnavailable,
			recovery.KindApiRateLimited,
			recovery.KindApiQuotaExceeded,
		)
	}
	for _, kind := range resetKinds {
		o.policy.Tracker().TrackSuccess(sessionID, kind)
	}

	res := Result{
		Success:      true,
		ResponseText: text,
		ResponseType: responseType,
	}

	res.Actions = uiaction.Extract(text)
	for _, action := range res.Actions {
		if o.notifier != nil {
			o.notifier.Notify(sessionID, "ui_command", action)
		}
	}

	if o.synth != nil {
		cfg := h.Config()
		audio, synthErr := o.synth.Synthesize(ctx, text, cfg.VoiceModel, cfg.Language)
		if h.Ended() {
			return endedResult()
		}
		if synthErr != nil {
			// Degrade to text-only; the turn still succeeds.
			decision := o.policy.SafeDecide(sessionID, recovery.KindTtsFailed, recovery.OpContext{})
			o.maybeEscalate(ctx, snap, decision)
			res.RecoveryAction = string(decision.Action)
		} else {
			res.Audio = audio
			o.policy.Tracker().TrackSuccess(sessionID, recovery.KindTtsFailed)
		}
	}

	if err := h.AppendTurn(session.Turn{
		Id:           uuid.New(),
		SpeakerId:    speakerID,
		Transcript:   transcript,
		ResponseText: text,
		Timestamp:    time.Now(),
	}); err != nil {
		if errors.Is(err, session.ErrSessionEnded) {
			return endedResult()
		}
	}
	return res
}

func (o *Orchestrator) handleControl(ctx context.Context, sessionID string, h *session.Handle, cmd controlCommand) Result {
	switch cmd {
	case controlPause:
		if err := h.SetState(session.StatePaused); err != nil {
			return endedResult()
		}
		o.logger.Printf("[SESSION] paused by voice session=%s", sessionID)
		return controlResult("Okay, pausing. Say 'resume' when you're ready.")
	case controlResume:
		if err := h.SetState(session.StateActive); err != nil {
			return endedResult()
		}
		h.Touch()
		o.logger.Printf("[SESSION] resumed by voice session=%s", sessionID)
		return controlResult("Resuming. What would you like to do?")
	case controlEnd:
		if _, err := o.End(ctx, sessionID); err != nil {
			return endedResult()
		}
		return controlResult("Ending the session. Goodbye!")
	case controlHelp:
		h.Touch()
		return controlResult(helpMessage)
	default:
		return o.failure(sessionID, recovery.KindCommandNotRecognized, recovery.OpContext{})
	}
}

func (o *Orchestrator) failure(sessionID string, kind recovery.Kind, opCtx recovery.OpContext) Result {
	decision := o.policy.SafeDecide(sessionID, kind, opCtx)
	if decision.Strategy == recovery.StrategyEscalate {
		if h, ok := o.registry.Get(sessionID); ok {
			o.maybeEscalate(context.Background(), h.Snapshot(), decision)
		}
	}
	return decisionResult(decision)
}

// maybeEscalate raises the out-of-band alarm once a decision escalates.
func (o *Orchestrator) maybeEscalate(ctx context.Context, snap session.Session, decision recovery.Decision) {
	if decision.Strategy != recovery.StrategyEscalate {
		return
	}
	o.publish(ctx, EventErrorEscalated, map[string]interface{}{
		"session_id": snap.SessionId,
		"client_id":  snap.ClientId,
		"kind":       decision.Kind,
	})
	if o.escalator != nil {
		o.escalator.Escalate(ctx, snap, decision)
	}
}

func decisionResult(d recovery.Decision) Result {
	return Result{
		Success:          false,
		ResponseText:     d.Message,
		ResponseType:     response.TypeError,
		ErrorCode:        string(d.Kind),
		Recoverable:      d.Recoverable,
		RecoveryAction:   string(d.Action),
		RetryRecommended: d.ShouldRetry,
		BackoffSeconds:   d.BackoffSeconds,
	}
}

func controlResult(text string) Result {
	return Result{
		Success:      true,
		ResponseText: text,
		ResponseType: response.TypeControl,
	}
}

func pausedResult() Result {
	return Result{
		Success:      false,
		ResponseText: pausedMessage,
		ResponseType: response.TypeControl,
		ErrorCode:    errorCodeSessionPaused,
		Recoverable:  true,
	}
}

func endedResult() Result {
	return Result{
		Success:        false,
		ResponseText:   "This session has ended. Please start a new one.",
		ResponseType:   response.TypeError,
		ErrorCode:      string(recovery.KindSessionExpired),
		Recoverable:    false,
		RecoveryAction: string(recovery.ActionRestartSession),
	}
}
