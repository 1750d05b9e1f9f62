package recovery

import (
	"log"
)

// Strategy names the user-facing behavior picked for a classified error.
type Strategy string

const (
	StrategyEscalate          Strategy = "ESCALATE"
	StrategyTerminate         Strategy = "TERMINATE"
	StrategyRetryWithFallback Strategy = "RETRY_WITH_FALLBACK"
	StrategyEncourageRetry    Strategy = "ENCOURAGE_RETRY"
	StrategyFallbackToText    Strategy = "FALLBACK_TO_TEXT"
	StrategyContinueGraceful  Strategy = "CONTINUE_GRACEFULLY"
	StrategyExplainAndGuide   Strategy = "EXPLAIN_AND_GUIDE"
	StrategyFallbackToGeneral Strategy = "FALLBACK_TO_GENERAL"
	StrategyWaitAndRetry      Strategy = "WAIT_AND_RETRY"
)

// Action is the concrete recovery step suggested to the client.
type Action string

const (
	ActionRetry                    Action = "retry"
	ActionRetryAudio               Action = "retry_audio"
	ActionRestartSession           Action = "restart_session"
	ActionUseTextMode              Action = "use_text_mode"
	ActionContinueWithoutSpeakerId Action = "continue_without_speaker_id"
	ActionShowHelp                 Action = "show_help"
	ActionWaitAndRetry             Action = "wait_and_retry"
)

// EscalationThreshold is the consecutive count at which any kind escalates.
const EscalationThreshold = 3

// Backoff intervals surfaced explicitly for kinds that forbid immediate retry.
const (
	rateLimitBackoffSeconds = 30
	quotaBackoffSeconds     = 3600
)

// OpContext carries per-operation hints into the decision.
type OpContext struct {
	CriticalOperation bool
}

// Decision is the structured recovery outcome for one classified error.
type Decision struct {
	Kind           Kind     `json:"kind"`
	Strategy       Strategy `json:"strategy"`
	Message        string   `json:"message"`
	Action         Action   `json:"action"`
	Recoverable    bool     `json:"recoverable"`
	ShouldRetry    bool     `json:"should_retry"`
	BackoffSeconds int      `json:"backoff_seconds,omitempty"`
}

type kindDefault struct {
	strategy Strategy
	action   Action
	message  string
}

// kindDefaults holds every kind's default behavior. TestPolicyCoversAllKinds
// keeps it exhaustive against the Kinds list.
var kindDefaults = map[Kind]kindDefault{
	KindSttFailed:             {StrategyEncourageRetry, ActionRetryAudio, "I didn't catch that. Could you say it again?"},
	KindAudioInvalid:          {StrategyEncourageRetry, ActionRetryAudio, "The audio didn't come through clearly. Please try once more."},
	KindAudioTooShort:         {StrategyEncourageRetry, ActionRetryAudio, "That was a little too short for me to understand. Please repeat it."},
	KindTtsFailed:             {StrategyFallbackToText, ActionUseTextMode, "I can't speak right now, so I'll answer in text instead."},
	KindSpeakerIdFailed:       {StrategyContinueGraceful, ActionContinueWithoutSpeakerId, "I couldn't tell who was speaking, but let's keep going."},
	KindTurnNotAllowed:        {StrategyExplainAndGuide, ActionShowHelp, "Someone else is speaking right now. Please wait for your turn."},
	KindCommandNotRecognized:  {StrategyExplainAndGuide, ActionShowHelp, "I didn't recognize that command. Say 'help' to hear what I can do."},
	KindRagSearchFailed:       {StrategyFallbackToGeneral, ActionRetry, "I couldn't search the knowledge base just now, so here's a general answer."},
	KindRagNoResults:          {StrategyFallbackToGeneral, ActionRetry, "I couldn't find anything specific about that, so here's what I know in general."},
	KindSessionExpired:        {StrategyTerminate, ActionRestartSession, "This session has expired. Please start a new one."},
	KindSessionNotFound:       {StrategyTerminate, ActionRestartSession, "I couldn't find that session. Please start a new one."},
	KindApiRateLimited:        {StrategyWaitAndRetry, ActionWaitAndRetry, "I'm getting too many requests at once. Give me a moment and try again."},
	KindApiQuotaExceeded:      {StrategyWaitAndRetry, ActionWaitAndRetry, "The service quota is used up for now. Please try again later."},
	KindEmbeddingUnavailable:  {StrategyFallbackToGeneral, ActionRetry, "Part of my search is offline, so here's a general answer."},
	KindCompletionUnavailable: {StrategyFallbackToGeneral, ActionRetry, "My answer engine hiccuped. Let's try that again."},
	KindInternalError:         {StrategyTerminate, ActionRestartSession, "Something went wrong on my side. Please restart the session."},
}

// strategyMessages are the per-strategy templates used when the strategy
// overrides the kind default (escalation, termination, critical retry).
var strategyMessages = map[Strategy]string{
	StrategyEscalate:          "This keeps failing, so I've flagged it for support. You may want to restart the session.",
	StrategyTerminate:         "I can't recover from this. Please restart the session.",
	StrategyRetryWithFallback: "That didn't work, but it matters, so I'm retrying with a fallback.",
}

// Policy turns a classified error plus session history into a Decision.
type Policy struct {
	tracker *Tracker
	logger  *log.Logger
}

func NewPolicy(tracker *Tracker, logger *log.Logger) *Policy {
	return &Policy{tracker: tracker, logger: logger}
}

// Tracker exposes the per-session error history the policy consults.
func (p *Policy) Tracker() *Tracker {
	return p.tracker
}

// Decide records the error against the session and picks a strategy:
//  1. consecutive count >= EscalationThreshold -> ESCALATE
//  2. non-recoverable kind -> TERMINATE
//  3. critical operation -> RETRY_WITH_FALLBACK
//  4. otherwise the kind's fixed default
func (p *Policy) Decide(sessionID string, kind Kind, opCtx OpContext) Decision {
	count := p.tracker.TrackError(sessionID, kind)
	d := p.build(kind, opCtx, count)
	p.logger.Printf("[RECOVERY] session=%s kind=%s count=%d strategy=%s", sessionID, kind, count, d.Strategy)
	return d
}

// DecideDetached picks a strategy without touching any session's error
// history. Used for failures that belong to no registered session, where
// tracked state would never be cleared.
func (p *Policy) DecideDetached(kind Kind, opCtx OpContext) Decision {
	return p.build(kind, opCtx, 1)
}

func (p *Policy) build(kind Kind, opCtx OpContext, count int) Decision {
	def, ok := kindDefaults[kind]
	if !ok {
		// Unknown kinds should be impossible; treat as internal.
		kind = KindInternalError
		def = kindDefaults[kind]
	}

	d := Decision{
		Kind:        kind,
		Strategy:    def.strategy,
		Message:     def.message,
		Action:      def.action,
		Recoverable: kind.Recoverable(),
	}

	switch {
	case count >= EscalationThreshold:
		d.Strategy = StrategyEscalate
		d.Message = strategyMessages[StrategyEscalate]
		d.Action = ActionRestartSession
	case !kind.Recoverable():
		d.Strategy = StrategyTerminate
		d.Message = strategyMessages[StrategyTerminate]
		d.Action = ActionRestartSession
	case opCtx.CriticalOperation:
		d.Strategy = StrategyRetryWithFallback
		d.Message = strategyMessages[StrategyRetryWithFallback]
		d.Action = ActionRetry
	}

	// Rate-limit and quota kinds carry an explicit backoff instead of an
	// implicit client-side convention.
	switch kind {
	case KindApiRateLimited:
		d.BackoffSeconds = rateLimitBackoffSeconds
	case KindApiQuotaExceeded:
		d.BackoffSeconds = quotaBackoffSeconds
	}

	d.ShouldRetry = kind.Recoverable() && count < EscalationThreshold && kind.ImmediateRetryAllowed()
	return d
}

// SafeDecide wraps Decide so a failure inside the error handler itself can
// never crash the caller; it degrades to a generic fallback decision.
func (p *Policy) SafeDecide(sessionID string, kind Kind, opCtx OpContext) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("[ERROR] recovery policy panicked for session %s: %v", sessionID, r)
			d = Decision{
				Kind:        KindInternalError,
				Strategy:    StrategyTerminate,
				Message:     strategyMessages[StrategyTerminate],
				Action:      ActionRestartSession,
				Recoverable: false,
				ShouldRetry: false,
			}
		}
	}()
	return p.Decide(sessionID, kind, opCtx)
}
