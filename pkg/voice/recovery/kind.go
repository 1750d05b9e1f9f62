package recovery

// Kind is the fixed taxonomy every failure in the voice pipeline maps onto.
type Kind string

const (
	KindSttFailed             Kind = "STT_FAILED"
	KindAudioInvalid          Kind = "AUDIO_INVALID"
	KindAudioTooShort         Kind = "AUDIO_TOO_SHORT"
	KindTtsFailed             Kind = "TTS_FAILED"
	KindSpeakerIdFailed       Kind = "SPEAKER_ID_FAILED"
	KindTurnNotAllowed        Kind = "TURN_NOT_ALLOWED"
	KindCommandNotRecognized  Kind = "COMMAND_NOT_RECOGNIZED"
	KindRagSearchFailed       Kind = "RAG_SEARCH_FAILED"
	KindRagNoResults          Kind = "RAG_NO_RESULTS"
	KindSessionExpired        Kind = "SESSION_EXPIRED"
	KindSessionNotFound       Kind = "SESSION_NOT_FOUND"
	KindApiRateLimited        Kind = "API_RATE_LIMITED"
	KindApiQuotaExceeded      Kind = "API_QUOTA_EXCEEDED"
	KindEmbeddingUnavailable  Kind = "EMBEDDING_UNAVAILABLE"
	KindCompletionUnavailable Kind = "COMPLETION_UNAVAILABLE"
	KindInternalError         Kind = "INTERNAL_ERROR"
)

// Kinds lists the full taxonomy; policy tables are checked against it so a
// new kind without a policy entry fails tests instead of falling through.
var Kinds = []Kind{
	KindSttFailed,
	KindAudioInvalid,
	KindAudioTooShort,
	KindTtsFailed,
	KindSpeakerIdFailed,
	KindTurnNotAllowed,
	KindCommandNotRecognized,
	KindRagSearchFailed,
	KindRagNoResults,
	KindSessionExpired,
	KindSessionNotFound,
	KindApiRateLimited,
	KindApiQuotaExceeded,
	KindEmbeddingUnavailable,
	KindCompletionUnavailable,
	KindInternalError,
}

// Recoverable reports whether the session can continue after this kind.
func (k Kind) Recoverable() bool {
	switch k {
	case KindSessionExpired, KindSessionNotFound, KindInternalError:
		return false
	default:
		return true
	}
}

// ImmediateRetryAllowed is false for rate-limit and quota kinds: those need
// an explicit backoff interval, not another attempt right away.
func (k Kind) ImmediateRetryAllowed() bool {
	switch k {
	case KindApiRateLimited, KindApiQuotaExceeded:
		return false
	default:
		return true
	}
}

func (k Kind) String() string {
	return string(k)
}
