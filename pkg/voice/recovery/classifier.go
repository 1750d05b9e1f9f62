package recovery

import (
	"errors"

	"voicepilot-be/pkg/embedding"
	"voicepilot-be/pkg/llm"
	"voicepilot-be/pkg/speech"
)

// Classify maps a raw error from any collaborator or internal check onto the
// taxonomy. Unrecognized errors are internal: they terminate rather than
// loop a broken session.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindInternalError
	case errors.Is(err, embedding.ErrRateLimited), errors.Is(err, llm.ErrRateLimited):
		return KindApiRateLimited
	case errors.Is(err, embedding.ErrQuotaExceeded), errors.Is(err, llm.ErrQuotaExceeded):
		return KindApiQuotaExceeded
	case errors.Is(err, embedding.ErrUnavailable):
		return KindEmbeddingUnavailable
	case errors.Is(err, llm.ErrUnavailable):
		return KindCompletionUnavailable
	case errors.Is(err, speech.ErrTTSFailed):
		return KindTtsFailed
	default:
		return KindInternalError
	}
}
