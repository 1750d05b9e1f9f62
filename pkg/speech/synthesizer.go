package speech

import (
	"context"
	"errors"
)

// ErrTTSFailed marks any failure of the external text-to-speech backend.
var ErrTTSFailed = errors.New("text-to-speech synthesis failed")

// Synthesizer turns response text into audio bytes. The core treats it as a
// narrow external collaborator; failures classify as TTS errors and the
// recovery policy decides whether to fall back to text-only replies.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, language string) ([]byte, error)
}
