package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSynthesizer speaks to an OpenAI-compatible /v1/audio/speech endpoint.
// Works against OpenAI itself or local servers exposing the same shape.
type HTTPSynthesizer struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

var _ Synthesizer = &HTTPSynthesizer{}

func NewHTTPSynthesizer(baseURL, apiKey, model string) *HTTPSynthesizer {
	if model == "" {
		model = "tts-1"
	}
	return &HTTPSynthesizer{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type speechRequest struct {
	Model    string `json:"model"`
	Input    string `json:"input"`
	Voice    string `json:"voice"`
	Language string `json:"language,omitempty"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voice, language string) ([]byte, error) {
	if voice == "" {
		voice = "alloy"
	}

	reqBody := speechRequest{
		Model:    s.Model,
		Input:    text,
		Voice:    voice,
		Language: language,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrTTSFailed, err)
	}

	url := s.BaseURL + "/v1/audio/speech"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrTTSFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.APIKey))
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrTTSFailed, err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTTSFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tts error (status %d): %s", ErrTTSFailed, resp.StatusCode, string(audio))
	}

	return audio, nil
}
