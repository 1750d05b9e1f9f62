package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voicepilot-be/pkg/embedding"
)

type JinaProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ embedding.Provider = &JinaProvider{}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewJinaProvider(apiKey string) *JinaProvider {
	return &JinaProvider{
		apiKey:  apiKey,
		baseURL: "https://api.jina.ai/v1/embeddings",
		model:   "jina-embeddings-v2-base-en",
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (p *JinaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	// Jina docs recommend array of inputs. We wrap single text.
	reqBody := embeddingRequest{
		Model: p.model,
		Input: []string{text},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", embedding.ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", embedding.ErrUnavailable, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", embedding.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: jina api status %d: %s", embedding.ErrRateLimited, resp.StatusCode, string(bodyBytes))
	}
	if resp.StatusCode == http.StatusPaymentRequired {
		return nil, fmt.Errorf("%w: jina api status %d: %s", embedding.ErrQuotaExceeded, resp.StatusCode, string(bodyBytes))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: jina api error (status %d): %s", embedding.ErrUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var jinaResp embeddingResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", embedding.ErrUnavailable, err)
	}

	if jinaResp.Error != nil {
		return nil, fmt.Errorf("%w: jina api returned error: %s", embedding.ErrUnavailable, jinaResp.Error.Message)
	}

	if len(jinaResp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embeddings from jina api", embedding.ErrUnavailable)
	}

	// Jina returns 768 dimensions for v2-base-en
	return jinaResp.Data[0].Embedding, nil
}
