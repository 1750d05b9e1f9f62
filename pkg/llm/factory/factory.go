package factory

import (
	"fmt"

	"voicepilot-be/pkg/llm"
	"voicepilot-be/pkg/llm/huggingface"
	"voicepilot-be/pkg/llm/ollama"
)

func NewCompletionProvider(providerType, modelName, baseURL, hfApiKey string) (llm.CompletionProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(hfApiKey, "", modelName), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", providerType)
	}
}
