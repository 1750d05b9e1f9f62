package response

import (
	"context"
	"log"

	"voicepilot-be/pkg/llm"
	"voicepilot-be/pkg/retrieval"
	"voicepilot-be/pkg/voice/session"
)

// Response type markers surfaced to the client with every reply.
const (
	TypeKnowledgeBase = "knowledge_base"
	TypeGeneral       = "general"
	TypeControl       = "control"
	TypeError         = "error"
)

// historyWindow caps how many past turns condition the general reply.
const historyWindow = 6

// Builder synthesizes spoken replies. Knowledge-base hits are grounded on
// the retrieved chunks; everything else goes through the plain completion
// path.
type Builder struct {
	completions llm.CompletionProvider
	logger      *log.Logger
}

func NewBuilder(completions llm.CompletionProvider, logger *log.Logger) *Builder {
	return &Builder{
		completions: completions,
		logger:      logger,
	}
}

// BuildKnowledgeResponse answers a query from retrieved chunks ("RAG hit").
func (b *Builder) BuildKnowledgeResponse(ctx context.Context, query string, chunks []retrieval.ScoredChunk) (string, error) {
	docs := make([]string, len(chunks))
	for i, c := range chunks {
		docs[i] = c.Chunk.Content
	}

	b.logger.Printf("[RESPONSE] knowledge path: %d chunks, top score %.3f", len(chunks), chunks[0].Score)
	return b.completions.Complete(ctx, query, docs, llm.WithTemperature(0.4))
}

// BuildGeneralResponse answers without knowledge-base grounding, conditioned
// on the recent conversation history.
func (b *Builder) BuildGeneralResponse(ctx context.Context, query string, history []session.Turn) (string, error) {
	msgs := make([]llm.Message, 0, 2*historyWindow+2)
	msgs = append(msgs, llm.Message{
		Role:    "system",
		Content: "You are a helpful voice assistant. Keep replies short enough to speak aloud.",
	})

	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, turn := range history[start:] {
		msgs = append(msgs, llm.Message{Role: "user", Content: turn.Transcript})
		msgs = append(msgs, llm.Message{Role: "assistant", Content: turn.ResponseText})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: query})

	b.logger.Printf("[RESPONSE] general path: %d history turns", len(history[start:]))
	return b.completions.Chat(ctx, msgs, llm.WithTemperature(0.7))
}
