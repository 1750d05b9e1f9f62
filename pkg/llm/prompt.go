package llm

import (
	"fmt"
	"strings"
)

// BuildMessages turns a prompt plus optional context documents into a chat
// history. Providers share this so grounded completions look identical no
// matter which backend serves them.
func BuildMessages(prompt string, contextDocs []string) []Message {
	if len(contextDocs) == 0 {
		return []Message{{Role: "user", Content: prompt}}
	}

	var contextBlock strings.Builder
	for i, doc := range contextDocs {
		contextBlock.WriteString(fmt.Sprintf("[%d] %s\n", i+1, doc))
	}

	system := fmt.Sprintf(`You are a voice assistant answering from the knowledge base excerpts below.
Answer using ONLY the excerpts. Keep the reply short enough to speak aloud.

KNOWLEDGE BASE EXCERPTS:
%s`, contextBlock.String())

	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}
}
