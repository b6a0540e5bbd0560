// Package generation holds what the generation backends share: how a
// request becomes chat messages, and the bounded retry wrapper.
// Provider clients live in the openai, anthropic and ollama sub-packages.
package generation

import (
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Messages renders req as a system message (instructions followed by the
// context) and a user message carrying the question.
func Messages(req driven.GenerationRequest) (system, user string) {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.System))
	if req.Context != "" {
		b.WriteString("\n\nRelevant context:\n")
		b.WriteString(req.Context)
	}
	return b.String(), "Question: " + req.Question
}

// Prompt renders req as one completion prompt for backends without roles.
func Prompt(req driven.GenerationRequest) string {
	system, user := Messages(req)
	return system + "\n\n" + user + "\n\nAnswer:"
}
