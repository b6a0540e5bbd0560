package services

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Generator turns a question and its assembled context into an answer.
type Generator struct {
	backend driven.GenerationBackend
	prompts driven.PromptStore
}

// NewGenerator creates a generator. prompts may be nil, in which case the
// built-in instructions are used.
func NewGenerator(backend driven.GenerationBackend, prompts driven.PromptStore) *Generator {
	return &Generator{backend: backend, prompts: prompts}
}

// Answer asks the backend to answer question from the assembled context alone. When no
// chunks were retrieved the backend is not called and the fixed
// no-information answer is returned. Backend errors are returned as
// ErrGenerationFailure with the cause kept in the chain.
func (g *Generator) Answer(ctx context.Context, question, assembled string, chunks int) (*domain.Generation, error) {
	if chunks == 0 {
		logger.Debug("No chunks retrieved, skipping generation")
		return &domain.Generation{Text: domain.NoInformationAnswer, Skipped: true}, nil
	}
	if g.backend == nil {
		return nil, domain.NewOpError("generate", "", domain.ErrGenerationFailure, domain.ErrInvalidConfiguration)
	}

	text, err := g.backend.Generate(ctx, driven.GenerationRequest{
		System:   g.instructions(),
		Context:  assembled,
		Question: question,
	})
	if err != nil {
		return nil, domain.NewOpError("generate", g.backend.ModelName(), domain.ErrGenerationFailure, err)
	}

	clean, sanitized := SanitizeAnswer(text)
	if sanitized {
		logger.Debug("Stripped decorative symbols from answer")
	}
	return &domain.Generation{Text: clean, Sanitized: sanitized}, nil
}

func (g *Generator) instructions() string {
	if g.prompts == nil {
		return domain.DefaultAnswerSystemPrompt
	}
	prompt, err := g.prompts.Load(driven.PromptAnswerSystem)
	if err != nil || strings.TrimSpace(prompt) == "" {
		if err != nil {
			logger.Warn("Using built-in answer prompt: %v", err)
		}
		return domain.DefaultAnswerSystemPrompt
	}
	return prompt
}

// pictographs are the decorative symbol blocks removed from answers.
// Letters of every script, punctuation and ordinary math symbols are kept.
var pictographs = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1}, // combining keycap
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1}, // misc symbols, dingbats
		{Lo: 0xfe0f, Hi: 0xfe0f, Stride: 1}, // emoji presentation selector
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
	},
}

// SanitizeAnswer strips decorative pictographs from text and reports
// whether anything was removed. It never fails.
func SanitizeAnswer(text string) (string, bool) {
	if !strings.ContainsFunc(text, isPictograph) {
		return text, false
	}
	clean := strings.Map(func(r rune) rune {
		if isPictograph(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(clean), true
}

func isPictograph(r rune) bool {
	return unicode.Is(pictographs, r)
}
