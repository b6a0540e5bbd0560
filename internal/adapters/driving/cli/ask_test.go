package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func sampleAnswer() *domain.Answer {
	score := 0.9
	return &domain.Answer{
		Question: "When does it ship?",
		Text:     "It ships nightly.",
		Sources: []domain.SourceRef{
			{DocID: "doc_1", Filename: "guide.md", ChunkIndex: 2, Score: 0.9},
		},
		NumChunks: 1,
		AvgScore:  &score,
		Timings:   domain.Timings{Total: 250 * time.Millisecond},
	}
}

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask <question>", askCmd.Use)
	assert.Equal(t, "generation", askCmd.Annotations[needsAnnotation])
}

func TestAskCmd_WithSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.query.answer = sampleAnswer()

	out, err := execute(t, "ask", "When does it ship?", "--sources", "-k", "3", "--filter", "lang=go")

	require.NoError(t, err)
	assert.Equal(t, 3, ts.query.gotOpts.TopK)
	assert.True(t, ts.query.gotOpts.IncludeSources)
	assert.Equal(t, map[string]string{"lang": "go"}, ts.query.gotOpts.Filter)

	assert.Contains(t, out, "It ships nightly.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] guide.md (chunk 2, score 0.900)")
	assert.Contains(t, out, "1 chunks, avg score 0.900, 250.00 ms")
}

func TestAskCmd_WithoutSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.query.answer = sampleAnswer()

	out, err := execute(t, "ask", "When does it ship?")

	require.NoError(t, err)
	assert.False(t, ts.query.gotOpts.IncludeSources)
	assert.Equal(t, 0, ts.query.gotOpts.TopK)
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_NoInformation(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "Anything?")

	require.NoError(t, err)
	assert.Contains(t, out, domain.NoInformationAnswer)
	assert.Contains(t, out, "avg score N/A")
}

func TestAskCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.query.answer = sampleAnswer()

	out, err := execute(t, "ask", "When does it ship?", "--json")

	require.NoError(t, err)
	assert.True(t, ts.query.gotOpts.IncludeSources)
	assert.Contains(t, out, `"answer": "It ships nightly."`)
	assert.Contains(t, out, `"filename": "guide.md"`)
}

func TestAskCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.query.err = domain.NewOpError("generate", "openai", domain.ErrGenerationFailure, errors.New("boom"))

	_, err := execute(t, "ask", "When?")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask failed")
	assert.ErrorIs(t, err, domain.ErrGenerationFailure)
}

func TestAskCmd_ErrorsWithoutService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	queryService = nil

	err := runAsk(askCmd, []string{"q"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
