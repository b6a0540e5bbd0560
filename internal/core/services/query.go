package services

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService answers questions: retrieve, assemble, generate, record.
type QueryService struct {
	retriever *Retriever
	generator *Generator
	metrics   *MetricsCollector
	observer  driven.Observer

	topK            int
	maxContextChars int
	now             func() time.Time
}

// NewQueryService creates a query service. metrics may be nil, in which
// case nothing is recorded.
func NewQueryService(retriever *Retriever, generator *Generator, metrics *MetricsCollector) *QueryService {
	defaults := domain.DefaultAppSettings().Retrieval
	return &QueryService{
		retriever:       retriever,
		generator:       generator,
		metrics:         metrics,
		topK:            defaults.TopK,
		maxContextChars: defaults.MaxContextChars,
		now:             time.Now,
	}
}

// SetObserver sets the telemetry observer.
func (s *QueryService) SetObserver(o driven.Observer) {
	s.observer = o
}

// SetRetrieval overrides the default top-k and the context bound.
// Non-positive topK is ignored; maxContextChars 0 disables the bound.
func (s *QueryService) SetRetrieval(topK, maxContextChars int) {
	if topK > 0 {
		s.topK = topK
	}
	if maxContextChars >= 0 {
		s.maxContextChars = maxContextChars
	}
}

// Retrieve returns up to k chunks for question, best first.
func (s *QueryService) Retrieve(
	ctx context.Context, question string, k int, filter map[string]string,
) ([]domain.RetrievedChunk, error) {
	return s.retriever.Retrieve(ctx, question, k, filter)
}

// Ask answers question from the indexed documents. Answered questions,
// including the no-information answer, are recorded in the metrics log.
// A generation failure is returned and not recorded.
func (s *QueryService) Ask(ctx context.Context, question string, opts domain.AskOptions) (*domain.Answer, error) {
	logger.Section("Ask")
	logger.Debug("Question: %q", question)

	k := opts.TopK
	if k == 0 {
		k = s.topK
	}

	start := time.Now()

	// Retrieval
	chunks, err := s.retriever.Retrieve(ctx, question, k, opts.Filter)
	retrievalTime := time.Since(start)
	if err != nil {
		s.observeQuery(StatusError, 0, retrievalTime, 0, time.Since(start))
		return nil, err
	}
	logger.Debug("Retrieval: %d chunks in %v", len(chunks), retrievalTime)

	// Generation
	genStart := time.Now()
	assembled := AssembleContext(chunks, s.maxContextChars)
	gen, err := s.generator.Answer(ctx, question, assembled, len(chunks))
	generationTime := time.Since(genStart)
	total := time.Since(start)
	if err != nil {
		logger.Warn("Generation failed: %v", err)
		s.observeQuery(StatusError, len(chunks), retrievalTime, generationTime, total)
		return nil, err
	}

	answer := &domain.Answer{
		Question:  question,
		Text:      gen.Text,
		NumChunks: len(chunks),
		Sanitized: gen.Sanitized,
		AvgScore:  averageScore(chunks),
		Timings: domain.Timings{
			Retrieval:  retrievalTime,
			Generation: generationTime,
			Total:      total,
		},
	}
	if opts.IncludeSources {
		answer.Sources = make([]domain.SourceRef, len(chunks))
		for i, c := range chunks {
			answer.Sources[i] = c.Source()
		}
	}

	s.record(ctx, answer)

	status := StatusOK
	if gen.Skipped {
		status = StatusNoContext
	}
	s.observeQuery(status, len(chunks), retrievalTime, generationTime, total)
	logger.Info("Answered in %v (retrieval %v, generation %v)", total, retrievalTime, generationTime)
	return answer, nil
}

func (s *QueryService) record(ctx context.Context, a *domain.Answer) {
	if s.metrics == nil {
		return
	}
	rec := domain.QueryRecord{
		ID:             uuid.NewString(),
		Timestamp:      s.now().UTC(),
		Question:       a.Question,
		Answer:         a.Text,
		AnswerLength:   utf8.RuneCountInString(a.Text),
		QuestionLength: utf8.RuneCountInString(a.Question),
		NumSources:     len(a.Sources),
		NumChunks:      a.NumChunks,
		RetrievalTime:  a.Timings.Retrieval.Seconds(),
		GenerationTime: a.Timings.Generation.Seconds(),
		TotalTime:      a.Timings.Total.Seconds(),
		AvgScore:       a.AvgScore,
		Sources:        a.Sources,
	}
	if err := s.metrics.Record(ctx, rec); err != nil {
		logger.Warn("Recording query metrics failed: %v", err)
	}
}

func (s *QueryService) observeQuery(status string, chunks int, retrieval, generation, total time.Duration) {
	if s.observer != nil {
		s.observer.QueryFinished(status, chunks, retrieval, generation, total)
	}
}

// averageScore is nil when there are no chunks.
func averageScore(chunks []domain.RetrievedChunk) *float64 {
	if len(chunks) == 0 {
		return nil
	}
	sum := 0.0
	for _, c := range chunks {
		sum += c.Score
	}
	avg := sum / float64(len(chunks))
	return &avg
}
