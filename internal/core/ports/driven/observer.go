package driven

import "time"

// Observer receives operation telemetry. Services accept a nil Observer.
type Observer interface {
	// IngestFinished is called once per ingestion attempt.
	IngestFinished(status string, chunks int, elapsed time.Duration)

	// DeleteFinished is called once per deletion attempt.
	DeleteFinished(status string, removed int)

	// QueryFinished is called once per answered or failed question.
	QueryFinished(status string, chunks int, retrieval, generation, total time.Duration)
}
