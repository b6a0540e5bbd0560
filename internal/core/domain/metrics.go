package domain

import "time"

// RecentQueryLimit is how many of the latest queries a report includes.
const RecentQueryLimit = 10

// QueryRecord holds metrics for one answered question. Records are
// append-only and never modified after they are written.
type QueryRecord struct {
	ID             string      `json:"id"`
	Timestamp      time.Time   `json:"timestamp"`
	Question       string      `json:"question"`
	Answer         string      `json:"answer"`
	AnswerLength   int         `json:"answer_length"`
	QuestionLength int         `json:"question_length"`
	NumSources     int         `json:"num_sources"`
	NumChunks      int         `json:"num_chunks"`
	RetrievalTime  float64     `json:"retrieval_time"`
	GenerationTime float64     `json:"generation_time"`
	TotalTime      float64     `json:"total_time"`
	AvgScore       *float64    `json:"avg_score"`
	Sources        []SourceRef `json:"sources"`
}

// SystemStatsSnapshot is a point-in-time copy of SystemStats.
// Each recomputation replaces the previous one.
type SystemStatsSnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	TotalChunks     int       `json:"total_chunks"`
	UniqueDocuments int       `json:"unique_documents"`
	DBSizeBytes     int64     `json:"db_size_bytes"`
}

// MetricSummary describes one series. Median is the upper-middle element
// of the sorted series for even counts.
type MetricSummary struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// TimeMetrics summarise latencies in seconds.
type TimeMetrics struct {
	TotalTime      MetricSummary `json:"total_time"`
	RetrievalTime  MetricSummary `json:"retrieval_time"`
	GenerationTime MetricSummary `json:"generation_time"`
}

// LengthMetrics summarise answer and question lengths in characters.
type LengthMetrics struct {
	AnswerLength   MetricSummary `json:"answer_length"`
	QuestionLength MetricSummary `json:"question_length"`
}

// RetrievalMetrics summarise retrieval quality. AvgScore is nil when no
// recorded query had a score.
type RetrievalMetrics struct {
	NumChunks  MetricSummary  `json:"num_chunks"`
	NumSources MetricSummary  `json:"num_sources"`
	AvgScore   *MetricSummary `json:"avg_score"`
}

// Throughput is queries per second of cumulative answer time.
type Throughput struct {
	QueriesPerSecond float64 `json:"queries_per_second"`
}

// AggregatedMetrics is computed over every recorded query. With no
// queries only TotalQueries and Message are set.
type AggregatedMetrics struct {
	TotalQueries     int               `json:"total_queries"`
	Message          string            `json:"message,omitempty"`
	TimeMetrics      *TimeMetrics      `json:"time_metrics,omitempty"`
	LengthMetrics    *LengthMetrics    `json:"length_metrics,omitempty"`
	RetrievalMetrics *RetrievalMetrics `json:"retrieval_metrics,omitempty"`
	Throughput       Throughput        `json:"throughput"`
}

// MetricsLog is the persisted metrics state.
type MetricsLog struct {
	Queries     []QueryRecord        `json:"queries"`
	SystemStats *SystemStatsSnapshot `json:"system_stats"`
	Aggregated  *AggregatedMetrics   `json:"aggregated"`
}

// MetricsReport combines the latest snapshot, the aggregate and the most
// recent queries.
type MetricsReport struct {
	GeneratedAt   time.Time            `json:"timestamp"`
	SystemStats   *SystemStatsSnapshot `json:"system_stats"`
	Aggregated    AggregatedMetrics    `json:"query_metrics"`
	RecentQueries []QueryRecord        `json:"recent_queries"`
}
