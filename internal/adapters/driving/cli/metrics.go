package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var metricsJSON bool

var metricsCmd = requires(&cobra.Command{
	Use:   "metrics",
	Short: "Query metrics",
	Long:  `Show or clear the log of answered questions and their latencies.`,
	RunE:  runMetricsReport,
}, "metrics")

var metricsReportCmd = requires(&cobra.Command{
	Use:   "report",
	Short: "Show aggregate statistics and recent queries",
	Args:  cobra.NoArgs,
	RunE:  runMetricsReport,
}, "metrics")

var metricsClearCmd = requires(&cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded query",
	Args:  cobra.NoArgs,
	RunE:  runMetricsClear,
}, "metrics")

func init() {
	metricsCmd.PersistentFlags().BoolVar(&metricsJSON, "json", false, "output the report as JSON")
	metricsCmd.AddCommand(metricsReportCmd)
	metricsCmd.AddCommand(metricsClearCmd)
	rootCmd.AddCommand(metricsCmd)
}

func runMetricsReport(cmd *cobra.Command, _ []string) error {
	if metricsService == nil {
		return errNotConfigured("metrics")
	}

	report, err := metricsService.Report(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to build metrics report: %w", err)
	}

	if metricsJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	renderReport(cmd, report)
	return nil
}

func runMetricsClear(cmd *cobra.Command, _ []string) error {
	if metricsService == nil {
		return errNotConfigured("metrics")
	}
	if err := metricsService.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear metrics: %w", err)
	}
	cmd.Println(okStyle.Render("Metrics cleared."))
	return nil
}

func renderReport(cmd *cobra.Command, report *domain.MetricsReport) {
	cmd.Println(titleStyle.Render("docqa metrics report"))
	cmd.Println(mutedStyle.Render("Generated " + report.GeneratedAt.Local().Format(time.RFC1123)))
	cmd.Println(rule())

	if s := report.SystemStats; s != nil {
		cmd.Println(sectionStyle.Render("Index"))
		cmd.Printf("  Chunks: %d   Documents: %d   Size: %s\n",
			s.TotalChunks, s.UniqueDocuments, formatBytes(s.DBSizeBytes))
		cmd.Println(mutedStyle.Render("  as of " + s.Timestamp.Local().Format(time.RFC1123)))
		cmd.Println()
	}

	agg := report.Aggregated
	cmd.Println(sectionStyle.Render(fmt.Sprintf("Queries (%d)", agg.TotalQueries)))
	if agg.TotalQueries == 0 || agg.TimeMetrics == nil {
		cmd.Println(warnStyle.Render("  " + agg.Message))
		return
	}
	cmd.Printf("  Throughput: %.2f queries/s\n\n", agg.Throughput.QueriesPerSecond)

	cmd.Printf("  %-12s %12s %12s %12s %12s\n", "Latency", "mean", "median", "min", "max")
	timeRow(cmd, "total", agg.TimeMetrics.TotalTime)
	timeRow(cmd, "retrieval", agg.TimeMetrics.RetrievalTime)
	timeRow(cmd, "generation", agg.TimeMetrics.GenerationTime)
	cmd.Println()

	if l := agg.LengthMetrics; l != nil {
		cmd.Printf("  %-12s %12s %12s %12s %12s\n", "Length", "mean", "median", "min", "max")
		numberRow(cmd, "answer", l.AnswerLength, "%.1f")
		numberRow(cmd, "question", l.QuestionLength, "%.1f")
		cmd.Println()
	}

	if r := agg.RetrievalMetrics; r != nil {
		cmd.Printf("  %-12s %12s %12s %12s %12s\n", "Retrieval", "mean", "median", "min", "max")
		numberRow(cmd, "chunks", r.NumChunks, "%.1f")
		numberRow(cmd, "sources", r.NumSources, "%.1f")
		if r.AvgScore != nil {
			numberRow(cmd, "score", *r.AvgScore, "%.3f")
		} else {
			cmd.Printf("  %-12s %12s\n", "score", "N/A")
		}
		cmd.Println()
	}

	if len(report.RecentQueries) > 0 {
		cmd.Println(sectionStyle.Render("Recent queries"))
		for i := len(report.RecentQueries) - 1; i >= 0; i-- {
			q := report.RecentQueries[i]
			cmd.Printf("  %s  %s\n", mutedStyle.Render(q.Timestamp.Local().Format("2006-01-02 15:04:05")), snippet(q.Question))
			cmd.Printf("      %s, %d chunks, score %s\n",
				formatSeconds(q.TotalTime), q.NumChunks, formatScore(q.AvgScore))
		}
	}
}

func timeRow(cmd *cobra.Command, label string, m domain.MetricSummary) {
	cmd.Printf("  %-12s %12s %12s %12s %12s\n", label,
		formatSeconds(m.Mean), formatSeconds(m.Median), formatSeconds(m.Min), formatSeconds(m.Max))
}

func numberRow(cmd *cobra.Command, label string, m domain.MetricSummary, format string) {
	cmd.Printf("  %-12s %12s %12s %12s %12s\n", label,
		fmt.Sprintf(format, m.Mean), fmt.Sprintf(format, m.Median),
		fmt.Sprintf(format, m.Min), fmt.Sprintf(format, m.Max))
}

// formatSeconds renders durations under a second in milliseconds.
func formatSeconds(s float64) string {
	if s < 1 {
		return fmt.Sprintf("%.2f ms", s*1000)
	}
	return fmt.Sprintf("%.3f s", s)
}

func formatScore(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", *score)
}
