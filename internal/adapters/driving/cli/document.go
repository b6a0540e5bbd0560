package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsJSON bool

var documentsCmd = requires(&cobra.Command{
	Use:   "documents",
	Short: "List indexed documents",
	Long:  `Lists the documents found in a sample of the index with their chunk counts.`,
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}, "index")

var deleteCmd = requires(&cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document and all its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}, "index")

var statsCmd = requires(&cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long:  `Shows chunk and document counts. The snapshot is also stored in the metrics log.`,
	Args:  cobra.NoArgs,
	RunE:  runStats,
}, "index")

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	docs, err := ingestService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentsJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].DocID)
		cmd.Printf("    File: %s\n", docs[i].Filename)
		cmd.Printf("    Chunks: %d\n", docs[i].ChunkCount)
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	docID := args[0]
	deleted, err := ingestService.DeleteDocument(cmd.Context(), docID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !deleted {
		return fmt.Errorf("document not found: %s", docID)
	}

	cmd.Printf("Deleted document: %s\n", docID)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	stats, err := ingestService.RefreshStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Printf("Chunks:    %d\n", stats.TotalChunks)
	cmd.Printf("Documents: %d\n", stats.UniqueDocuments)
	if stats.DBSizeBytes > 0 {
		cmd.Printf("Size:      %s\n", formatBytes(stats.DBSizeBytes))
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
