package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	searchLimit  int
	searchFilter map[string]string
	searchJSON   bool
)

// snippetRunes bounds the chunk text shown per result.
const snippetRunes = 160

var searchCmd = requires(&cobra.Command{
	Use:   "search <query>",
	Short: "Find the chunks most similar to a query",
	Long: `Runs the retrieval step alone: embeds the query and returns the nearest
chunks with their scores (1 - cosine distance). No answer is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}, "index")

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().StringToStringVarP(&searchFilter, "filter", "f", nil, "metadata key=value every result must match")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errNotConfigured("query")
	}

	results, err := queryService.Retrieve(cmd.Context(), args[0], searchLimit, searchFilter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		src := results[i].Source()
		cmd.Printf("  [%d] %s #%d (%.3f)\n", i+1, src.Filename, src.ChunkIndex, src.Score)
		cmd.Printf("      %s\n", snippet(results[i].Content))
		cmd.Println()
	}
	return nil
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes]) + "..."
}
