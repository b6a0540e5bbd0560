package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	askTopK    int
	askFilter  map[string]string
	askSources bool
	askJSON    bool
)

var askCmd = requires(&cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the chunks most similar to the question and asks the
configured generation backend to answer from them alone. When nothing is
retrieved the backend is not called.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}, "generation")

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks to retrieve (default from settings)")
	askCmd.Flags().StringToStringVarP(&askFilter, "filter", "f", nil, "only use chunks whose metadata matches key=value")
	askCmd.Flags().BoolVarP(&askSources, "sources", "s", false, "list the chunks the answer is based on")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errNotConfigured("query")
	}

	answer, err := queryService.Ask(cmd.Context(), args[0], domain.AskOptions{
		TopK:           askTopK,
		Filter:         askFilter,
		IncludeSources: askSources || askJSON,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if askSources && len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, s := range answer.Sources {
			cmd.Printf("  [%d] %s (chunk %d, score %.3f)\n", i+1, s.Filename, s.ChunkIndex, s.Score)
		}
	}
	cmd.Printf("\n%d chunks, avg score %s, %s\n",
		answer.NumChunks, formatScore(answer.AvgScore), formatSeconds(answer.Timings.Total.Seconds()))
	return nil
}
