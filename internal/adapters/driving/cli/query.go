package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

var (
	queryK         int
	queryThreshold float64
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the corpus",
	Long:  `Similarity, threshold and exact-match queries over the stored chunks.`,
}

var queryTopKCmd = &cobra.Command{
	Use:   "topk [query]",
	Short: "Return the k most similar chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryTopK,
}

var queryThresholdCmd = &cobra.Command{
	Use:   "threshold [query]",
	Short: "Return all chunks above a similarity score",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryThreshold,
}

var queryExactCmd = &cobra.Command{
	Use:   "exact [substring]",
	Short: "Return chunks containing a literal substring",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryExact,
}

func init() {
	queryTopKCmd.Flags().IntVar(&queryK, "k", 5, "number of results")
	queryThresholdCmd.Flags().Float64VarP(&queryThreshold, "min-score", "m", 0.7, "minimum similarity score")

	queryCmd.AddCommand(queryTopKCmd)
	queryCmd.AddCommand(queryThresholdCmd)
	queryCmd.AddCommand(queryExactCmd)
	rootCmd.AddCommand(queryCmd)
}

func runQueryTopK(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	results, err := retrievalService.TopK(context.Background(), args[0], queryK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	printResults(cmd, results)
	return nil
}

func runQueryThreshold(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	results, err := retrievalService.Threshold(context.Background(), args[0], queryThreshold)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	printResults(cmd, results)
	return nil
}

func runQueryExact(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	records, err := retrievalService.Exact(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(records) == 0 {
		cmd.Println("No matches found.")
		return nil
	}

	cmd.Println(headingStyle.Render("Matches:"))
	for i, rec := range records {
		cmd.Printf("  [%d] %s\n", i+1, rec.StringField(domain.FieldFilename))
		cmd.Printf("      %s\n", firstChars(rec.Text, 200))
	}
	return nil
}

func printResults(cmd *cobra.Command, results []domain.QueryResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println(headingStyle.Render("Results:"))
	cmd.Println()
	for i, res := range results {
		cmd.Printf("  [%d] %s %s\n", i+1,
			scoreStyle.Render(fmt.Sprintf("(%.3f)", res.Score)),
			res.Record.StringField(domain.FieldFilename))
		if themes := res.Record.StringsField(domain.FieldThemes); len(themes) > 0 {
			cmd.Printf("      %s %s\n", labelStyle.Render("themes:"), strings.Join(themes, ", "))
		}
		cmd.Printf("      %s\n", firstChars(res.Record.Text, 200))
		cmd.Println()
	}
}

// firstChars truncates text to n characters on one line.
func firstChars(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= n {
		return text
	}
	return text[:n] + "..."
}
