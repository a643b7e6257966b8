package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

var (
	analyzeQuery   string
	analyzeK       int
	analyzeOptions string
	analyzeSave    bool
	analyzeSeed    int64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run analysis plugins over the corpus",
}

var analyzeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available analysis plugins",
	Args:  cobra.NoArgs,
	RunE:  runAnalyzeList,
}

var analyzeRunCmd = &cobra.Command{
	Use:   "run [plugin]",
	Short: "Run one analysis plugin",
	Long: `Runs the named plugin over the stored corpus. Results are ephemeral
unless the plugin persists them with --save.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyzeRun,
}

func init() {
	analyzeRunCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "", "retrieval query for retrieve-then-reason plugins")
	analyzeRunCmd.Flags().IntVar(&analyzeK, "k", 0, "plugin-specific count: retrieved chunks, clusters or outliers")
	analyzeRunCmd.Flags().StringVarP(&analyzeOptions, "options", "o", "", "plugin option string, e.g. a category list")
	analyzeRunCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist plugin results into chunk metadata")
	analyzeRunCmd.Flags().Int64Var(&analyzeSeed, "seed", 0, "seed for stochastic plugins (0 = plugin default)")

	analyzeCmd.AddCommand(analyzeListCmd)
	analyzeCmd.AddCommand(analyzeRunCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyzeList(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	described := analysisService.Describe()
	names := make([]string, 0, len(described))
	for name := range described {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd.Println(headingStyle.Render("Available plugins:"))
	for _, name := range names {
		cmd.Printf("  %-12s %s\n", name, described[name])
	}
	return nil
}

func runAnalyzeRun(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	opts := domain.AnalysisOptions{
		Query:     analyzeQuery,
		K:         analyzeK,
		Options:   analyzeOptions,
		Save:      analyzeSave,
		Seed:      analyzeSeed,
		OutputDir: appConfig.DataDir,
	}

	outcome, err := analysisService.Run(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	cmd.Println(headingStyle.Render(outcome.Plugin + ":"))
	cmd.Println(outcome.Text)

	for _, cluster := range outcome.Clusters {
		cmd.Println()
		cmd.Printf("%s %s (%d chunks)\n",
			headingStyle.Render(cluster.Label), cluster.AxialTheme, len(cluster.ChunkIDs))
		for _, sample := range cluster.Samples {
			cmd.Printf("  - %s\n", firstChars(sample, 120))
		}
	}

	if outcome.ArtifactPath != "" {
		cmd.Printf("\n%s %s\n", labelStyle.Render("Artifact:"), outcome.ArtifactPath)
	}
	if analyzeSave && len(outcome.Clusters) > 0 {
		cmd.Println(okStyle.Render("Cluster labels persisted to chunk metadata."))
	}
	return nil
}
