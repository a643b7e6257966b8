// Package cli implements the command-line surface. Commands hold no
// business logic; they parse arguments, call the driving ports and
// format the results.
package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by the application bootstrap before Execute runs.
var (
	ingestService    driving.Ingestor
	corpusService    driving.CorpusService
	retrievalService driving.RetrievalService
	analysisService  driving.AnalysisRunner
	appConfig        domain.Config
)

// Output styles.
var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Faint(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "corpora",
	Short: "Corpus ingestion and analysis toolkit",
	Long: `corpora ingests text documents into a searchable project corpus,
enriches them with machine-generated structural metadata, and runs
higher-order analyses (clustering, anomaly detection, topic synthesis)
over the resulting vector space.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Services bundles everything the commands need.
type Services struct {
	Ingestor  driving.Ingestor
	Corpus    driving.CorpusService
	Retrieval driving.RetrievalService
	Analysis  driving.AnalysisRunner
	Config    domain.Config
}

// SetServices injects the application services. Must be called before
// Execute.
func SetServices(s Services) {
	ingestService = s.Ingestor
	corpusService = s.Corpus
	retrievalService = s.Retrieval
	analysisService = s.Analysis
	appConfig = s.Config
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
