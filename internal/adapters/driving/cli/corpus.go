package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the project corpus",
	Long:  `Add, list, inspect, and remove corpus files, or re-run the enrichment pipeline.`,
}

var corpusAddCmd = &cobra.Command{
	Use:   "add [path...]",
	Short: "Ingest files into the corpus",
	Long: `Ingests one or more files through the enrichment pipeline. Glob
patterns are expanded; unchanged files are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCorpusAdd,
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List corpus files",
	Args:  cobra.NoArgs,
	RunE:  runCorpusList,
}

var corpusShowCmd = &cobra.Command{
	Use:   "show [file-id]",
	Short: "Show one corpus file's manifest entry and summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusShow,
}

var corpusRemoveCmd = &cobra.Command{
	Use:   "remove [file-id]",
	Short: "Remove a file and its stored chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusRemove,
}

var corpusReingestCmd = &cobra.Command{
	Use:   "reingest",
	Short: "Re-run the pipeline for every corpus file",
	Long: `Forces chunk and embedding regeneration for all files. Required
after changing the embeddable field allow-list.`,
	Args: cobra.NoArgs,
	RunE: runCorpusReingest,
}

var corpusWatchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and ingest changed files",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusWatch,
}

// addDocType is the --doc-type flag for add and watch.
var addDocType string

func init() {
	corpusAddCmd.Flags().StringVarP(&addDocType, "doc-type", "t", "", "document type: document, interview or notes")
	corpusWatchCmd.Flags().StringVarP(&addDocType, "doc-type", "t", "", "document type: document, interview or notes")

	corpusCmd.AddCommand(corpusAddCmd)
	corpusCmd.AddCommand(corpusListCmd)
	corpusCmd.AddCommand(corpusShowCmd)
	corpusCmd.AddCommand(corpusRemoveCmd)
	corpusCmd.AddCommand(corpusReingestCmd)
	corpusCmd.AddCommand(corpusWatchCmd)
	rootCmd.AddCommand(corpusCmd)
}

func runCorpusAdd(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no files match the given paths")
	}

	reqs := make([]driving.IngestRequest, len(paths))
	for i, p := range paths {
		reqs[i] = driving.IngestRequest{Path: p, DocType: domain.DocType(addDocType)}
	}

	outcomes, err := ingestService.IngestBatch(context.Background(), reqs)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printOutcomes(cmd, outcomes)
	return nil
}

func runCorpusList(cmd *cobra.Command, _ []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	entries, err := corpusService.List(context.Background())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("Corpus is empty.")
		return nil
	}

	cmd.Println(headingStyle.Render("Corpus files:"))
	for _, e := range entries {
		cmd.Printf("  %s  %s\n", e.FileID, e.Path)
		cmd.Printf("      %s v%d, %d chunks, ingested %s\n",
			e.DocType, e.Version, e.ChunkCount, e.IngestedAt.Format(time.RFC3339))
	}
	return nil
}

func runCorpusShow(cmd *cobra.Command, args []string) error {
	if corpusService == nil || retrievalService == nil {
		return errors.New("corpus service not configured")
	}

	entry, err := corpusService.Show(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("show failed: %w", err)
	}

	cmd.Println(headingStyle.Render(entry.Path))
	cmd.Printf("  %s %s\n", labelStyle.Render("File ID:"), entry.FileID)
	cmd.Printf("  %s %s\n", labelStyle.Render("Doc type:"), entry.DocType)
	cmd.Printf("  %s %d\n", labelStyle.Render("Version:"), entry.Version)
	cmd.Printf("  %s %d\n", labelStyle.Render("Chunks:"), entry.ChunkCount)
	cmd.Printf("  %s %s\n", labelStyle.Render("Hash:"), entry.ContentHash)
	cmd.Printf("  %s %s\n", labelStyle.Render("Ingested:"), entry.IngestedAt.Format(time.RFC3339))

	// The synthesize stage broadcasts one summary per document; show it
	// from any of the file's chunks.
	records, err := retrievalService.Dump(context.Background())
	if err != nil {
		return nil
	}
	for _, rec := range records {
		if rec.FileID != entry.FileID {
			continue
		}
		if summary := rec.StringField(domain.FieldHolisticSummary); summary != "" {
			cmd.Printf("\n%s\n  %s\n", labelStyle.Render("Summary:"), summary)
		}
		break
	}
	return nil
}

func runCorpusRemove(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	if err := corpusService.Remove(context.Background(), args[0]); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	cmd.Println(okStyle.Render("Removed ") + args[0])
	return nil
}

func runCorpusReingest(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	outcomes, err := ingestService.ReingestAll(context.Background())
	if err != nil {
		return fmt.Errorf("reingest failed: %w", err)
	}
	printOutcomes(cmd, outcomes)
	return nil
}

func runCorpusWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	dir := args[0]
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", dir)

	// Editors fire bursts of write events per save; debounce per path.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)

		case now := <-ticker.C:
			var due []string
			for path, last := range pending {
				if now.Sub(last) >= time.Second {
					due = append(due, path)
					delete(pending, path)
				}
			}
			if len(due) == 0 {
				continue
			}
			sort.Strings(due)

			reqs := make([]driving.IngestRequest, len(due))
			for i, p := range due {
				reqs[i] = driving.IngestRequest{Path: p, DocType: domain.DocType(addDocType)}
			}
			outcomes, err := ingestService.IngestBatch(ctx, reqs)
			if err != nil {
				logger.Warn("Ingest failed: %v", err)
				continue
			}
			printOutcomes(cmd, outcomes)
		}
	}
}

// expandPaths expands glob patterns and keeps regular files.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if matches == nil {
			// Not a pattern: let ingestion report the missing file.
			paths = append(paths, arg)
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// printOutcomes renders per-file ingestion outcomes.
func printOutcomes(cmd *cobra.Command, outcomes []driving.FileOutcome) {
	for _, o := range outcomes {
		switch o.Status {
		case driving.StatusFailed:
			cmd.Printf("  %s %s: %v\n", errorStyle.Render("failed"), o.Path, o.Err)
		case driving.StatusUnchanged:
			cmd.Printf("  %s %s (v%d)\n", labelStyle.Render("unchanged"), o.Path, o.Version)
		default:
			cmd.Printf("  %s %s (v%d, %d chunks)\n", okStyle.Render(string(o.Status)), o.Path, o.Version, o.ChunkCount)
			if len(o.Degraded) > 0 {
				cmd.Printf("      %s %s\n", labelStyle.Render("degraded fields:"), strings.Join(o.Degraded, ", "))
			}
		}
	}
}
