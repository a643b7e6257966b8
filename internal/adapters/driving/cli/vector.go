package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var dumpFull bool

var vectorCmd = &cobra.Command{
	Use:   "vector",
	Short: "Inspect the vector store",
}

var vectorStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report store record counts against the manifest",
	Args:  cobra.NoArgs,
	RunE:  runVectorStatus,
}

var vectorDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every stored chunk",
	Args:  cobra.NoArgs,
	RunE:  runVectorDump,
}

func init() {
	vectorDumpCmd.Flags().BoolVar(&dumpFull, "full", false, "include hidden metadata fields and embed text")

	vectorCmd.AddCommand(vectorStatusCmd)
	vectorCmd.AddCommand(vectorDumpCmd)
	rootCmd.AddCommand(vectorCmd)
}

func runVectorStatus(cmd *cobra.Command, _ []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	status, err := corpusService.Status(context.Background())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	cmd.Println(headingStyle.Render("Vector store status:"))
	cmd.Printf("  %s %d\n", labelStyle.Render("Files:"), status.Files)
	cmd.Printf("  %s %d\n", labelStyle.Render("Manifest chunks:"), status.ManifestChunks)
	cmd.Printf("  %s %d\n", labelStyle.Render("Stored records:"), status.StoredRecords)
	if status.ManifestChunks != status.StoredRecords {
		cmd.Println(errorStyle.Render("  Store and manifest disagree; run corpus reingest."))
	}
	return nil
}

func runVectorDump(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	records, err := retrievalService.Dump(context.Background())
	if err != nil {
		return fmt.Errorf("dump failed: %w", err)
	}
	if len(records) == 0 {
		cmd.Println("Vector store is empty.")
		return nil
	}

	for _, rec := range records {
		cmd.Println(headingStyle.Render(rec.ChunkID))
		cmd.Printf("  %s %s (position %d)\n", labelStyle.Render("file:"), rec.FileID, rec.Position)
		cmd.Printf("  %s %s\n", labelStyle.Render("text:"), firstChars(rec.Text, 160))

		fields := make([]string, 0, len(rec.Metadata))
		for field := range rec.Metadata {
			if !dumpFull && appConfig.Hidden(field) {
				continue
			}
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			cmd.Printf("  %s %v\n", labelStyle.Render(field+":"), rec.Metadata[field])
		}
		if dumpFull && rec.EmbedText != "" {
			cmd.Printf("  %s %s\n", labelStyle.Render("embed text:"), firstChars(rec.EmbedText, 160))
		}
		cmd.Println()
	}
	return nil
}
