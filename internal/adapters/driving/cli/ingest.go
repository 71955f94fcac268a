package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.pdf]",
	Short: "Ingest a PDF document",
	Long: `Extracts text from a PDF, splits it into passages, embeds them and
adds them to the retrieval index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	result, err := ingestService.Ingest(context.Background(), filepath.Base(path), data)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Ingested %s\n", filepath.Base(path))
	cmd.Printf("  Document: %s\n", result.DocumentID)
	cmd.Printf("  Pages:    %d\n", result.PageCount)
	cmd.Printf("  Passages: %d\n", result.PassageCount)
	return nil
}
