package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docuchat/docuchat/internal/engine"
	"github.com/docuchat/docuchat/internal/logging"
	"github.com/docuchat/docuchat/internal/rag"
)

// NewIngestCmd constructs the `docuchat ingest` command, which extracts and
// indexes local files without going through the HTTP server.
func NewIngestCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Extract and index local documents into the vector store",
		Long: `Extract text from the given files and index the chunks in Qdrant.

Supported formats: PDF (with OCR fallback through the configured vision
model for scanned pages), DOCX, and plain text. Each file is indexed
under its base name; re-ingesting a file replaces its previous chunks.

Required environment variables:
  MODEL_API_KEY        Provider credential (GOOGLE_API_KEY accepted as fallback)
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: docuchat_knowledge)

Examples:
  docuchat ingest report.pdf
  docuchat ingest --session s1 notes.txt manual.docx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			providerCfg := providerConfigFromEnv()

			qdrantStore := buildVectorStore(ctx, providerCfg, log)
			if qdrantStore == nil {
				return fmt.Errorf("ingest: Qdrant is required for indexing")
			}
			var vectorStore rag.VectorStore = qdrantStore

			eng := engine.New(engine.Options{
				Provider: providerCfg,
				Store:    vectorStore,
			})
			defer func() { _ = eng.Close() }()

			for _, path := range args {
				filename := filepath.Base(path)
				count, err := eng.IngestFile(ctx, path, filename, sessionID)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", filename, err)
				}
				log.Info("file indexed",
					slog.String("source", filename),
					slog.Int("chunks", count),
				)
			}

			log.Info("ingestion complete", slog.Int("files", len(args)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID to scope the indexed chunks to")

	return cmd
}
