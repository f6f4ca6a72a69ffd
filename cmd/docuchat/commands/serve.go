package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docuchat/docuchat/internal/engine"
	"github.com/docuchat/docuchat/internal/logging"
	"github.com/docuchat/docuchat/internal/rag"
	"github.com/docuchat/docuchat/internal/search"
	"github.com/docuchat/docuchat/internal/server"
	"github.com/docuchat/docuchat/internal/storage"
	"github.com/docuchat/docuchat/internal/store"
	"github.com/docuchat/docuchat/internal/tracing"
)

// NewServeCmd constructs the `docuchat serve` command, which starts the HTTP
// server the web client talks to.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the DocuChat HTTP server",
		Long: `Start the DocuChat HTTP server on localhost.

The server exposes the REST API used by the web client: chat with
retrieval over uploaded documents, document upload and management, and
persistent chat history. Without a reachable Qdrant instance the server
still runs, answering in direct-chat mode.

Examples:
  docuchat serve
  docuchat serve --port 9090
  MODEL_PROVIDER=google docuchat serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Langfuse tracing is opt-in, a no-op if the keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			providerCfg := providerConfigFromEnv()

			qdrantStore := buildVectorStore(ctx, providerCfg, log)
			var vectorStore rag.VectorStore
			if qdrantStore != nil {
				vectorStore = qdrantStore
			}

			eng := engine.New(engine.Options{
				Provider:         providerCfg,
				Store:            vectorStore,
				Searcher:         search.NewClient(),
				MaxContextTokens: getEnvInt("HISTORY_MAX_TOKENS", 0),
			})
			defer func() { _ = eng.Close() }()

			files, err := storage.New(getEnvOrDefault("DOCUCHAT_UPLOADS_DIR", "uploads"))
			if err != nil {
				return fmt.Errorf("serve: failed to prepare uploads directory: %w", err)
			}

			// Open chat history store. DOCUCHAT_HISTORY_DB overrides the
			// default path (~/.docuchat/history.db). Set to "disabled" to disable.
			var sessions store.SessionStore
			dbPath := os.Getenv("DOCUCHAT_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						sessions = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via DOCUCHAT_HISTORY_DB=disabled")
			}

			var pingers []server.Pinger
			if qdrantStore != nil {
				pingers = append(pingers, server.NewQdrantPinger(qdrantStore.Client()))
			}

			srv, err := server.New(eng, &server.Config{
				Host:     host,
				Port:     port,
				Logger:   log,
				Pingers:  pingers,
				APIKey:   os.Getenv("DOCUCHAT_API_KEY"),
				Sessions: sessions,
				Files:    files,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("DOCUCHAT_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("DOCUCHAT_PORT", 8000), "TCP port to listen on")

	return cmd
}
