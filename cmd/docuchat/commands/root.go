// Package commands defines all Cobra CLI commands for the docuchat binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/docuchat/docuchat/internal/audit"
	"github.com/docuchat/docuchat/internal/config"
	"github.com/docuchat/docuchat/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docuchat",
		Short: "DocuChat — chat with your documents, powered by LLMs",
		Long: `DocuChat is a local-first backend for chatting with uploaded documents.

It extracts text from PDFs, Word documents, and images (with an OCR
fallback through the configured vision model), indexes the chunks in a
Qdrant vector store, and answers questions grounded in the retrieved
passages. Without any indexed documents it falls back to direct chat.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.docuchat/config.yaml).
See 'docuchat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docuchat/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewVersionCmd(),
	)

	return root
}
