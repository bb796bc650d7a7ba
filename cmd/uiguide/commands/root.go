// Package commands defines all Cobra CLI commands for the uiguide binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/uiguide/uiguide-go/internal/audit"
	"github.com/uiguide/uiguide-go/internal/config"
	"github.com/uiguide/uiguide-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "uiguide",
		Short: "UI Guide — your intelligent guide to University of Ibadan policies",
		Long: `UI Guide is a retrieval-augmented assistant for University of Ibadan
policy documents.

It ingests policy PDFs into a Qdrant vector store and answers natural
language questions about them with citations, either from the command line
or over an HTTP API.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.uiguide/config.yaml).
See 'uiguide --help' for available commands.`,
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

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.uiguide/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewDocumentsCmd(),
		NewVersionCmd(),
	)

	return root
}
