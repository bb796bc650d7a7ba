package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/uiguide/uiguide-go/internal/agent"
	"github.com/uiguide/uiguide-go/internal/logging"
	"github.com/uiguide/uiguide-go/internal/provider"
	"github.com/uiguide/uiguide-go/internal/server"
	"github.com/uiguide/uiguide-go/internal/session"
	"github.com/uiguide/uiguide-go/internal/tracing"
)

// NewServeCmd constructs the serve command, which runs the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the UI Guide HTTP API server",
		Long: `Start the HTTP API server.

Endpoints:
  POST /api/chat       Ask a question, receive an answer with citations
  GET  /api/documents  List indexed policy documents
  GET  /api/health     Liveness probe
  GET  /api/ready      Readiness probe (Qdrant, index, model backend)
  GET  /api/metrics    Prometheus metrics

Requires a populated Qdrant index (run 'uiguide ingest' first) and a
configured model provider (MODEL_PROVIDER, or auto-detected from API keys).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Langfuse tracing is optional and enabled purely via env vars.
			if handler, flush, ok := tracing.Setup(); ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return err
			}

			store, err := buildStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			retriever, err := buildRetriever(store)
			if err != nil {
				return err
			}

			sessions, cleanup, err := openSessionStore(log)
			if err != nil {
				return err
			}
			defer cleanup()

			guide, err := agent.New(&agent.Config{
				ChatModel: chatModel,
				Retriever: retriever,
				Sessions:  sessions,
			})
			if err != nil {
				return err
			}

			var origins []string
			if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
				for _, o := range strings.Split(v, ",") {
					if o = strings.TrimSpace(o); o != "" {
						origins = append(origins, o)
					}
				}
			}

			srv, err := server.New(guide, store, &server.Config{
				Host:           host,
				Port:           port,
				Logger:         log,
				Pingers:        buildPingers(store),
				APIKey:         os.Getenv("UIGUIDE_API_KEY"),
				AllowedOrigins: origins,
			})
			if err != nil {
				return err
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("SERVER_HOST", "127.0.0.1"), "Address to bind the server to")
	cmd.Flags().IntVar(&port, "port", getEnvInt("SERVER_PORT", 8000), "Port to listen on")

	return cmd
}

// openSessionStore opens the conversation history store.
// SESSION_DB_PATH overrides the default location; the value "disabled" turns
// persistence off entirely, making every chat turn stateless.
func openSessionStore(log *slog.Logger) (session.Store, func(), error) {
	path := os.Getenv("SESSION_DB_PATH")
	if path == "disabled" {
		log.Info("session persistence disabled")
		return nil, func() {}, nil
	}
	if path == "" {
		var err error
		path, err = session.DefaultDBPath()
		if err != nil {
			return nil, nil, fmt.Errorf("commands: failed to resolve session db path: %w", err)
		}
	}

	store, err := session.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("commands: failed to open session store: %w", err)
	}
	return store, func() { store.Close() }, nil
}
