package commands

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/uiguide/uiguide-go/internal/agent"
	"github.com/uiguide/uiguide-go/internal/logging"
	"github.com/uiguide/uiguide-go/internal/provider"
	"github.com/uiguide/uiguide-go/internal/tracing"
)

// NewAskCmd constructs the ask command, a one-shot query from the terminal.
func NewAskCmd() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about University of Ibadan policies",
		Long: `Ask a one-shot question against the indexed policy documents.

The answer is printed to stdout along with the source excerpts that informed
it. Pass --thread to continue an earlier conversation; history for that
thread is loaded from the session store and the new turn is appended to it.`,
		Example: `  uiguide ask "What is the hostel curfew policy?"
  uiguide ask --thread registration "What documents do I need?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if handler, flush, ok := tracing.Setup(); ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
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

			question := strings.Join(args, " ")
			result, err := guide.Query(ctx, question, threadID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Answer)

			if len(result.Sources) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Sources:")
				for i, src := range result.Sources {
					ref := src.Document
					if src.Page != "" {
						ref += ", p. " + src.Page
					}
					fmt.Fprintf(out, "  [%d] %s\n", i+1, ref)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "Conversation thread ID to continue (default: a fresh thread)")

	return cmd
}
