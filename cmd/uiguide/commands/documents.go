package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/uiguide/uiguide-go/internal/logging"
)

// NewDocumentsCmd constructs the documents command, which lists the source
// documents currently indexed in the vector store.
func NewDocumentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List indexed policy documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ctx = logging.WithLogger(ctx, logging.New())

			store, err := buildStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.DocumentNames(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No documents indexed. Run 'uiguide ingest' first.")
				return nil
			}

			sort.Strings(names)
			fmt.Fprintf(out, "%d document(s) indexed:\n", len(names))
			for _, name := range names {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			return nil
		},
	}
}
