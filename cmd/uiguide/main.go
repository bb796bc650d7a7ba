// Command uiguide is the entry point for the UI Guide service: a
// retrieval-augmented assistant for University of Ibadan policy documents.
// It provides the ingestion CLI and the HTTP API server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/uiguide/uiguide-go/cmd/uiguide/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Ingestion failures carry distinct exit codes so cron jobs and CI
		// can tell an empty docs directory from a dead vector store.
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
