package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/uiguide/uiguide-go/internal/embedder"
	"github.com/uiguide/uiguide-go/internal/ingestion"
	"github.com/uiguide/uiguide-go/internal/logging"
)

// NewIngestCmd constructs the ingest command, which builds the Qdrant index
// from a directory of policy PDFs.
func NewIngestCmd() *cobra.Command {
	var docsDir string
	var chunkSize int
	var chunkOverlap int
	var batchSize int
	var noOCR bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index policy PDFs into the vector store",
		Long: `Extract text from every PDF in the documents directory, split it into
overlapping chunks and index the chunks into Qdrant.

Pages with no extractable text fall back to OCR (Tesseract) unless --no-ocr
is set. Re-running ingest is idempotent: unchanged chunks keep their IDs and
are overwritten in place.

Exit codes:
  0  index built successfully
  2  documents directory does not exist
  3  no PDF files found
  4  no usable pages extracted from any PDF
  5  embedding or vector store failure`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Fail fast on a misconfigured embedding backend before touching
			// any PDF.
			if err := embedder.Validate(log); err != nil {
				return err
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return err
			}

			store, err := buildStore(ctx)
			if err != nil {
				return &ExitError{Code: 5, Err: err}
			}
			defer store.Close()

			// OCR_ENABLED is env/YAML-driven; the flag, when given, wins.
			ocrEnabled := os.Getenv("OCR_ENABLED") != "false"
			if cmd.Flags().Changed("no-ocr") {
				ocrEnabled = !noOCR
			}

			extractor := ingestion.NewExtractor(ingestion.ExtractorConfig{
				MinChars:    getEnvInt("MIN_CHARS", 20),
				OCREnabled:  ocrEnabled,
				OCRLanguage: getEnvOrDefault("OCR_LANGUAGE", "eng"),
				OCRDPI:      float64(getEnvInt("OCR_DPI", 200)),
				Institution: getEnvOrDefault("INSTITUTION", "University of Ibadan"),
			})

			maxMB := 350.0
			if v := os.Getenv("MAX_FILE_MB"); v != "" {
				if f, perr := strconv.ParseFloat(v, 64); perr == nil {
					maxMB = f
				}
			}

			pipeline, err := ingestion.NewPipeline(extractor, emb, store, &ingestion.Config{
				DocsDir:      docsDir,
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
				BatchSize:    batchSize,
				MaxFileMB:    maxMB,
				Institution:  getEnvOrDefault("INSTITUTION", "University of Ibadan"),
			})
			if err != nil {
				return err
			}

			report, err := pipeline.BuildVectorStore(ctx, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				switch {
				case errors.Is(err, ingestion.ErrDocsDirMissing):
					return &ExitError{Code: 2, Err: err}
				case errors.Is(err, ingestion.ErrNoPDFs):
					return &ExitError{Code: 3, Err: err}
				case errors.Is(err, ingestion.ErrNoPages):
					return &ExitError{Code: 4, Err: err}
				default:
					return &ExitError{Code: 5, Err: err}
				}
			}

			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&docsDir, "docs-dir", getEnvOrDefault("DOCS_DIR", "docs"), "Directory containing policy PDFs")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", getEnvInt("CHUNK_SIZE", 1000), "Maximum characters per chunk")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", getEnvInt("CHUNK_OVERLAP", 100), "Characters shared between consecutive chunks")
	cmd.Flags().IntVar(&batchSize, "batch-size", getEnvInt("BATCH_SIZE", 100), "Chunks embedded and upserted per batch")
	cmd.Flags().BoolVar(&noOCR, "no-ocr", false, "Disable the OCR fallback for image-only pages")

	return cmd
}

// printReport writes a human-readable build summary to stdout.
func printReport(cmd *cobra.Command, r *ingestion.BuildReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Index build complete in %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  PDFs found:   %d\n", r.PDFsFound)
	fmt.Fprintf(out, "  Loaded:       %d\n", r.Loaded)
	if len(r.Skipped) > 0 {
		fmt.Fprintf(out, "  Skipped:      %d\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(out, "    - %s (%s)\n", s.Name, s.Reason)
		}
	}
	fmt.Fprintf(out, "  Pages:        %d (text: %d, ocr: %d, empty: %d, short: %d)\n",
		r.Pages, r.Stats.Text, r.Stats.OCR, r.Stats.Empty, r.Stats.Short)
	fmt.Fprintf(out, "  Chunks:       %d\n", r.Chunks)
	fmt.Fprintf(out, "  Vectors:      %d\n", r.Vectors)
}
