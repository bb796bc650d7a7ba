package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uiguide/uiguide-go/internal/rag"
)

// Batch-level failure conditions. ErrNoPages is the single fatal condition
// for an otherwise-healthy batch; everything per-document is contained as a
// skip record.
var (
	// ErrDocsDirMissing means the configured document directory does not exist.
	ErrDocsDirMissing = errors.New("ingestion: documents directory does not exist")

	// ErrNoPDFs means the document directory contains no PDF files.
	ErrNoPDFs = errors.New("ingestion: no PDF files found")

	// ErrNoPages means no usable pages were extracted from any document.
	ErrNoPages = errors.New("ingestion: no usable pages extracted")
)

// Config holds the configuration for the index-build pipeline.
type Config struct {
	// DocsDir is the directory scanned for *.pdf files.
	DocsDir string

	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Defaults to 100 if zero.
	ChunkOverlap int

	// BatchSize is the number of chunks embedded and upserted per batch.
	// Defaults to 100 if zero.
	BatchSize int

	// MaxFileMB is the per-document size cap in megabytes; larger files are
	// skipped before extraction. Defaults to 350 if zero.
	MaxFileMB float64

	// Institution is the institution label applied to every chunk.
	Institution string
}

// SkippedFile records a document that was excluded from the batch and why.
type SkippedFile struct {
	// Name is the file's display name.
	Name string
	// Reason is the human-readable skip reason.
	Reason string
}

// BuildReport summarises a completed (or failed) index build.
type BuildReport struct {
	// PDFsFound is the number of PDF files discovered.
	PDFsFound int
	// Loaded is the number of PDFs successfully extracted.
	Loaded int
	// Skipped lists the documents excluded from the batch.
	Skipped []SkippedFile
	// Pages is the number of usable pages accumulated across all documents.
	Pages int
	// Stats is the aggregate page classification across all documents.
	Stats PageStats
	// Chunks is the number of chunks produced.
	Chunks int
	// Vectors is the vector count reported by the store after the build.
	Vectors uint64
	// Elapsed is the wall-clock duration of the build.
	Elapsed time.Duration
}

// Pipeline orchestrates the extract → chunk → identify → embed → upsert flow
// that populates the vector store from a directory of PDFs.
type Pipeline struct {
	// extractor turns source PDFs into PageRecords.
	extractor DocumentExtractor

	// embedder converts chunk text into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// chunker splits page text into bounded overlapping chunks.
	chunker *Chunker

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(extractor DocumentExtractor, embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if extractor == nil {
		return nil, fmt.Errorf("ingestion: extractor must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 100
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxFileMB <= 0 {
		cfg.MaxFileMB = 350
	}

	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:       cfg,
	}, nil
}

// BuildVectorStore discovers, extracts, chunks, embeds, and stores every PDF
// in the configured directory. Per-document failures are recorded as skips
// and do not abort the batch; the only fatal batch condition after discovery
// is extracting zero usable pages. Progress is reported via the optional
// progress callback. The returned report is non-nil whenever discovery
// succeeded, even on error, so callers can print partial bookkeeping.
func (p *Pipeline) BuildVectorStore(ctx context.Context, progress func(msg string)) (*BuildReport, error) {
	if progress == nil {
		progress = func(string) {}
	}
	start := time.Now()
	report := &BuildReport{}

	if _, err := os.Stat(p.cfg.DocsDir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDocsDirMissing, p.cfg.DocsDir)
	}

	pdfs, err := filepath.Glob(filepath.Join(p.cfg.DocsDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("ingestion: scanning %s: %w", p.cfg.DocsDir, err)
	}
	sort.Strings(pdfs)
	report.PDFsFound = len(pdfs)
	if len(pdfs) == 0 {
		return report, fmt.Errorf("%w in %s", ErrNoPDFs, p.cfg.DocsDir)
	}
	progress(fmt.Sprintf("found %d PDF file(s) in %s", len(pdfs), p.cfg.DocsDir))

	var pages []PageRecord
	for i, path := range pdfs {
		name := filepath.Base(path)

		info, err := os.Stat(path)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedFile{Name: name, Reason: err.Error()})
			continue
		}
		sizeMB := float64(info.Size()) / (1024 * 1024)
		progress(fmt.Sprintf("[%d/%d] loading %s (%.1f MB)", i+1, len(pdfs), name, sizeMB))

		if sizeMB > p.cfg.MaxFileMB {
			report.Skipped = append(report.Skipped, SkippedFile{
				Name:   name,
				Reason: fmt.Sprintf("too large (%.1f MB > %.0f MB limit)", sizeMB, p.cfg.MaxFileMB),
			})
			progress(fmt.Sprintf("  skipped %s: too large", name))
			continue
		}

		docPages, stats, err := p.extractor.Extract(ctx, path, name)
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("ingestion: cancelled: %w", ctx.Err())
			}
			report.Skipped = append(report.Skipped, SkippedFile{Name: name, Reason: err.Error()})
			progress(fmt.Sprintf("  skipped %s: %v", name, err))
			continue
		}

		report.Loaded++
		report.Stats.Add(stats)
		pages = append(pages, docPages...)
		progress(fmt.Sprintf("  loaded %s: %d usable pages (text=%d ocr=%d empty=%d short=%d)",
			name, len(docPages), stats.Text, stats.OCR, stats.Empty, stats.Short))
	}

	report.Pages = len(pages)
	if len(pages) == 0 {
		return report, ErrNoPages
	}

	chunks := p.chunker.Split(pages)
	for i := range chunks {
		chunks[i].ID = ChunkID(chunks[i].Page.DocumentName, chunks[i].Page.PageNo, chunks[i].Content)
	}
	report.Chunks = len(chunks)
	progress(fmt.Sprintf("chunked %d pages into %d chunks", len(pages), len(chunks)))

	for offset := 0; offset < len(chunks); offset += p.cfg.BatchSize {
		end := offset + p.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := p.upsertBatch(ctx, chunks[offset:end]); err != nil {
			return report, err
		}
		progress(fmt.Sprintf("processed %d/%d chunks", end, len(chunks)))
	}

	if n, err := p.store.Count(ctx); err == nil {
		report.Vectors = n
	}
	report.Elapsed = time.Since(start)
	progress(fmt.Sprintf("build complete: %d chunks, %d vectors in store, %s elapsed",
		report.Chunks, report.Vectors, report.Elapsed.Round(time.Millisecond)))

	return report, nil
}

// upsertBatch embeds one batch of chunks and commits it to the store. Each
// batch is fully upserted before the next begins so a failure never leaves a
// partially committed batch behind.
func (p *Pipeline) upsertBatch(ctx context.Context, batch []Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("ingestion: embedding batch failed: %w", err)
	}

	docs := make([]rag.Document, 0, len(batch))
	for _, c := range batch {
		docs = append(docs, chunkDocument(c))
	}

	if err := p.store.Upsert(ctx, docs, embeddings); err != nil {
		return fmt.Errorf("ingestion: upsert batch failed: %w", err)
	}
	return nil
}

// chunkDocument converts a Chunk into the vector-store document shape,
// flattening the page metadata into the payload.
func chunkDocument(c Chunk) rag.Document {
	meta := map[string]string{
		"institution": c.Page.Institution,
		"ocr_used":    strconv.FormatBool(c.Page.OCRUsed),
	}
	for k, v := range c.Page.PDFMeta {
		meta[k] = v
	}
	if date, ok := c.Page.PDFMeta["creationDate"]; ok {
		meta["date"] = strings.TrimSpace(date)
	}

	return rag.Document{
		ID:           c.ID,
		Content:      c.Content,
		DocumentName: c.Page.DocumentName,
		PageNo:       c.Page.PageNo,
		Source:       c.Page.Source,
		Metadata:     meta,
	}
}
