// Package ingestion implements the document ingestion pipeline.
// It extracts per-page text from source PDFs (with an OCR fallback for
// scanned pages), chunks the text into bounded overlapping passages, assigns
// content-addressed chunk identifiers, embeds each chunk, and upserts the
// results into the vector store. The pipeline is invoked by the
// `uiguide ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// PageRecord is one page of a source PDF after extraction. Records with
// empty or too-short text never leave the extractor.
type PageRecord struct {
	// Text is the extracted (or OCR-recognised) page text.
	Text string

	// PageIndex is the zero-based page index within the PDF.
	PageIndex int

	// PageNo is the one-based page number (PageIndex + 1).
	PageNo int

	// OCRUsed is true when the text came from the OCR fallback path.
	OCRUsed bool

	// DocumentName is the display name of the source PDF.
	DocumentName string

	// Institution is the institution label applied to every page.
	Institution string

	// Source is the file path of the source PDF.
	Source string

	// PDFMeta holds document-level PDF metadata (title, author, creationDate).
	PDFMeta map[string]string
}

// PageStats counts how each page of a document (or batch) was classified.
// Every page lands in exactly one of Text, OCR, Empty, or Short.
type PageStats struct {
	// Total is the number of pages seen.
	Total int
	// Text is the number of pages with directly extractable text.
	Text int
	// OCR is the number of pages recovered via the OCR fallback.
	OCR int
	// Empty is the number of pages dropped for having no text at all.
	Empty int
	// Short is the number of pages dropped for text below the minimum length.
	Short int
}

// Add accumulates other into s.
func (s *PageStats) Add(other PageStats) {
	s.Total += other.Total
	s.Text += other.Text
	s.OCR += other.OCR
	s.Empty += other.Empty
	s.Short += other.Short
}

// pageClass is the classification bucket for one extracted page.
type pageClass int

const (
	classEmpty pageClass = iota
	classShort
	classText
	classOCR
)

// kept reports whether a page of this class survives extraction.
func (c pageClass) kept() bool { return c == classText || c == classOCR }

// classifyPage buckets a page by its final (trimmed) text and origin. Empty
// pages are dropped, pages below minChars are dropped as short regardless of
// how the text was obtained, and kept pages are attributed to the direct or
// OCR path.
func classifyPage(text string, ocrUsed bool, minChars int) pageClass {
	switch {
	case text == "":
		return classEmpty
	case len(text) < minChars:
		return classShort
	case ocrUsed:
		return classOCR
	default:
		return classText
	}
}

// count records one page of the given class.
func (s *PageStats) count(c pageClass) {
	s.Total++
	switch c {
	case classEmpty:
		s.Empty++
	case classShort:
		s.Short++
	case classOCR:
		s.OCR++
	default:
		s.Text++
	}
}

// DocumentExtractor turns a source PDF into an ordered sequence of usable
// PageRecords plus classification statistics. The pipeline depends on this
// interface so tests can run without PDF fixtures.
type DocumentExtractor interface {
	// Extract reads the PDF at path and returns its usable pages in order.
	// Pages classified empty or short are dropped but still counted in stats.
	Extract(ctx context.Context, path, documentName string) ([]PageRecord, PageStats, error)
}

// ExtractorConfig holds the settings for the MuPDF extractor.
type ExtractorConfig struct {
	// MinChars is the minimum text length for a page to be kept.
	// Defaults to 20 if zero.
	MinChars int

	// OCREnabled turns on the rasterise-and-recognise fallback for pages
	// with no extractable text.
	OCREnabled bool

	// OCRLanguage is the Tesseract language code (default: "eng").
	OCRLanguage string

	// OCRDPI is the rasterisation resolution for the OCR path.
	// Defaults to 200 if zero.
	OCRDPI float64

	// Institution is the label stamped onto every page's metadata.
	Institution string
}

// Extractor extracts page text from PDFs via MuPDF, with a Tesseract OCR
// fallback for scanned pages. It implements DocumentExtractor.
type Extractor struct {
	// cfg holds the resolved extractor configuration.
	cfg ExtractorConfig
}

// NewExtractor constructs an Extractor, applying defaults for zero values.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	if cfg.MinChars <= 0 {
		cfg.MinChars = 20
	}
	if cfg.OCRLanguage == "" {
		cfg.OCRLanguage = "eng"
	}
	if cfg.OCRDPI <= 0 {
		cfg.OCRDPI = 200
	}
	return &Extractor{cfg: cfg}
}

// pdfMetaKeys are the document-level metadata fields carried onto every page.
var pdfMetaKeys = []string{"title", "author", "subject", "creator", "producer", "creationDate", "modDate"}

// Extract opens the PDF and walks its pages. Direct text extraction is tried
// first; when it yields nothing and OCR is enabled, the page is rasterised
// and recognised. Pages that remain empty, or fall below MinChars, are
// dropped and counted. A failure to open or read the document is returned to
// the caller, which records the document as skipped.
func (e *Extractor) Extract(ctx context.Context, path, documentName string) ([]PageRecord, PageStats, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, PageStats{}, fmt.Errorf("ingestion: open %s: %w", path, err)
	}
	defer doc.Close()

	meta := make(map[string]string)
	for k, v := range doc.Metadata() {
		for _, want := range pdfMetaKeys {
			if k == want && v != "" {
				meta[k] = v
			}
		}
	}

	var ocr *gosseract.Client
	if e.cfg.OCREnabled {
		ocr = gosseract.NewClient()
		defer ocr.Close()
		if err := ocr.SetLanguage(e.cfg.OCRLanguage); err != nil {
			return nil, PageStats{}, fmt.Errorf("ingestion: OCR language %q: %w", e.cfg.OCRLanguage, err)
		}
	}

	var (
		pages []PageRecord
		stats PageStats
	)

	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("ingestion: extract %s: %w", path, err)
		}

		text, err := doc.Text(i)
		if err != nil {
			text = ""
		}
		text = strings.TrimSpace(text)
		ocrUsed := false

		if text == "" && ocr != nil {
			recognised, err := e.recognisePage(doc, ocr, i)
			if err == nil && recognised != "" {
				text = recognised
				ocrUsed = true
			}
		}

		class := classifyPage(text, ocrUsed, e.cfg.MinChars)
		stats.count(class)
		if !class.kept() {
			continue
		}

		pages = append(pages, PageRecord{
			Text:         text,
			PageIndex:    i,
			PageNo:       i + 1,
			OCRUsed:      ocrUsed,
			DocumentName: documentName,
			Institution:  e.cfg.Institution,
			Source:       path,
			PDFMeta:      meta,
		})
	}

	return pages, stats, nil
}

// recognisePage rasterises page i at the configured DPI and runs Tesseract
// over the image. Returns the trimmed recognised text.
func (e *Extractor) recognisePage(doc *fitz.Document, ocr *gosseract.Client, i int) (string, error) {
	png, err := doc.ImagePNG(i, e.cfg.OCRDPI)
	if err != nil {
		return "", fmt.Errorf("ingestion: rasterise page %d: %w", i+1, err)
	}
	if err := ocr.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("ingestion: load page image %d: %w", i+1, err)
	}
	text, err := ocr.Text()
	if err != nil {
		return "", fmt.Errorf("ingestion: recognise page %d: %w", i+1, err)
	}
	return strings.TrimSpace(text), nil
}
