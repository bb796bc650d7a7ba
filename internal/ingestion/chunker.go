package ingestion

import (
	"strings"
)

// splitSeparators is the priority-ordered separator list the chunker splits
// on: paragraph break, line break, sentence end, word boundary, and finally
// individual characters when nothing else fits.
var splitSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunk is a bounded passage of one page's text with the page metadata
// copied onto it. Chunks are immutable after creation; re-chunking produces
// new instances.
type Chunk struct {
	// ID is the content-addressed chunk identifier. Assigned by the pipeline
	// after chunking via ChunkID.
	ID string

	// Content is the chunk text.
	Content string

	// Page carries the originating page's metadata.
	Page PageRecord
}

// Chunker splits page text into chunks of at most Size characters with
// Overlap characters shared between consecutive chunks from the same page.
type Chunker struct {
	// Size is the target maximum chunk length in bytes. Defaults to 1000.
	Size int

	// Overlap is the number of bytes carried over between consecutive
	// chunks. Defaults to 100; clamped below Size.
	Overlap int
}

// NewChunker constructs a Chunker, applying defaults and clamping the
// overlap below the chunk size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Split chunks every page in order and returns the combined chunk sequence.
// A page shorter than the chunk size yields exactly one chunk.
func (c *Chunker) Split(pages []PageRecord) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		for _, text := range c.splitText(page.Text, splitSeparators) {
			chunks = append(chunks, Chunk{Content: text, Page: page})
		}
	}
	return chunks
}

// splitText recursively splits text on the first separator present, merging
// the resulting pieces back together up to the chunk size. Pieces still
// longer than the chunk size are re-split with the remaining separators.
func (c *Chunker) splitText(text string, separators []string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.Size {
		return []string{text}
	}

	sep := separators[len(separators)-1]
	rest := separators
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	splits := splitKeepSeparator(text, sep)

	var (
		out  []string
		good []string
	)
	flush := func() {
		out = append(out, c.merge(good)...)
		good = good[:0]
	}

	for _, piece := range splits {
		if len(piece) <= c.Size {
			good = append(good, piece)
			continue
		}
		// Oversized piece: emit what we have, then recurse with finer separators.
		flush()
		if len(rest) == 0 {
			out = append(out, piece)
			continue
		}
		out = append(out, c.splitText(piece, rest)...)
	}
	flush()

	return out
}

// merge greedily joins consecutive pieces into chunks of at most Size bytes.
// When a chunk is emitted, trailing pieces totalling up to Overlap bytes are
// retained as the start of the next chunk.
func (c *Chunker) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)

	emit := func() {
		joined := strings.TrimSpace(strings.Join(current, ""))
		if joined != "" {
			out = append(out, joined)
		}
	}

	for _, p := range pieces {
		if total+len(p) > c.Size && total > 0 {
			emit()
			// Drop from the front until the retained tail fits the overlap
			// budget and leaves room for the incoming piece.
			for total > c.Overlap || (total+len(p) > c.Size && total > 0) {
				total -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += len(p)
	}
	emit()

	return out
}

// splitKeepSeparator splits text on sep, keeping the separator attached to
// the end of each piece so that joining the pieces reproduces the input.
// An empty separator splits into individual characters.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		return strings.Split(text, "")
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
