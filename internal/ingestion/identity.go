package ingestion

import (
	"crypto/sha1" //nolint:gosec // content addressing, not authentication
	"fmt"
)

// ChunkID derives the content-addressed identifier for a chunk from its
// (document name, page number, content) triple. The hash is taken over the
// UTF-8 bytes of the pipe-joined fields, so the identifier is stable across
// runs and process restarts: re-ingesting unchanged input produces identical
// IDs and the vector-store upsert becomes a no-op overwrite, while any
// content change yields a new identifier.
func ChunkID(documentName string, pageNo int, content string) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%s", documentName, pageNo, content))) //nolint:gosec // see above
	return fmt.Sprintf("%x", h)
}
