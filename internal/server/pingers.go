package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// OllamaPinger probes a local Ollama instance with a zero-cost GET /api/tags
// request. Used when the chat or embedding backend runs on Ollama.
type OllamaPinger struct {
	// host is the Ollama base URL (e.g. "http://localhost:11434").
	host string
	// client is the HTTP client used for probes.
	client *http.Client
}

// NewOllamaPinger constructs an OllamaPinger for the given Ollama host.
func NewOllamaPinger(host string) *OllamaPinger {
	return &OllamaPinger{host: host, client: http.DefaultClient}
}

// Name returns the dependency label used in readiness responses.
func (p *OllamaPinger) Name() string { return "ollama" }

// Ping issues GET /api/tags against the Ollama host. The endpoint lists
// installed models without invoking any of them, so probing is free.
func (p *OllamaPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// IndexPinger reports readiness of the document index itself: the store must
// be reachable and hold at least one vector. A reachable but empty index
// means ingestion has not run, so chat answers would be source-free.
type IndexPinger struct {
	// counter reports the number of vectors in the collection.
	counter interface {
		Count(ctx context.Context) (uint64, error)
	}
}

// NewIndexPinger constructs an IndexPinger over the given vector store.
func NewIndexPinger(counter interface {
	Count(ctx context.Context) (uint64, error)
}) *IndexPinger {
	return &IndexPinger{counter: counter}
}

// Name returns the dependency label used in readiness responses.
func (p *IndexPinger) Name() string { return "index" }

// Ping fails when the collection is unreachable or empty.
func (p *IndexPinger) Ping(ctx context.Context) error {
	n, err := p.counter.Count(ctx)
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("index is empty, run `uiguide ingest` first")
	}
	return nil
}
