package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload keys used for the structured chunk fields. Everything else in the
// payload is treated as free-form metadata.
const (
	payloadContent  = "content"
	payloadDocument = "document_name"
	payloadPage     = "page_no"
	payloadSource   = "source"
	payloadChunkID  = "chunk_id"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it if necessary), and returns a ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// Client exposes the underlying gRPC client for health probes.
func (s *QdrantStore) Client() *qdrant.Client { return s.client }

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// pointUUID maps a content-addressed hex chunk ID onto a deterministic UUID,
// since Qdrant point IDs must be UUIDs or integers. The mapping uses the
// first 16 bytes of the hash, so identical chunks always map to the same
// point and an unchanged re-ingest is a pure overwrite.
func pointUUID(id string) string {
	if len(id) >= 32 {
		return id[0:8] + "-" + id[8:12] + "-" + id[12:16] + "-" + id[16:20] + "-" + id[20:32]
	}
	// Non-hash ID (should not happen in practice) — derive a stable UUID anyway.
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// Upsert stores or updates a batch of documents with their embeddings.
// embeddings[i] must be the vector for docs[i].
func (s *QdrantStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("qdrant: %d documents but %d embeddings", len(docs), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		payload := map[string]interface{}{
			payloadContent:  doc.Content,
			payloadDocument: doc.DocumentName,
			payloadPage:     doc.PageNo,
			payloadSource:   doc.Source,
			payloadChunkID:  doc.ID,
		}
		for k, v := range doc.Metadata {
			payload[k] = v
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointUUID(doc.ID)),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Search performs a cosine similarity search and returns the top-k results.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	limit := uint64(topK) //nolint:gosec // topK is a small positive config value
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, documentFromPayload(r.Payload, r.Score))
	}

	return docs, nil
}

// Candidates performs a cosine similarity search returning the fetchK nearest
// documents together with their stored vectors, as needed by MMR re-ranking.
func (s *QdrantStore) Candidates(ctx context.Context, queryEmbedding []float32, fetchK int) ([]Candidate, error) {
	limit := uint64(fetchK) //nolint:gosec // fetchK is a small positive config value
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: candidate search failed: %w", err)
	}

	cands := make([]Candidate, 0, len(results))
	for _, r := range results {
		c := Candidate{Document: documentFromPayload(r.Payload, r.Score)}
		if v := r.Vectors.GetVector(); v != nil {
			c.Vector = v.GetData()
		}
		cands = append(cands, c)
	}

	return cands, nil
}

// DocumentNames scrolls the full collection payload and returns the distinct
// document display names, in first-seen order.
func (s *QdrantStore) DocumentNames(ctx context.Context) ([]string, error) {
	var (
		names  []string
		seen   = make(map[string]bool)
		offset *qdrant.PointId
	)

	for {
		resp, err := s.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.cfg.Collection,
			Limit:          qdrant.PtrOf(uint32(256)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude(payloadDocument),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: scroll failed: %w", err)
		}

		for _, p := range resp.GetResult() {
			if v, ok := p.Payload[payloadDocument]; ok {
				name := v.GetStringValue()
				if name != "" && !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	return names, nil
}

// Count returns the exact number of vectors in the collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return n, nil
}

// Delete removes documents from the collection by their chunk IDs.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(pointUUID(id)))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete failed: %w", err)
	}

	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// documentFromPayload reconstructs a Document from a Qdrant point payload.
func documentFromPayload(payload map[string]*qdrant.Value, score float32) Document {
	doc := Document{
		Score:    score,
		Metadata: make(map[string]string),
	}
	for k, v := range payload {
		switch k {
		case payloadContent:
			doc.Content = v.GetStringValue()
		case payloadDocument:
			doc.DocumentName = v.GetStringValue()
		case payloadPage:
			doc.PageNo = int(v.GetIntegerValue())
			if doc.PageNo == 0 {
				// Payload written by an older revision stored the page as a string.
				if n, err := strconv.Atoi(v.GetStringValue()); err == nil {
					doc.PageNo = n
				}
			}
		case payloadSource:
			doc.Source = v.GetStringValue()
		case payloadChunkID:
			doc.ID = v.GetStringValue()
		default:
			doc.Metadata[k] = v.GetStringValue()
		}
	}
	return doc
}
