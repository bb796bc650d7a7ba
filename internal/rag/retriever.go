package rag

import (
	"context"
	"fmt"
)

// Retrieval defaults matching the agent's citation behaviour: pull a wide
// candidate pool and keep a small, diverse final set.
const (
	// DefaultTopK is the number of documents returned per query.
	DefaultTopK = 4
	// DefaultFetchK is the candidate pool size fetched before MMR selection.
	DefaultFetchK = 20
	// DefaultLambda is the MMR relevance/diversity mixing parameter.
	DefaultLambda = 0.5
)

// MMRRetriever implements the Retriever interface by combining an Embedder
// and a VectorStore. It embeds the query at retrieval time, fetches a larger
// candidate pool from the store, and selects the final results with maximal
// marginal relevance so near-duplicate passages from the same page are not
// returned together.
type MMRRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int

	// fetchK is the candidate pool size requested from the store.
	fetchK int

	// lambda trades relevance (1.0) against diversity (0.0).
	lambda float32
}

// NewMMRRetriever constructs an MMRRetriever from the given Embedder and
// VectorStore. Zero values for topK, fetchK, and lambda select the package
// defaults.
func NewMMRRetriever(embedder Embedder, store VectorStore, topK, fetchK int, lambda float32) (*MMRRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if fetchK <= 0 {
		fetchK = DefaultFetchK
	}
	if fetchK < topK {
		fetchK = topK
	}
	if lambda <= 0 {
		lambda = DefaultLambda
	}
	return &MMRRetriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: topK,
		fetchK:      fetchK,
		lambda:      lambda,
	}, nil
}

// Retrieve embeds the query and returns the top-k most relevant documents
// after MMR re-ranking. If topK is 0 the configured default is used.
func (r *MMRRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if query == "" {
		return nil, fmt.Errorf("rag: query must not be empty")
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	cands, err := r.store.Candidates(ctx, embeddings[0], r.fetchK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	return MaximalMarginalRelevance(embeddings[0], cands, topK, r.lambda), nil
}
