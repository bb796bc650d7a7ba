// Package rag defines the interfaces for retrieval-augmented generation
// components: vector storage, document retrieval, and embedding.
// Concrete implementations (Qdrant, etc.) satisfy these interfaces so the
// agent layer never depends on a specific backend.
package rag

import (
	"context"
)

// Document represents a unit of retrieved or stored knowledge — one chunk of
// one page of one source PDF.
type Document struct {
	// ID is the content-addressed identifier for this chunk (40-char hex).
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// DocumentName is the display name of the source PDF.
	DocumentName string

	// PageNo is the one-based page number the chunk was extracted from.
	PageNo int

	// Source is the file path of the source PDF.
	Source string

	// Metadata holds additional key-value pairs (institution, PDF author,
	// creation date, ocr flag, etc.).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval (0.0–1.0).
	// Zero value means the score was not computed.
	Score float32
}

// Candidate is a search result carrying its stored embedding vector, as
// required by diversity-aware re-ranking.
type Candidate struct {
	Document

	// Vector is the stored embedding for this document.
	Vector []float32
}

// VectorStore is the interface for persisting and searching document embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed
	// embeddings. The embeddings slice must be parallel to docs —
	// embeddings[i] is the vector for docs[i]. Documents with identical IDs
	// overwrite each other, which is what makes re-ingestion idempotent.
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search performs a semantic similarity search and returns the top-k
	// most relevant documents for the given query embedding.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// Candidates returns the fetchK nearest documents together with their
	// stored vectors so the caller can re-rank for diversity.
	Candidates(ctx context.Context, queryEmbedding []float32, fetchK int) ([]Candidate, error)

	// DocumentNames returns the distinct source document display names
	// currently present in the store.
	DocumentNames(ctx context.Context) ([]string, error)

	// Count returns the number of vectors in the store.
	Count(ctx context.Context) (uint64, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the agent to fetch relevant
// passages for a given query. It combines embedding and vector search.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the given query.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}
