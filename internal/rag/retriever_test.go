package rag

import (
	"context"
	"errors"
	"testing"
)

// fakeEmbedder returns a fixed vector per input text, or a scripted error.
type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

// fakeVectorStore serves a fixed candidate pool and records the fetchK it
// was asked for.
type fakeVectorStore struct {
	candidates []Candidate
	err        error
	lastFetchK int
}

func (f *fakeVectorStore) Upsert(context.Context, []Document, [][]float32) error { return nil }

func (f *fakeVectorStore) Search(context.Context, []float32, int) ([]Document, error) {
	return nil, nil
}

func (f *fakeVectorStore) Candidates(_ context.Context, _ []float32, fetchK int) ([]Candidate, error) {
	f.lastFetchK = fetchK
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func (f *fakeVectorStore) DocumentNames(context.Context) ([]string, error) { return nil, nil }

func (f *fakeVectorStore) Count(context.Context) (uint64, error) { return 0, nil }

func (f *fakeVectorStore) Delete(context.Context, []string) error { return nil }

func (f *fakeVectorStore) Close() error { return nil }

func Test_NewMMRRetriever_Validation(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{vector: []float32{1, 0}}
	store := &fakeVectorStore{}

	if _, err := NewMMRRetriever(nil, store, 0, 0, 0); err == nil {
		t.Fatal("expected error for nil embedder")
	}
	if _, err := NewMMRRetriever(emb, nil, 0, 0, 0); err == nil {
		t.Fatal("expected error for nil store")
	}

	r, err := NewMMRRetriever(emb, store, 0, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.defaultTopK != DefaultTopK || r.fetchK != DefaultFetchK || r.lambda != DefaultLambda {
		t.Fatalf("defaults not applied: topK=%d fetchK=%d lambda=%v", r.defaultTopK, r.fetchK, r.lambda)
	}
}

func Test_NewMMRRetriever_FetchKClampedToTopK(t *testing.T) {
	t.Parallel()

	r, err := NewMMRRetriever(&fakeEmbedder{vector: []float32{1}}, &fakeVectorStore{}, 10, 5, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.fetchK != 10 {
		t.Fatalf("fetchK = %d, want clamped to topK 10", r.fetchK)
	}
}

func Test_Retrieve_ReturnsTopKAfterReranking(t *testing.T) {
	t.Parallel()

	// "b" nearly duplicates "a"; MMR should pass it over for the diverse "c".
	store := &fakeVectorStore{
		candidates: []Candidate{
			cand("a", 0, []float32{0.9, 0.4}),
			cand("b", 0, []float32{0.9, 0.41}),
			cand("c", 0, []float32{0.7, -0.7}),
		},
	}
	r, err := NewMMRRetriever(&fakeEmbedder{vector: []float32{1, 0}}, store, 2, 20, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	docs, err := r.Retrieve(context.Background(), "hostel curfew", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if store.lastFetchK != 20 {
		t.Fatalf("store asked for fetchK=%d, want 20", store.lastFetchK)
	}
	if docs[0].ID != "a" || docs[1].ID != "c" {
		t.Fatalf("unexpected ranking: %q then %q", docs[0].ID, docs[1].ID)
	}
}

func Test_Retrieve_EmptyQuery(t *testing.T) {
	t.Parallel()

	r, _ := NewMMRRetriever(&fakeEmbedder{vector: []float32{1}}, &fakeVectorStore{}, 0, 0, 0)
	if _, err := r.Retrieve(context.Background(), "", 0); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func Test_Retrieve_EmbedderFailure(t *testing.T) {
	t.Parallel()

	embErr := errors.New("quota exceeded")
	r, _ := NewMMRRetriever(&fakeEmbedder{err: embErr}, &fakeVectorStore{}, 0, 0, 0)

	_, err := r.Retrieve(context.Background(), "admission requirements", 0)
	if !errors.Is(err, embErr) {
		t.Fatalf("expected wrapped embedder error, got %v", err)
	}
}

func Test_Retrieve_StoreFailure(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("collection not found")
	r, _ := NewMMRRetriever(&fakeEmbedder{vector: []float32{1}}, &fakeVectorStore{err: storeErr}, 0, 0, 0)

	_, err := r.Retrieve(context.Background(), "fee schedule", 0)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
