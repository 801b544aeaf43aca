package vectorstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/fabfab/policy-rag/embeddings"
	"github.com/fabfab/policy-rag/vectorstore"
)

// mapEmbedder returns a fixed vector per known text, making search distances
// fully deterministic.
type mapEmbedder struct {
	vectors map[string][]float32
}

func (e *mapEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := e.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

var _ embeddings.Embedder = (*mapEmbedder)(nil)

func record(t *testing.T, id, text string) vectorstore.Record {
	t.Helper()
	rec, err := vectorstore.NewRecord(id, text, vectorstore.Metadata{Source: "policy.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestMemoryStoreSearchOrdering(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"hospital cover": {1, 0},
		"dental clause":  {0, 1},
		"room rent cap":  {0.9, 0.1},
		"query":          {1, 0},
	}}
	store := vectorstore.NewMemoryStore(embedder)
	ctx := context.Background()

	err := store.Upsert(ctx, "policy", []vectorstore.Record{
		record(t, "policy_chunk_0", "hospital cover"),
		record(t, "policy_chunk_1", "dental clause"),
		record(t, "policy_chunk_2", "room rent cap"),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	results, err := store.Search(ctx, "policy", []string{"query"}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one hit list per query, got %d", len(results))
	}

	hits := results[0]
	if len(hits) != 2 {
		t.Fatalf("expected k=2 hits, got %d", len(hits))
	}
	if hits[0].Text != "hospital cover" || hits[1].Text != "room rent cap" {
		t.Fatalf("hits not ordered by distance: %q, %q", hits[0].Text, hits[1].Text)
	}
	if hits[0].Distance > hits[1].Distance {
		t.Fatalf("distances not ascending: %v, %v", hits[0].Distance, hits[1].Distance)
	}
	if hits[0].Metadata.Source != "policy.pdf" {
		t.Fatalf("metadata lost in search: %+v", hits[0].Metadata)
	}
}

func TestMemoryStoreUpsertIsIdempotent(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"first version":  {1, 0},
		"second version": {0, 1},
		"query":          {0, 1},
	}}
	store := vectorstore.NewMemoryStore(embedder)
	ctx := context.Background()

	if err := store.Upsert(ctx, "policy", []vectorstore.Record{record(t, "policy_chunk_0", "first version")}); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, "policy", []vectorstore.Record{record(t, "policy_chunk_0", "second version")}); err != nil {
		t.Fatal(err)
	}

	if n := store.Count("policy"); n != 1 {
		t.Fatalf("expected re-upsert to replace by id, got %d records", n)
	}

	results, err := store.Search(ctx, "policy", []string{"query"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0][0].Text != "second version" {
		t.Fatalf("expected the replacement record, got %q", results[0][0].Text)
	}
}

func TestMemoryStoreCollectionsAreIsolated(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{
		"clause": {1, 0},
		"query":  {1, 0},
	}}
	store := vectorstore.NewMemoryStore(embedder)
	ctx := context.Background()

	if err := store.Upsert(ctx, "policy_a", []vectorstore.Record{record(t, "policy_a_chunk_0", "clause")}); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "policy_b", []string{"query"}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results[0]) != 0 {
		t.Fatalf("expected no hits from another collection, got %d", len(results[0]))
	}
}

func TestMemoryStoreDeleteCollection(t *testing.T) {
	embedder := &mapEmbedder{vectors: map[string][]float32{"clause": {1, 0}}}
	store := vectorstore.NewMemoryStore(embedder)
	ctx := context.Background()

	if err := store.Upsert(ctx, "policy", []vectorstore.Record{record(t, "policy_chunk_0", "clause")}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteCollection(ctx, "policy"); err != nil {
		t.Fatal(err)
	}
	if n := store.Count("policy"); n != 0 {
		t.Fatalf("expected empty collection after delete, got %d records", n)
	}
}

func TestMemoryStoreUpsertValidation(t *testing.T) {
	store := vectorstore.NewMemoryStore(&mapEmbedder{vectors: map[string][]float32{}})

	if err := store.Upsert(context.Background(), "", nil); err == nil {
		t.Fatal("expected an error for an empty collection name")
	}

	unconfigured := vectorstore.NewMemoryStore(nil)
	if err := unconfigured.Upsert(context.Background(), "policy", []vectorstore.Record{record(t, "id", "text")}); err == nil {
		t.Fatal("expected an error without an embedder")
	}
}
