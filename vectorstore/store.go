// Package vectorstore defines the vector-search collaborator used by both the
// ingestion and query paths: upsert-by-id, batched nearest-neighbor search by
// query text, and collection teardown.
package vectorstore

import (
	"context"
	"fmt"
)

const (
	ChunkTypeText  = "text"
	ChunkTypeTable = "table"
)

// Metadata is the structured record metadata carried by every stored chunk.
// Source comes from the caller; Section, ChunkType and ChunkNumber are filled
// in by the ingestion pipeline. Extra holds any additional caller-supplied
// fields.
type Metadata struct {
	Source      string
	Section     string
	ChunkType   string
	ChunkNumber int
	Extra       map[string]string
}

func (m Metadata) Validate() error {
	switch m.ChunkType {
	case "", ChunkTypeText, ChunkTypeTable:
	default:
		return fmt.Errorf("invalid chunk type %q", m.ChunkType)
	}
	if m.ChunkNumber < 0 {
		return fmt.Errorf("negative chunk number %d", m.ChunkNumber)
	}
	return nil
}

// Record is one immutable ingested chunk. IDs are unique within a collection.
type Record struct {
	ID       string
	Text     string
	Metadata Metadata
}

func NewRecord(id, text string, meta Metadata) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record id is empty")
	}
	if text == "" {
		return Record{}, fmt.Errorf("record %s has empty text", id)
	}
	if err := meta.Validate(); err != nil {
		return Record{}, fmt.Errorf("record %s: %w", id, err)
	}
	return Record{ID: id, Text: text, Metadata: meta}, nil
}

// SearchHit is one retrieved neighbor. Lower distance means closer.
type SearchHit struct {
	Text     string
	Metadata Metadata
	Distance float64
}

// Store is the vector-store collaborator. Upsert is idempotent by record id
// but not assumed transactional across a batch. Search issues one batched
// nearest-neighbor query and returns one ordered hit list per query text.
type Store interface {
	Upsert(ctx context.Context, collection string, records []Record) error
	Search(ctx context.Context, collection string, queryTexts []string, k int) ([][]SearchHit, error)
	DeleteCollection(ctx context.Context, collection string) error
}
