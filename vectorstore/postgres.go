package vectorstore

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/fabfab/policy-rag/database"
	"github.com/fabfab/policy-rag/embeddings"
)

// PostgresStore keeps chunks of all collections in one pgvector-indexed table,
// partitioned by the collection column. Embedding of stored and queried text
// happens here, through the injected embedder.
type PostgresStore struct {
	pool      *pgxpool.Pool
	embedder  embeddings.Embedder
	dimension int
	logger    *log.Logger

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(pool *pgxpool.Pool, embedder embeddings.Embedder, dimension int, logger *log.Logger) *PostgresStore {
	if logger == nil {
		logger = log.Default()
	}
	return &PostgresStore{
		pool:      pool,
		embedder:  embedder,
		dimension: dimension,
		logger:    logger,
	}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		s.schemaErr = database.EnsureSchema(ctx, s.pool, s.dimension)
	})
	return s.schemaErr
}

func (s *PostgresStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if s.embedder == nil {
		return fmt.Errorf("embedder is not configured")
	}
	if collection == "" {
		return fmt.Errorf("collection name is empty")
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("embedding count mismatch: have %d records, %d vectors", len(records), len(vectors))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Printf("rollback error: %v", rbErr)
			}
		}
	}()

	for i, rec := range records {
		if _, err = tx.Exec(ctx, `
			INSERT INTO rag_chunks (id, collection, chunk_number, section, chunk_type, source, extra, content, embedding, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			ON CONFLICT (id) DO UPDATE SET
				collection = EXCLUDED.collection,
				chunk_number = EXCLUDED.chunk_number,
				section = EXCLUDED.section,
				chunk_type = EXCLUDED.chunk_type,
				source = EXCLUDED.source,
				extra = EXCLUDED.extra,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				updated_at = NOW()
		`, rec.ID, collection, rec.Metadata.ChunkNumber, rec.Metadata.Section, rec.Metadata.ChunkType,
			rec.Metadata.Source, rec.Metadata.Extra, rec.Text, pgvector.NewVector(vectors[i])); err != nil {
			err = fmt.Errorf("upsert chunk %s: %w", rec.ID, err)
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}

	return nil
}

func (s *PostgresStore) Search(ctx context.Context, collection string, queryTexts []string, k int) ([][]SearchHit, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}
	if len(queryTexts) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 3
	}

	vectors, err := s.embedder.Embed(ctx, queryTexts)
	if err != nil {
		return nil, fmt.Errorf("embed queries: %w", err)
	}
	if len(vectors) != len(queryTexts) {
		return nil, fmt.Errorf("embedding count mismatch: have %d queries, %d vectors", len(queryTexts), len(vectors))
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := k * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	results := make([][]SearchHit, len(queryTexts))
	for i := range queryTexts {
		hits, err := s.searchOne(ctx, conn, collection, vectors[i], k)
		if err != nil {
			return nil, err
		}
		results[i] = hits
	}

	return results, nil
}

func (s *PostgresStore) searchOne(ctx context.Context, conn *pgxpool.Conn, collection string, vector []float32, k int) ([]SearchHit, error) {
	rows, err := conn.Query(ctx, `
		SELECT content, source, section, chunk_type, chunk_number, extra,
		       (embedding <-> $2::vector) AS distance
		FROM rag_chunks
		WHERE collection = $1
		ORDER BY embedding <-> $2::vector
		LIMIT $3
	`, collection, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	hits := make([]SearchHit, 0, k)
	for rows.Next() {
		var hit SearchHit
		if err := rows.Scan(&hit.Text, &hit.Metadata.Source, &hit.Metadata.Section, &hit.Metadata.ChunkType,
			&hit.Metadata.ChunkNumber, &hit.Metadata.Extra, &hit.Distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		hits = append(hits, hit)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return hits, nil
}

func (s *PostgresStore) DeleteCollection(ctx context.Context, collection string) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if collection == "" {
		return fmt.Errorf("collection name is empty")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	if _, err := s.pool.Exec(ctx, "DELETE FROM rag_chunks WHERE collection = $1", collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", collection, err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
