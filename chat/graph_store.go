package chat

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphStore reads the section inventory the ingestion path records for a
// collection.
type GraphStore interface {
	Outline(ctx context.Context, collection string) ([]SectionInfo, error)
}

type Neo4jGraphStore struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jGraphStore(driver neo4j.DriverWithContext) *Neo4jGraphStore {
	return &Neo4jGraphStore{driver: driver}
}

func (s *Neo4jGraphStore) Outline(ctx context.Context, collection string) ([]SectionInfo, error) {
	if s.driver == nil {
		return nil, fmt.Errorf("neo4j driver is nil")
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (c:Collection {name: $name})-[r:HAS_SECTION]->(s:Section)
		RETURN s.title AS title,
		       r.order AS order,
		       s.chunk_count AS chunkCount,
		       s.has_table AS hasTable
		ORDER BY r.order
	`, map[string]any{"name": collection})
	if err != nil {
		return nil, fmt.Errorf("run outline query: %w", err)
	}

	sections := make([]SectionInfo, 0)
	for result.Next(ctx) {
		record := result.Record()
		titleVal, _ := record.Get("title")
		orderVal, _ := record.Get("order")
		countVal, _ := record.Get("chunkCount")
		tableVal, _ := record.Get("hasTable")

		title, ok := titleVal.(string)
		if !ok {
			continue
		}
		order, _ := toInt(orderVal)
		count, _ := toInt(countVal)
		hasTable, _ := tableVal.(bool)

		sections = append(sections, SectionInfo{
			Title:      title,
			Order:      order,
			ChunkCount: count,
			HasTable:   hasTable,
		})
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("outline result error: %w", err)
	}

	return sections, nil
}

var _ GraphStore = (*Neo4jGraphStore)(nil)

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
