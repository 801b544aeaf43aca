// Package knowledge mirrors a collection's section structure into neo4j so
// callers can inspect how an ingested document was partitioned.
package knowledge

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type Structure struct {
	Collection string
	Source     string
	Sections   []Section
}

type Section struct {
	Title      string
	Order      int
	ChunkCount int
	HasTable   bool
}

// SyncStructure replaces the stored section inventory of a collection.
func SyncStructure(ctx context.Context, driver neo4j.DriverWithContext, structure Structure) error {
	if driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}
	if structure.Collection == "" {
		return fmt.Errorf("collection name is empty")
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (c:Collection {name: $name})
			SET c.source = $source,
			    c.updated_at = datetime()
		`, map[string]any{
			"name":   structure.Collection,
			"source": structure.Source,
		}); err != nil {
			return nil, fmt.Errorf("upsert collection node: %w", err)
		}

		if _, err := tx.Run(ctx, `
			MATCH (c:Collection {name: $name})-[:HAS_SECTION]->(s:Section)
			DETACH DELETE s
		`, map[string]any{"name": structure.Collection}); err != nil {
			return nil, fmt.Errorf("clear existing sections: %w", err)
		}

		for _, section := range structure.Sections {
			if _, err := tx.Run(ctx, `
				MATCH (c:Collection {name: $name})
				CREATE (s:Section {
					title: $title,
					chunk_count: $chunk_count,
					has_table: $has_table
				})
				CREATE (c)-[:HAS_SECTION {order: $order}]->(s)
			`, map[string]any{
				"name":        structure.Collection,
				"title":       section.Title,
				"order":       section.Order,
				"chunk_count": section.ChunkCount,
				"has_table":   section.HasTable,
			}); err != nil {
				return nil, fmt.Errorf("create section node: %w", err)
			}
		}

		return nil, nil
	})

	return err
}

// DeleteStructure removes a collection's node and its sections, typically
// alongside tearing down the vector-store collection itself.
func DeleteStructure(ctx context.Context, driver neo4j.DriverWithContext, collection string) error {
	if driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MATCH (c:Collection {name: $name})
			OPTIONAL MATCH (c)-[:HAS_SECTION]->(s:Section)
			DETACH DELETE c, s
		`, map[string]any{"name": collection}); err != nil {
			return nil, fmt.Errorf("delete collection structure: %w", err)
		}
		return nil, nil
	})

	return err
}
