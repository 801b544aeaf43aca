package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/fabfab/policy-rag/chat"
	"github.com/fabfab/policy-rag/config"
	"github.com/fabfab/policy-rag/database"
	"github.com/fabfab/policy-rag/embeddings"
	"github.com/fabfab/policy-rag/ingestion"
	"github.com/fabfab/policy-rag/knowledge"
	"github.com/fabfab/policy-rag/llm"
	"github.com/fabfab/policy-rag/vectorstore"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "outline":
		outlineCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: policy-rag <command> [flags]")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  ingest   -file <doc.pdf|doc.docx|doc.txt> [-collection <name>]  index a document")
	fmt.Println("  ask      -collection <name> <question> [question ...]           answer questions")
	fmt.Println("  outline  -collection <name>                                     show indexed sections")
	fmt.Println("  clear    -collection <name> -confirm                            delete a collection")
}

func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	file := flags.String("file", "", "path to the document to ingest")
	collection := flags.String("collection", "", "collection name (default: derived from a fresh id)")
	chunkSize := flags.Int("chunk-size", cfg.Chunking.ChunkSize, "target chunk size in characters")
	overlap := flags.Int("overlap", cfg.Chunking.ChunkOverlap, "overlap carried between chunks in characters")
	batchSize := flags.Int("batch", cfg.Chunking.BatchSize, "records per vector-store batch")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}
	if *file == "" {
		logger.Fatal("ingest requires -file")
	}
	if *collection == "" {
		*collection = "doc_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	}

	ctx, cancel := newContext()
	defer cancel()

	text, err := ingestion.ReadDocument(*file)
	if err != nil {
		logger.Fatalf("read document: %v", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	driver := newGraphDriver(ctx, cfg, logger)
	if driver != nil {
		defer driver.Close(ctx)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	store := vectorstore.NewPostgresStore(pool, embedder, cfg.Embeddings.Dimension, logger)
	svc := ingestion.NewService(store, driver, nil, logger)

	logger.Printf("ingesting %s into collection %s using %s/%s embeddings",
		*file, *collection, strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model)

	count, err := svc.IngestDocument(ctx, text, *collection, vectorstore.Metadata{Source: filepath.Base(*file)}, ingestion.Options{
		ChunkSize:    *chunkSize,
		ChunkOverlap: *overlap,
		BatchSize:    *batchSize,
	})
	if err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}

	fmt.Printf("ingested %d chunks into %s\n", count, *collection)
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	collection := flags.String("collection", "", "collection to query")
	nChunks := flags.Int("n", 3, "passages retrieved per question")
	history := flags.String("history", "", "prior conversation carried into the prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}
	questions := flags.Args()
	if *collection == "" || len(questions) == 0 {
		logger.Fatal("ask requires -collection and at least one question")
	}

	ctx, cancel := newContext()
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	driver := newGraphDriver(ctx, cfg, logger)
	if driver != nil {
		defer driver.Close(ctx)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	store := vectorstore.NewPostgresStore(pool, embedder, cfg.Embeddings.Dimension, logger)
	var graph chat.GraphStore
	if driver != nil {
		graph = chat.NewNeo4jGraphStore(driver)
	}
	svc := chat.NewService(store, graph, llmClient, logger)

	results := svc.AnswerBatch(ctx, *collection, questions, *nChunks, *history)
	for i, result := range results {
		fmt.Printf("%d. %s\n", i+1, result.Answer)
	}
	if len(results) > 0 && len(results[0].Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(results[0].Sources, ", "))
	}
}

func outlineCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("outline", flag.ExitOnError)
	collection := flags.String("collection", "", "collection to inspect")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse outline flags: %v", err)
	}
	if *collection == "" {
		logger.Fatal("outline requires -collection")
	}

	ctx, cancel := newContext()
	defer cancel()

	driver, err := database.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		logger.Fatalf("neo4j connection: %v", err)
	}
	defer driver.Close(ctx)

	sections, err := chat.NewNeo4jGraphStore(driver).Outline(ctx, *collection)
	if err != nil {
		logger.Fatalf("outline failed: %v", err)
	}
	if len(sections) == 0 {
		fmt.Printf("no indexed sections for %s\n", *collection)
		return
	}

	for _, section := range sections {
		kind := "text"
		if section.HasTable {
			kind = "table"
		}
		fmt.Printf("%3d. %-50s %3d chunks  [%s]\n", section.Order+1, section.Title, section.ChunkCount, kind)
	}
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	collection := flags.String("collection", "", "collection to delete")
	confirm := flags.Bool("confirm", false, "actually delete the collection")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}
	if *collection == "" {
		logger.Fatal("clear requires -collection")
	}
	if !*confirm {
		logger.Fatal("refusing to delete without -confirm")
	}

	ctx, cancel := newContext()
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	store := vectorstore.NewPostgresStore(pool, embedder, cfg.Embeddings.Dimension, logger)
	if err := store.DeleteCollection(ctx, *collection); err != nil {
		logger.Fatalf("delete collection: %v", err)
	}

	if driver := newGraphDriver(ctx, cfg, logger); driver != nil {
		defer driver.Close(ctx)
		if err := knowledge.DeleteStructure(ctx, driver, *collection); err != nil {
			logger.Printf("structure graph cleanup failed: %v", err)
		}
	}

	fmt.Printf("deleted collection %s\n", *collection)
}

// newGraphDriver returns nil when the structure graph is unavailable; every
// caller treats a nil driver as "feature disabled".
func newGraphDriver(ctx context.Context, cfg config.Config, logger *log.Logger) neo4j.DriverWithContext {
	driver, err := database.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		logger.Printf("structure graph disabled: %v", err)
		return nil
	}
	return driver
}
