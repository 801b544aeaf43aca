package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/fabfab/policy-rag/knowledge"
	"github.com/fabfab/policy-rag/vectorstore"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultBatchSize    = 10

	// Sections shorter than this after trimming carry too little context to
	// be worth indexing.
	minSectionLength = 50
)

// ErrInvalidInput reports empty or whitespace-only document text. It is the
// only hard failure in the ingestion path; nothing is written when it occurs.
var ErrInvalidInput = errors.New("invalid or empty document text")

// Options tunes one ingestion call. Zero ChunkSize and BatchSize fall back to
// the defaults; a zero ChunkOverlap genuinely means no overlap.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = 0
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

// Service streams a document's chunks into the vector store. The neo4j
// driver is optional; when present the document's section structure is
// synced after ingestion.
type Service struct {
	store      vectorstore.Store
	driver     neo4j.DriverWithContext
	classifier Classifier
	logger     *log.Logger
}

func NewService(store vectorstore.Store, driver neo4j.DriverWithContext, classifier Classifier, logger *log.Logger) *Service {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:      store,
		driver:     driver,
		classifier: classifier,
		logger:     logger,
	}
}

// taggedChunk is one chunk annotated with its originating section.
type taggedChunk struct {
	text       string
	section    string
	chunkType  string
	sectionIdx int
}

// chunkSource lazily walks the chunks of all sections in document order, one
// chunk at a time, so a large document never has its full chunk sequence in
// memory. Exhaustion is signaled by ok == false, never by an error.
type chunkSource struct {
	sections   []Section
	classifier Classifier
	chunkSize  int
	overlap    int

	idx       int
	cur       *ChunkStream
	curIdx    int
	curHeader string
	curType   string
}

func newChunkSource(sections []Section, c Classifier, chunkSize, overlap int) *chunkSource {
	return &chunkSource{
		sections:   sections,
		classifier: c,
		chunkSize:  chunkSize,
		overlap:    overlap,
	}
}

func (cs *chunkSource) Next() (taggedChunk, bool) {
	for {
		if cs.cur != nil {
			if text, ok := cs.cur.Next(); ok {
				return taggedChunk{
					text:       text,
					section:    cs.curHeader,
					chunkType:  cs.curType,
					sectionIdx: cs.curIdx,
				}, true
			}
			cs.cur = nil
		}

		if cs.idx >= len(cs.sections) {
			return taggedChunk{}, false
		}

		section := cs.sections[cs.idx]
		idx := cs.idx
		cs.idx++

		if len(strings.TrimSpace(section.Content)) < minSectionLength {
			continue
		}

		cs.curIdx = idx
		cs.curHeader = section.Header
		cs.curType = vectorstore.ChunkTypeText
		if cs.classifier.IsTable(section.Content) {
			cs.curType = vectorstore.ChunkTypeTable
		}
		cs.cur = NewChunkStream(section.Content, cs.chunkSize, cs.overlap, cs.classifier)
	}
}

// IngestDocument splits text into section-aware chunks and writes them to the
// vector store in batches of opts.BatchSize, bounding peak memory. Chunk
// numbers are monotonic across the whole document and never reset at section
// or batch boundaries. A failed batch is logged and skipped; earlier batches
// stay persisted. Returns the number of successfully submitted records.
//
// Concurrent ingestions must target distinct collections: chunk ids are
// derived from a per-call counter.
func (s *Service) IngestDocument(ctx context.Context, text, collection string, meta vectorstore.Metadata, opts Options) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrInvalidInput
	}
	if collection == "" {
		return 0, fmt.Errorf("collection name is empty")
	}
	if s.store == nil {
		return 0, fmt.Errorf("vector store is not configured")
	}
	opts = opts.withDefaults()

	sections := SplitSections(text, s.classifier)
	source := newChunkSource(sections, s.classifier, opts.ChunkSize, opts.ChunkOverlap)
	chunkCounts := make([]int, len(sections))

	var (
		total   int
		counter int
		batch   = make([]vectorstore.Record, 0, opts.BatchSize)
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.store.Upsert(ctx, collection, batch); err != nil {
			s.logger.Printf("batch upsert failed (%d records), skipping: %v", len(batch), err)
		} else {
			total += len(batch)
		}
		batch = batch[:0]
	}

	for {
		chunk, ok := source.Next()
		if !ok {
			break
		}
		if strings.TrimSpace(chunk.text) == "" {
			continue
		}

		recMeta := meta
		recMeta.Section = chunk.section
		recMeta.ChunkType = chunk.chunkType
		recMeta.ChunkNumber = counter

		record, err := vectorstore.NewRecord(fmt.Sprintf("%s_chunk_%d", collection, counter), chunk.text, recMeta)
		if err != nil {
			s.logger.Printf("skipping malformed record: %v", err)
			continue
		}
		counter++
		chunkCounts[chunk.sectionIdx]++

		batch = append(batch, record)
		if len(batch) >= opts.BatchSize {
			flush()
		}
	}
	flush()

	s.syncStructure(ctx, collection, meta.Source, sections, chunkCounts)
	s.logger.Printf("ingested %d chunks into collection %s", total, collection)
	return total, nil
}

// Ingest errors from the structure graph are logged and swallowed: the graph
// is an optional enrichment, never a reason to fail an ingestion.
func (s *Service) syncStructure(ctx context.Context, collection, sourceName string, sections []Section, chunkCounts []int) {
	if s.driver == nil {
		return
	}

	structure := knowledge.Structure{
		Collection: collection,
		Source:     sourceName,
	}
	for i, section := range sections {
		if chunkCounts[i] == 0 {
			continue
		}
		structure.Sections = append(structure.Sections, knowledge.Section{
			Title:      section.Header,
			Order:      i,
			ChunkCount: chunkCounts[i],
			HasTable:   s.classifier.IsTable(section.Content),
		})
	}

	if err := knowledge.SyncStructure(ctx, s.driver, structure); err != nil {
		s.logger.Printf("structure graph sync failed for %s: %v", collection, err)
	}
}
