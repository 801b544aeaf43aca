package ingestion

import (
	"strings"
)

// ChunkStream lazily produces overlapping, size-bounded chunks from one block
// of text. Chunk boundaries fall on sentence boundaries; a block the
// classifier tags as a table is emitted as a single undivided chunk. The
// stream is finite and not restartable once consumed.
type ChunkStream struct {
	chunkSize int
	overlap   int

	table     string
	sentences []string
	pos       int
	buf       []string
	bufLen    int
	done      bool
}

// NewChunkStream prepares a stream over text. chunkSize is a soft bound: a
// single sentence longer than it is still emitted whole. When overlap > 0 the
// last sentence of a flushed chunk seeds the next one, unless that sentence
// alone already reaches chunkSize. Empty or whitespace-only text yields zero
// chunks.
func NewChunkStream(text string, chunkSize, overlap int, c Classifier) *ChunkStream {
	s := &ChunkStream{chunkSize: chunkSize, overlap: overlap}
	if chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		s.overlap = 0
	}

	if strings.TrimSpace(text) == "" {
		s.done = true
		return s
	}
	if c != nil && c.IsTable(text) {
		s.table = strings.TrimSpace(text)
		return s
	}
	s.sentences = SplitSentences(text)
	return s
}

// Next returns the next chunk. ok is false once the stream is exhausted;
// exhaustion is a normal terminal state, not an error.
func (s *ChunkStream) Next() (chunk string, ok bool) {
	if s.done {
		return "", false
	}

	if s.table != "" {
		s.done = true
		return s.table, true
	}

	for s.pos < len(s.sentences) {
		sentence := s.sentences[s.pos]
		s.pos++

		if s.bufLen+len(sentence) > s.chunkSize && len(s.buf) > 0 {
			flushed := strings.Join(s.buf, " ")
			s.reseed()
			s.push(sentence)
			return flushed, true
		}
		s.push(sentence)
	}

	s.done = true
	if len(s.buf) > 0 {
		return strings.Join(s.buf, " "), true
	}
	return "", false
}

// reseed starts the next buffer, carrying the last flushed sentence forward
// when overlap is requested and that sentence is not itself oversized.
func (s *ChunkStream) reseed() {
	if s.overlap > 0 && len(s.buf) > 0 {
		last := s.buf[len(s.buf)-1]
		if len(last) < s.chunkSize {
			s.buf = []string{last}
			s.bufLen = len(last)
			return
		}
	}
	s.buf = nil
	s.bufLen = 0
}

func (s *ChunkStream) push(sentence string) {
	s.buf = append(s.buf, sentence)
	s.bufLen += len(sentence)
}
