package ingestion_test

import (
	"strings"
	"testing"

	"github.com/fabfab/policy-rag/ingestion"
)

func collect(t *testing.T, stream *ingestion.ChunkStream) []string {
	t.Helper()
	var chunks []string
	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestChunkStreamSingleChunk(t *testing.T) {
	stream := ingestion.NewChunkStream("Short text. Fits easily.", 1000, 200, ingestion.DefaultClassifier())
	chunks := collect(t, stream)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Short text. Fits easily." {
		t.Fatalf("unexpected chunk: %q", chunks[0])
	}
}

func TestChunkStreamOverlapCarriesLastSentence(t *testing.T) {
	text := "One fish. Two fish. Red fish. Blue fish."
	stream := ingestion.NewChunkStream(text, 20, 5, ingestion.DefaultClassifier())
	chunks := collect(t, stream)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d: %v", len(chunks), chunks)
	}

	for i := 0; i < len(chunks)-1; i++ {
		sentences := strings.Split(chunks[i], " fish.")
		last := strings.TrimSpace(sentences[len(sentences)-2]) + " fish."
		if !strings.HasPrefix(chunks[i+1], last) {
			t.Fatalf("chunk %d does not start with previous chunk's last sentence: %q vs %q", i+1, chunks[i+1], last)
		}
	}
}

func TestChunkStreamNoOverlapReconstructs(t *testing.T) {
	text := "One fish. Two fish. Red fish. Blue fish."
	stream := ingestion.NewChunkStream(text, 20, 0, ingestion.DefaultClassifier())
	chunks := collect(t, stream)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if joined := strings.Join(chunks, " "); joined != text {
		t.Fatalf("chunks do not reconstruct the sentence sequence:\n%q\n%q", joined, text)
	}
}

func TestChunkStreamSoftBound(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("The insurer shall settle claims within thirty days. ")
	}
	stream := ingestion.NewChunkStream(sb.String(), 200, 50, ingestion.DefaultClassifier())
	chunks := collect(t, stream)
	if len(chunks) < 5 {
		t.Fatalf("expected many chunks, got %d", len(chunks))
	}

	const maxSentence = len("The insurer shall settle claims within thirty days.")
	for i, chunk := range chunks {
		if len(chunk) > 200+maxSentence+1 {
			t.Fatalf("chunk %d exceeds soft bound: %d chars", i, len(chunk))
		}
	}
}

func TestChunkStreamTableEmittedWhole(t *testing.T) {
	table := "|A|B|\n|1|2|\n|3|4|\n|5|6|"
	stream := ingestion.NewChunkStream(table, 10, 5, ingestion.DefaultClassifier())
	chunks := collect(t, stream)
	if len(chunks) != 1 {
		t.Fatalf("expected table as a single chunk, got %d", len(chunks))
	}
	if chunks[0] != table {
		t.Fatalf("table content altered: %q", chunks[0])
	}
}

func TestChunkStreamOversizedSentenceKeptWhole(t *testing.T) {
	long := "This sentence is deliberately far longer than the configured chunk size and must never be truncated mid-sentence."
	stream := ingestion.NewChunkStream("Short one. "+long+" Short two.", 30, 10, ingestion.DefaultClassifier())
	chunks := collect(t, stream)

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk, long) {
			found = true
		}
	}
	if !found {
		t.Fatalf("oversized sentence was split: %v", chunks)
	}
}

func TestChunkStreamEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t \n"} {
		stream := ingestion.NewChunkStream(input, 1000, 200, ingestion.DefaultClassifier())
		if chunks := collect(t, stream); len(chunks) != 0 {
			t.Fatalf("expected zero chunks for %q, got %d", input, len(chunks))
		}
	}
}

func TestChunkStreamNotRestartable(t *testing.T) {
	stream := ingestion.NewChunkStream("Only sentence here.", 1000, 0, ingestion.DefaultClassifier())
	if _, ok := stream.Next(); !ok {
		t.Fatal("expected one chunk")
	}
	if _, ok := stream.Next(); ok {
		t.Fatal("expected stream to stay exhausted")
	}
	if _, ok := stream.Next(); ok {
		t.Fatal("expected repeated Next calls after exhaustion to keep returning false")
	}
}
