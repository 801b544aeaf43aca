// Package chat answers batches of questions against an ingested collection
// with a single combined retrieval and a single combined generation call.
package chat

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/fabfab/policy-rag/llm"
	"github.com/fabfab/policy-rag/vectorstore"
)

const (
	defaultChunksPerQuestion = 3

	// answerUnavailable pads the tail of a short generation so the result
	// batch never loses cardinality.
	answerUnavailable = "Answer not available in the policy document."
)

const systemPrompt = "You are a helpful AI assistant that answers questions based on the provided context. " +
	"If you don't know the answer, say you don't know. Be concise and accurate in your responses."

// Leading enumerators like "1. " or "2) " on generated answer lines.
var enumeratorPattern = regexp.MustCompile(`^\s*\d+[.)]?\s*`)

// Service is the batch RAG orchestrator. The graph store is optional and
// only enriches logging; search and generation go through the vector store
// and llm client.
type Service struct {
	store  vectorstore.Store
	graph  GraphStore
	llm    llm.Client
	logger *log.Logger
}

func NewService(store vectorstore.Store, graph GraphStore, llmClient llm.Client, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:  store,
		graph:  graph,
		llm:    llmClient,
		logger: logger,
	}
}

// Answer runs a single-question batch.
func (s *Service) Answer(ctx context.Context, collection, question string, nChunks int, history string) Result {
	results := s.AnswerBatch(ctx, collection, []string{question}, nChunks, history)
	if len(results) == 0 {
		return Result{Answer: answerUnavailable}
	}
	return results[0]
}

// AnswerBatch answers all questions with exactly one batched vector search
// and exactly one generation call. It always returns one Result per
// question: collaborator failures degrade to an error string in every
// answer slot, and a generation that yields fewer lines than questions is
// padded with a sentinel rather than shortened.
func (s *Service) AnswerBatch(ctx context.Context, collection string, questions []string, nChunks int, history string) []Result {
	if len(questions) == 0 {
		return nil
	}
	if collection == "" {
		return errorResults(questions, "no collection provided for query", nil)
	}
	if s.store == nil {
		return errorResults(questions, "vector store is not configured", nil)
	}
	if s.llm == nil {
		return errorResults(questions, "llm client is not configured", nil)
	}
	if nChunks <= 0 {
		nChunks = defaultChunksPerQuestion
	}

	hits, err := s.store.Search(ctx, collection, questions, nChunks)
	if err != nil {
		s.logger.Printf("batch search failed: %v", err)
		return errorResults(questions, fmt.Sprintf("error searching documents: %v", err), nil)
	}

	contexts, sources := buildContexts(questions, hits)
	if allEmpty(contexts) {
		s.logNoContext(ctx, collection)
	}

	prompt := buildPrompt(questions, contexts, history)

	answer, err := s.llm.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		s.logger.Printf("batch generation failed: %v", err)
		return errorResults(questions, fmt.Sprintf("error generating response: %v", err), sources)
	}

	answers := parseAnswers(answer, len(questions))

	results := make([]Result, len(questions))
	for i := range questions {
		results[i] = Result{Answer: answers[i], Sources: sources}
	}
	return results
}

// buildContexts assembles one context string per question from its retrieved
// passages and collects the global source set. A missing or empty hit list
// yields an empty context for that question only.
func buildContexts(questions []string, hits [][]vectorstore.SearchHit) ([]string, []string) {
	contexts := make([]string, len(questions))
	sourceSet := make(map[string]struct{})

	for i := range questions {
		if i >= len(hits) {
			continue
		}
		parts := make([]string, 0, len(hits[i]))
		for j, hit := range hits[i] {
			if hit.Text == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("Context %d:\n%s", j+1, hit.Text))
			if hit.Metadata.Source != "" {
				sourceSet[hit.Metadata.Source] = struct{}{}
			}
		}
		contexts[i] = strings.Join(parts, "\n\n")
	}

	sources := make([]string, 0, len(sourceSet))
	for source := range sourceSet {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	return contexts, sources
}

func buildPrompt(questions, contexts []string, history string) string {
	parts := []string{"You are an expert insurance policy assistant. Answer each question using only the provided context."}

	if strings.TrimSpace(history) != "" {
		parts = append(parts, fmt.Sprintf("Conversation History:\n%s", history))
	}

	for i, question := range questions {
		parts = append(parts, fmt.Sprintf("\nQuestion %d: %s", i+1, question))
		if strings.TrimSpace(contexts[i]) != "" {
			parts = append(parts, fmt.Sprintf("Context:\n%s", contexts[i]))
		} else {
			parts = append(parts, "Context: No relevant information found.")
		}
	}

	parts = append(parts, "\nProvide answers in this format:")
	for i := range questions {
		parts = append(parts, fmt.Sprintf("%d. [Answer]", i+1))
	}

	return strings.Join(parts, "\n")
}

// parseAnswers splits the combined response into exactly count answers:
// blank lines are dropped, leading enumerators stripped, a short tail is
// padded with the sentinel, and surplus lines are cut so the first count
// answers are kept verbatim.
func parseAnswers(response string, count int) []string {
	answers := make([]string, 0, count)
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		answers = append(answers, enumeratorPattern.ReplaceAllString(line, ""))
	}

	for len(answers) < count {
		answers = append(answers, answerUnavailable)
	}
	return answers[:count]
}

func errorResults(questions []string, message string, sources []string) []Result {
	results := make([]Result, len(questions))
	for i := range questions {
		results[i] = Result{Answer: message, Sources: sources}
	}
	return results
}

func allEmpty(contexts []string) bool {
	for _, c := range contexts {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (s *Service) logNoContext(ctx context.Context, collection string) {
	if s.graph == nil {
		s.logger.Printf("no context retrieved for any question in %s", collection)
		return
	}
	sections, err := s.graph.Outline(ctx, collection)
	if err != nil {
		s.logger.Printf("no context retrieved for any question in %s (outline unavailable: %v)", collection, err)
		return
	}
	s.logger.Printf("no context retrieved for any question in %s; collection has %d indexed sections", collection, len(sections))
}
