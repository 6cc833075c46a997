package pipeline

import (
	"context"
	"strings"

	"github.com/jonathan/siteqa/internal/llm"
	"github.com/jonathan/siteqa/internal/logging"
	"github.com/jonathan/siteqa/internal/types"
	"github.com/jonathan/siteqa/internal/vectorindex"
)

// Answer is the reply to a question.
type Answer struct {
	Question       string               `json:"question"`
	Answer         string               `json:"answer"`
	Sources        []string             `json:"sources"`
	Chunks         []types.SearchResult `json:"chunks,omitempty"`
	StructureQuery bool                 `json:"structure_query"`
}

// Search embeds query and returns the topK nearest chunks (the service default when topK <= 0).
func (s *Service) Search(ctx context.Context, query string, topK int, filter *vectorindex.Filter) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &Error{Stage: StageSearch, Message: "query is empty"}
	}
	if topK <= 0 {
		topK = s.topK
	}

	index := s.Index()
	if index.IsEmpty() {
		return nil, ErrNoContent
	}

	if s.embedder == nil {
		return nil, &Error{Stage: StageEmbed, Message: "no embedding provider configured"}
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &Error{Stage: StageEmbed, Message: "failed to embed query", Cause: err}
	}
	if len(vectors) != 1 {
		return nil, &Error{Stage: StageEmbed, Message: "embedding provider returned no vector for the query"}
	}

	results, err := index.Search(vectors[0], topK, filter)
	if err != nil {
		return nil, &Error{Stage: StageSearch, Message: "similarity search failed", Cause: err}
	}
	return results, nil
}

// Ask answers question from the indexed content. Questions about what was crawled are answered
// from the site structure instead when any site is registered.
func (s *Service) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	if s.answerer == nil {
		return nil, &Error{Stage: StageAnswer, Message: "no answer generator configured"}
	}
	logging.Infof("[PIPELINE] Processing question: %s", question)

	if IsStructureQuery(question) && s.Registry().Len() > 0 {
		return s.AnswerStructure(ctx, question)
	}

	results, err := s.Search(ctx, question, topK, nil)
	if err != nil {
		return nil, err
	}

	contextChunks := make([]llm.ContextChunk, len(results))
	for i, r := range results {
		contextChunks[i] = llm.ContextChunk{Text: r.Text, URL: r.URL}
	}
	reply, err := s.answerer.Answer(ctx, question, contextChunks)
	if err != nil {
		return nil, &Error{Stage: StageAnswer, Message: "answer generation failed", Cause: err}
	}

	logging.Infof("[PIPELINE] Generated answer using %d relevant chunks", len(results))
	return &Answer{
		Question: question,
		Answer:   reply,
		Sources:  uniqueSources(results),
		Chunks:   results,
	}, nil
}

// uniqueSources lists result URLs once each, in rank order.
func uniqueSources(results []types.SearchResult) []string {
	seen := make(map[string]bool, len(results))
	sources := []string{}
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		sources = append(sources, r.URL)
	}
	return sources
}
