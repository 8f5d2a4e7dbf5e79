package service

import (
	"context"
	"errors"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/internal/repository"
	"fincra-wisdom/pkg/es"
	"fincra-wisdom/pkg/llm"
	"fincra-wisdom/pkg/log"
	"fmt"
	"strings"
)

const (
	askSourceLimit   = 5
	askExcerptLength = 1500
	noMatchAnswer    = "I couldn't find any documents in Fincra Wisdom that answer this question."
)

// Searcher is the full-text index. *es.Client implements it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]es.Hit, error)
}

// Source is a document cited by an answer.
type Source struct {
	ID             uint   `json:"id"`
	Title          string `json:"title"`
	DepartmentID   uint   `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
}

// AskResult is the answer to a question with the documents it was built from.
type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// SearchService finds published documents and answers questions about them.
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]model.Document, error)
	Ask(ctx context.Context, question string) (*AskResult, error)
}

type searchService struct {
	documents repository.DocumentRepository
	searcher  Searcher
	llmClient llm.Client
}

// NewSearchService wires search. A nil searcher falls back to SQL keyword matching;
// a nil llmClient makes Ask list sources without a generated answer.
func NewSearchService(documents repository.DocumentRepository, searcher Searcher, llmClient llm.Client) SearchService {
	return &searchService{documents: documents, searcher: searcher, llmClient: llmClient}
}

func (s *searchService) Search(ctx context.Context, query string, limit int) ([]model.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, InvalidInput("search query is required")
	}
	limit = clampLimit(limit)

	if s.searcher != nil {
		hits, err := s.searcher.Search(ctx, query, limit)
		if err == nil {
			ids := make([]uint, 0, len(hits))
			for _, h := range hits {
				ids = append(ids, h.DocumentID)
			}
			docs, err := s.documents.FindByIDs(ctx, ids)
			if err != nil {
				return nil, Internal("failed to load search results", err)
			}
			return docs, nil
		}
		log.Warnw("elasticsearch search failed, using keyword search", "query", query, "error", err)
	}

	docs, err := s.documents.Search(ctx, query, limit)
	if err != nil {
		return nil, Internal("search failed", err)
	}
	return docs, nil
}

func (s *searchService) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, InvalidInput("question is required")
	}
	hits, err := s.Search(ctx, question, askSourceLimit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &AskResult{Answer: noMatchAnswer, Sources: []Source{}}, nil
	}

	sources := make([]Source, 0, len(hits))
	var prompt strings.Builder
	for i, hit := range hits {
		sources = append(sources, Source{ID: hit.ID, Title: hit.Title, DepartmentID: hit.DepartmentID, DepartmentName: hit.DepartmentName})

		body := hit.Summary
		if full, err := s.documents.FindByID(ctx, hit.ID); err == nil && full.Content != "" {
			body = full.Content
		}
		fmt.Fprintf(&prompt, "[%d] %s (%s / %s)\n%s\n\n", i+1, hit.Title, hit.CircleName, hit.DepartmentName, excerpt(body, askExcerptLength))
	}

	if s.llmClient == nil {
		return &AskResult{Answer: sourcesOnlyAnswer(sources), Sources: sources}, nil
	}
	answer, err := s.llmClient.Chat(ctx, []llm.Message{
		{Role: "system", Content: "You are Fincra Wisdom, the internal knowledge assistant for Fincra employees. " +
			"Answer only from the numbered documents provided. Cite documents as [n]. " +
			"If the documents do not contain the answer, say so."},
		{Role: "user", Content: "Documents:\n\n" + prompt.String() + "Question: " + question},
	})
	if errors.Is(err, llm.ErrNotConfigured) {
		return &AskResult{Answer: sourcesOnlyAnswer(sources), Sources: sources}, nil
	}
	if err != nil {
		return nil, Internal("failed to generate answer", err)
	}
	return &AskResult{Answer: answer, Sources: sources}, nil
}

func sourcesOnlyAnswer(sources []Source) string {
	titles := make([]string, 0, len(sources))
	for _, src := range sources {
		titles = append(titles, src.Title)
	}
	return "These documents may answer your question: " + strings.Join(titles, "; ") + "."
}

func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
