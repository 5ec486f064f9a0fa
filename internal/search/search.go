package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/quailhollow/docsearch/internal/ai"
	"github.com/quailhollow/docsearch/internal/store"
	"github.com/quailhollow/docsearch/pkg/models"
)

// maxContexts caps how many passages reach answer synthesis.
const maxContexts = 3

type Service struct {
	Client ai.Client
	Store  store.PassageStore
}

// NewService creates a new search service with the provided AI client and store.
func NewService(client ai.Client, store store.PassageStore) *Service {
	return &Service{
		Client: client,
		Store:  store,
	}
}

// Search embeds the query and returns the k nearest passages in
// ascending cosine distance. An embedding failure fails the request;
// there is no degraded keyword-only mode.
func (s *Service) Search(ctx context.Context, q string, k int) ([]models.SearchResult, error) {
	q = strings.TrimSpace(q)

	vec, err := s.Client.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	res, err := s.Store.QueryNearest(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// BoostByKeywords filters contexts down to those containing at least
// one query token as a substring, preserving the incoming order, then
// caps the result at maxContexts. If no context matches any token the
// full set is kept, so a retrieval that found something never hands
// synthesis an empty context list.
func BoostByKeywords(query string, contexts []string) []string {
	tokens := strings.Fields(strings.ToLower(query))

	var matched []string
	for _, c := range contexts {
		lc := strings.ToLower(c)
		for _, tok := range tokens {
			if strings.Contains(lc, tok) {
				matched = append(matched, c)
				break
			}
		}
	}
	if len(matched) == 0 {
		matched = contexts
	}
	if len(matched) > maxContexts {
		matched = matched[:maxContexts]
	}
	return matched
}
