package search

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/quailhollow/docsearch/pkg/models"
)

type mockClient struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.embedFunc(ctx, text)
}

func (m *mockClient) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockClient) Dim() int { return 4 }

type mockStore struct {
	queryNearestFunc func(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error)
}

func (m *mockStore) Migrate(ctx context.Context, dim int) error { return nil }

func (m *mockStore) UpsertPassage(ctx context.Context, p models.Passage) error { return nil }

func (m *mockStore) QueryNearest(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error) {
	return m.queryNearestFunc(ctx, vec, k)
}

func TestSearchReturnsStoreOrder(t *testing.T) {
	want := []models.SearchResult{
		{Source: models.SourceDocs, DocID: "4", ChunkID: 4, Content: "TTL configuration", Score: 0.12},
		{Source: models.SourceGithub, DocID: "101", ChunkID: 9, Content: "TTL jobs stall", Score: 0.31},
	}

	client := &mockClient{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			if text != "how do I configure TTL" {
				t.Errorf("Expected trimmed query, got %q", text)
			}
			return []float32{0.1, 0.2, 0.3, 0.4}, nil
		},
	}
	st := &mockStore{
		queryNearestFunc: func(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error) {
			if k != 5 {
				t.Errorf("Expected k=5, got %d", k)
			}
			return want, nil
		},
	}

	svc := NewService(client, st)
	got, err := svc.Search(context.Background(), "  how do I configure TTL  ", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Search returned %+v, want %+v", got, want)
	}
}

func TestSearchEmbedFailureIsFatal(t *testing.T) {
	client := &mockClient{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("gateway unavailable")
		},
	}
	st := &mockStore{
		queryNearestFunc: func(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error) {
			t.Error("Store should not be queried when embedding fails")
			return nil, nil
		},
	}

	svc := NewService(client, st)
	_, err := svc.Search(context.Background(), "ttl", 5)
	if err == nil {
		t.Fatal("Expected error when embedding fails, got nil")
	}
	if !strings.Contains(err.Error(), "embed query") {
		t.Errorf("Expected wrapped embed error, got %v", err)
	}
}

func TestSearchStoreFailurePropagates(t *testing.T) {
	client := &mockClient{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 0, 0, 0}, nil
		},
	}
	wantErr := errors.New("connection reset")
	st := &mockStore{
		queryNearestFunc: func(ctx context.Context, vec []float32, k int) ([]models.SearchResult, error) {
			return nil, wantErr
		},
	}

	svc := NewService(client, st)
	if _, err := svc.Search(context.Background(), "ttl", 5); !errors.Is(err, wantErr) {
		t.Errorf("Expected store error to propagate, got %v", err)
	}
}

func TestBoostByKeywords(t *testing.T) {
	contexts := []string{
		"TTL configuration reference",
		"Backup and restore overview",
		"How TTL jobs are scheduled",
		"Placement rules in SQL",
		"Troubleshooting ttl job failures",
	}

	tests := []struct {
		name     string
		query    string
		contexts []string
		want     []string
	}{
		{
			name:     "matching contexts keep incoming order",
			query:    "TTL",
			contexts: contexts,
			want: []string{
				"TTL configuration reference",
				"How TTL jobs are scheduled",
				"Troubleshooting ttl job failures",
			},
		},
		{
			name:     "no token matches keeps full set capped",
			query:    "zzzz",
			contexts: contexts[:2],
			want:     contexts[:2],
		},
		{
			name:     "no match with long set caps at three",
			query:    "zzzz",
			contexts: contexts,
			want:     contexts[:3],
		},
		{
			name:     "any token suffices",
			query:    "placement zzzz",
			contexts: contexts,
			want:     []string{"Placement rules in SQL"},
		},
		{
			name:     "empty contexts stay empty",
			query:    "ttl",
			contexts: nil,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BoostByKeywords(tt.query, tt.contexts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BoostByKeywords(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
