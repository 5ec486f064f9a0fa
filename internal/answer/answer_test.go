package answer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/quailhollow/docsearch/pkg/models"
)

type mockRetriever struct {
	searchFunc func(ctx context.Context, q string, k int) ([]models.SearchResult, error)
}

func (m *mockRetriever) Search(ctx context.Context, q string, k int) ([]models.SearchResult, error) {
	return m.searchFunc(ctx, q, k)
}

type mockGenerator struct {
	generateFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return m.generateFunc(ctx, prompt)
}

func TestAnswerSourcesMatchBoostedContexts(t *testing.T) {
	results := []models.SearchResult{
		{Source: models.SourceDocs, DocID: "0", Content: "TTL removes expired rows automatically.", Score: 0.10},
		{Source: models.SourceDocs, DocID: "3", Content: "Backup and restore overview.", Score: 0.20},
		{Source: models.SourceGithub, DocID: "101", Content: "Issue: ttl jobs stall after upgrade.", Score: 0.25},
	}

	var gotPrompt string
	retr := &mockRetriever{
		searchFunc: func(ctx context.Context, q string, k int) ([]models.SearchResult, error) {
			if k != 5 {
				t.Errorf("Expected k=5 passed through, got %d", k)
			}
			return results, nil
		},
	}
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, prompt string) (string, error) {
			gotPrompt = prompt
			return "TTL deletes rows whose lifetime expired.", nil
		},
	}

	ans, err := NewSynthesizer(retr, gen).Answer(context.Background(), "what is ttl", 5)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if ans.Answer != "TTL deletes rows whose lifetime expired." {
		t.Errorf("Unexpected answer text: %q", ans.Answer)
	}

	// only the ttl-bearing contexts survive the boost, in rank order
	wantSources := []string{
		"TTL removes expired rows automatically.",
		"Issue: ttl jobs stall after upgrade.",
	}
	if !reflect.DeepEqual(ans.Sources, wantSources) {
		t.Errorf("Sources = %v, want %v", ans.Sources, wantSources)
	}

	for _, src := range wantSources {
		if !strings.Contains(gotPrompt, "- "+src+"\n") {
			t.Errorf("Prompt missing context %q:\n%s", src, gotPrompt)
		}
	}
	if strings.Contains(gotPrompt, "Backup and restore") {
		t.Errorf("Prompt should not contain boosted-out context:\n%s", gotPrompt)
	}
}

func TestAnswerRetrievalFailurePropagates(t *testing.T) {
	wantErr := errors.New("embed query: gateway unavailable")
	retr := &mockRetriever{
		searchFunc: func(ctx context.Context, q string, k int) ([]models.SearchResult, error) {
			return nil, wantErr
		},
	}
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, prompt string) (string, error) {
			t.Error("Generator should not run when retrieval fails")
			return "", nil
		},
	}

	if _, err := NewSynthesizer(retr, gen).Answer(context.Background(), "what is ttl", 5); !errors.Is(err, wantErr) {
		t.Errorf("Expected retrieval error to propagate, got %v", err)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	retr := &mockRetriever{
		searchFunc: func(ctx context.Context, q string, k int) ([]models.SearchResult, error) {
			return []models.SearchResult{{Content: "TTL overview."}}, nil
		},
	}
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("model overloaded")
		},
	}

	_, err := NewSynthesizer(retr, gen).Answer(context.Background(), "what is ttl", 5)
	if err == nil {
		t.Fatal("Expected error when generation fails, got nil")
	}
	if !strings.Contains(err.Error(), "synthesis:") {
		t.Errorf("Expected synthesis-wrapped error, got %v", err)
	}
}

func TestAnswerNoResults(t *testing.T) {
	retr := &mockRetriever{
		searchFunc: func(ctx context.Context, q string, k int) ([]models.SearchResult, error) {
			return nil, nil
		},
	}
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, prompt string) (string, error) {
			if !strings.Contains(prompt, "Context:\n\nQuestion:") {
				t.Errorf("Expected empty context block, got:\n%s", prompt)
			}
			return "The context does not contain the answer.", nil
		},
	}

	ans, err := NewSynthesizer(retr, gen).Answer(context.Background(), "what is ttl", 5)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("Expected no sources, got %v", ans.Sources)
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("what is ttl", []string{"TTL overview.", "TTL jobs."})
	want := "You are a documentation assistant. Answer the question using only the context below.\n" +
		"If the context does not contain the answer, say so.\n\n" +
		"Context:\n" +
		"- TTL overview.\n" +
		"- TTL jobs.\n" +
		"\nQuestion: what is ttl\nAnswer:"
	if got != want {
		t.Errorf("BuildPrompt mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
