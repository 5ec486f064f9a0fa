package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/quailhollow/docsearch/internal/search"
	"github.com/quailhollow/docsearch/pkg/models"
)

// Retriever supplies ranked passages for a question.
type Retriever interface {
	Search(ctx context.Context, q string, k int) ([]models.SearchResult, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer turns a question into a generated answer grounded on
// retrieved passages. The three stages (embed, retrieve/rank,
// synthesize) run in order; any failure aborts the whole request.
type Synthesizer struct {
	Retriever Retriever
	Generator Generator
}

func NewSynthesizer(r Retriever, g Generator) *Synthesizer {
	return &Synthesizer{Retriever: r, Generator: g}
}

// Answer retrieves up to k passages, keyword-boosts them against the
// question, and asks the generation model. Sources reports exactly the
// contexts handed to the model, in the same order.
func (s *Synthesizer) Answer(ctx context.Context, question string, k int) (models.Answer, error) {
	res, err := s.Retriever.Search(ctx, question, k)
	if err != nil {
		return models.Answer{}, err
	}

	contexts := make([]string, 0, len(res))
	for _, r := range res {
		contexts = append(contexts, r.Content)
	}
	contexts = search.BoostByKeywords(question, contexts)

	text, err := s.Generator.Generate(ctx, BuildPrompt(question, contexts))
	if err != nil {
		return models.Answer{}, fmt.Errorf("synthesis: %w", err)
	}

	return models.Answer{Answer: text, Sources: contexts}, nil
}

// BuildPrompt assembles the fixed answer template: preamble, bulleted
// contexts, the literal question, then the answer cue.
func BuildPrompt(question string, contexts []string) string {
	var b strings.Builder
	b.WriteString("You are a documentation assistant. Answer the question using only the context below.\n")
	b.WriteString("If the context does not contain the answer, say so.\n\nContext:\n")
	for _, c := range contexts {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
