package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/quailhollow/docsearch/internal/ai"
	"github.com/quailhollow/docsearch/internal/config"
	"github.com/quailhollow/docsearch/internal/search"
	"github.com/quailhollow/docsearch/internal/store"
)

func main() {
	fs := pflag.NewFlagSet("docsearch", pflag.ExitOnError)
	topK := fs.Int("top-k", 5, "Number of results to return")
	asJSON := fs.Bool("json", false, "Output raw JSON")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: docsearch [flags] QUERY...")
		os.Exit(2)
	}

	clientConfig, err := buildClientConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	c, err := ai.NewClient(clientConfig)
	if err != nil {
		log.Fatal(err)
	}

	res, err := search.NewService(c, st).Search(ctx, query, *topK)
	if err != nil {
		log.Fatal(err)
	}

	if len(res) == 0 {
		fmt.Println("no results found")
		return
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatal(err)
		}
		return
	}

	for _, r := range res {
		snippet := strings.TrimSpace(strings.ReplaceAll(r.Content, "\n", " "))
		if len(snippet) > 100 {
			snippet = snippet[:100] + "…"
		}
		fmt.Printf("[%.4f] %s:%s — %s\n", r.Score, r.Source, r.DocID, snippet)
	}
}

func buildClientConfig(cfg config.Specification) (*ai.ClientConfig, error) {
	switch strings.ToLower(cfg.Provider) {
	case "bedrock":
		return &ai.ClientConfig{
			APIKey:     cfg.APIKey,
			Endpoint:   cfg.Endpoint,
			EmbedModel: cfg.EmbedModel,
			GenModel:   cfg.GenModel,
			Dim:        cfg.Dim,
			Provider:   ai.ProviderBedrock,
		}, nil
	case "vertexai", "google":
		return &ai.ClientConfig{
			APIKey:     cfg.APIKey,
			EmbedModel: cfg.EmbedModel,
			GenModel:   cfg.GenModel,
			Dim:        cfg.Dim,
			ProjectID:  cfg.ProjectID,
			Location:   cfg.Location,
			Provider:   ai.ProviderVertexAI,
		}, nil
	case "stub":
		return &ai.ClientConfig{
			Dim:      cfg.Dim,
			Provider: ai.ProviderStub,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
