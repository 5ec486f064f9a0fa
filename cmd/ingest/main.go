package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/pflag"

	"github.com/quailhollow/docsearch/internal/ai"
	"github.com/quailhollow/docsearch/internal/config"
	"github.com/quailhollow/docsearch/internal/crawler"
	"github.com/quailhollow/docsearch/internal/ingest"
	"github.com/quailhollow/docsearch/internal/store"
)

func main() {
	fs := pflag.NewFlagSet("docsearch-ingest", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	if cfg.DocsURL == "" && cfg.GithubRepo == "" {
		log.Fatal("nothing to ingest: set DOCSEARCH_DOCS_URL and/or DOCSEARCH_GITHUB_REPO")
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
	if cfg.RetryMax > 0 {
		c = ai.NewRetrying(c, uint64(cfg.RetryMax))
	}

	if c.Dim() == 0 {
		log.Fatal("embedding dimension must be set")
	}
	if err := st.Migrate(ctx, c.Dim()); err != nil {
		log.Fatal(err)
	}

	var sources []ingest.PassageSource
	if cfg.DocsURL != "" {
		sources = append(sources, crawler.New(cfg.DocsURL, cfg.FetchTimeout, cfg.MaxPages))
	}
	if cfg.GithubRepo != "" {
		im, err := crawler.NewIssueImporter(cfg.GithubRepo, cfg.GithubToken)
		if err != nil {
			log.Fatal(err)
		}
		sources = append(sources, im)
	}

	n, err := ingest.New(c, st, sources...).Run(ctx)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("ingested %d chunks", n)
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
