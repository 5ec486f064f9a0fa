package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/pflag"

	"github.com/quailhollow/docsearch/internal/ai"
	"github.com/quailhollow/docsearch/internal/answer"
	"github.com/quailhollow/docsearch/internal/config"
	"github.com/quailhollow/docsearch/internal/crawler"
	"github.com/quailhollow/docsearch/internal/ingest"
	"github.com/quailhollow/docsearch/internal/search"
	"github.com/quailhollow/docsearch/internal/store"
)

const (
	defaultTopK = 5
	maxTopK     = 20
)

func main() {
	fs := pflag.NewFlagSet("docsearch-api", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	logger.Info().Str("provider", cfg.Provider).Str("log_level", cfg.LogLevel).Msg("starting docsearch api")

	clientConfig, err := buildClientConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	c, err := ai.NewClient(clientConfig)
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}
	if cfg.RetryMax > 0 {
		c = ai.NewRetrying(c, uint64(cfg.RetryMax))
	}

	dim := c.Dim()
	if dim == 0 {
		log.Fatal("Embedding dimension is 0; set DOCSEARCH_EMBED_DIM or pick a known model")
	}
	logger.Info().Int("embedding_dim", dim).Str("embed_model", clientConfig.EmbedModel).Msg("AI client initialized")

	if err := st.Migrate(ctx, dim); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	svc := search.NewService(c, st)
	synth := answer.NewSynthesizer(svc, c)
	pipeline := buildPipeline(cfg, c, st)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}
		k := parseTopK(r.URL.Query().Get("top_k"))

		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()

		res, err := svc.Search(ctx, q, k)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		// never an empty body
		w.Header().Set("Content-Type", "application/json")
		if res == nil {
			if _, err := w.Write([]byte("[]")); err != nil {
				http.Error(w, "Failed to write response", http.StatusInternalServerError)
			}
		} else {
			for i := range res {
				if math.IsNaN(res[i].Score) || math.IsInf(res[i].Score, 0) {
					res[i].Score = 0
				}
			}
			if err := json.NewEncoder(w).Encode(res); err != nil {
				log.Printf("failed to encode response: %v", err)
				_, _ = w.Write([]byte("[]"))
			}
		}

		hlog.FromRequest(r).Info().Str("path", "/search").Str("q", q).Int("k", k).Dur("dur", time.Since(start)).Msg("served")
	})

	mux.HandleFunc("/answer", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}
		k := parseTopK(r.URL.Query().Get("top_k"))

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		ans, err := synth.Answer(ctx, q, k)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ans); err != nil {
			http.Error(w, "Failed to encode response", 500)
		}

		hlog.FromRequest(r).Info().Str("path", "/answer").Str("q", q).Int("k", k).Dur("dur", time.Since(start)).Msg("served")
	})

	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		n, err := pipeline.Run(ctx)
		if err != nil {
			w.WriteHeader(500)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"refreshed_chunks": n})
	})

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}

// parseTopK clamps the requested result count to [1, maxTopK].
func parseTopK(v string) int {
	k := defaultTopK
	if v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			k = n
		}
	}
	if k < 1 {
		k = 1
	}
	if k > maxTopK {
		k = maxTopK
	}
	return k
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

func buildPipeline(cfg config.Specification, c ai.Client, st *store.Store) *ingest.Pipeline {
	var sources []ingest.PassageSource
	if cfg.DocsURL != "" {
		sources = append(sources, crawler.New(cfg.DocsURL, cfg.FetchTimeout, cfg.MaxPages))
	}
	if cfg.GithubRepo != "" {
		im, err := crawler.NewIssueImporter(cfg.GithubRepo, cfg.GithubToken)
		if err != nil {
			log.Fatalf("invalid github repo: %v", err)
		}
		sources = append(sources, im)
	}
	return ingest.New(c, st, sources...)
}
