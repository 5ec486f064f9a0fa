package ingest

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/quailhollow/docsearch/internal/ai"
	"github.com/quailhollow/docsearch/internal/store"
	"github.com/quailhollow/docsearch/pkg/models"
)

// PassageSource produces passages for ingestion.
type PassageSource interface {
	Passages(ctx context.Context) ([]models.Passage, error)
}

// Pipeline drives embed-and-upsert over the passages produced by its
// sources. One bad page or one schema mismatch never aborts the batch.
type Pipeline struct {
	Sources []PassageSource
	Client  ai.Client
	Store   store.PassageStore
}

func New(client ai.Client, st store.PassageStore, sources ...PassageSource) *Pipeline {
	return &Pipeline{Sources: sources, Client: client, Store: st}
}

// Run collects passages from every source, then sequentially embeds
// and upserts each one. Chunk ids are assigned here, in traversal
// order over the combined batch. Returns the number of chunks written.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	var batch []models.Passage
	for _, src := range p.Sources {
		ps, err := src.Passages(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			log.Warn().Err(err).Msg("passage source failed, continuing")
			continue
		}
		batch = append(batch, ps...)
	}

	written := 0
	for i, pass := range batch {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		pass.ChunkID = i

		vec, err := p.Client.Embed(ctx, pass.Content)
		if err != nil {
			log.Warn().Err(err).
				Str("source", pass.Source).
				Str("doc_id", pass.DocID).
				Msg("embedding failed, skipping chunk")
			continue
		}
		pass.Embedding = vec

		if err := p.Store.UpsertPassage(ctx, pass); err != nil {
			log.Error().Err(err).
				Str("source", pass.Source).
				Str("doc_id", pass.DocID).
				Msg("upsert failed, skipping chunk")
			continue
		}
		written++
	}

	log.Info().Int("chunks", written).Int("batch", len(batch)).Msg("ingestion finished")
	return written, nil
}
