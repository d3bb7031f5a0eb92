package jobs

import (
	"context"
	"log"
)

// KnowledgeReindexer exposes the subset of the knowledge service the
// reindex job needs.
type KnowledgeReindexer interface {
	NeedsReindex() bool
	Reinitialize(ctx context.Context, forceReindex bool) error
}

// ReindexProcessor rebuilds the vector index when corpus documents have
// changed on disk since the last build.
type ReindexProcessor struct {
	knowledge KnowledgeReindexer
}

func NewReindexProcessor(knowledge KnowledgeReindexer) *ReindexProcessor {
	return &ReindexProcessor{knowledge: knowledge}
}

func (p *ReindexProcessor) ProcessJobs(ctx context.Context) error {
	if !p.knowledge.NeedsReindex() {
		return nil
	}

	log.Println("Corpus changed on disk, rebuilding vector index")
	if err := p.knowledge.Reinitialize(ctx, false); err != nil {
		return err
	}
	log.Println("Vector index rebuild complete")
	return nil
}
