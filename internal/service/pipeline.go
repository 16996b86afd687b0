package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Krumil/hacksignal/internal/config"
	"github.com/Krumil/hacksignal/internal/domain"
)

// Pipeline runs one scoring-and-enrichment batch: fetch posts, persist the
// new ones, score, and push above-threshold posts through enrichment and
// routing. Posts are processed sequentially; a failing post is logged and
// skipped, never aborting the batch.
type Pipeline struct {
	source     Source
	posts      PostStore
	scorer     Scorer
	enricher   Enricher
	router     Router
	logger     *slog.Logger
	pipeline   config.PipelineConfig
	thresholds config.ThresholdsConfig
}

func NewPipeline(
	source Source,
	posts PostStore,
	scorer Scorer,
	enricher Enricher,
	router Router,
	logger *slog.Logger,
	pipelineCfg config.PipelineConfig,
	thresholds config.ThresholdsConfig,
) *Pipeline {
	return &Pipeline{
		source:     source,
		posts:      posts,
		scorer:     scorer,
		enricher:   enricher,
		router:     router,
		logger:     logger.With("source", source.ID()),
		pipeline:   pipelineCfg,
		thresholds: thresholds,
	}
}

// Run executes one batch. Partial results stand: posts processed before a
// failure stay processed.
func (p *Pipeline) Run(ctx context.Context) (*domain.PipelineStats, error) {
	startTime := time.Now()
	p.logger.Info("starting pipeline run",
		"source_name", p.source.Name(),
		"max_results_per_query", p.pipeline.MaxResultsPerQuery,
	)

	posts, err := p.source.FetchPosts(ctx, p.pipeline.MaxResultsPerQuery)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	p.logger.Info("fetched posts from source", "count", len(posts))

	stats := &domain.PipelineStats{
		SourceID: p.source.ID(),
		Fetched:  len(posts),
	}

	posts, err = p.filterSeen(ctx, posts)
	if err != nil {
		return nil, fmt.Errorf("filter seen posts: %w", err)
	}
	p.logger.Debug("new posts after dedupe", "remaining", len(posts))

	scored := p.scorePosts(ctx, posts, stats)

	// Highest-value events first; stable for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].result.Score > scored[j].result.Score
	})

	for _, sp := range scored {
		if sp.result.Score < p.thresholds.RelevanceThreshold {
			stats.Skipped++
			continue
		}

		event, err := p.enricher.Enrich(sp.post)
		if err != nil {
			p.logger.Warn("enrichment failed, skipping post", "post_id", sp.post.ID, "error", err)
			stats.Errors++
			continue
		}
		stats.Enriched++

		decision, err := p.router.Route(ctx, event)
		if err != nil {
			p.logger.Warn("routing failed", "post_id", sp.post.ID, "decision", decision, "error", err)
			stats.Errors++
			continue
		}

		switch decision {
		case domain.DecisionImmediate:
			stats.Immediate++
		case domain.DecisionDigest:
			stats.Queued++
		}
	}

	stats.Duration = time.Since(startTime)

	p.logger.Info("pipeline run completed",
		"fetched", stats.Fetched,
		"scored", stats.Scored,
		"skipped", stats.Skipped,
		"enriched", stats.Enriched,
		"immediate", stats.Immediate,
		"queued", stats.Queued,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	return stats, nil
}

// FlushDigest delegates the scheduled digest delivery to the router.
func (p *Pipeline) FlushDigest(ctx context.Context) (int, error) {
	return p.router.FlushDigest(ctx)
}

type scoredPost struct {
	post   domain.RawPost
	result domain.ScoreResult
}

func (p *Pipeline) filterSeen(ctx context.Context, posts []domain.RawPost) ([]domain.RawPost, error) {
	if len(posts) == 0 {
		return nil, nil
	}

	ids := make([]string, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
	}

	existing, err := p.posts.ExistingIDs(ctx, p.source.ID(), ids)
	if err != nil {
		return nil, err
	}

	var fresh []domain.RawPost
	for _, post := range posts {
		if _, seen := existing[post.ID]; !seen {
			fresh = append(fresh, post)
		}
	}

	return fresh, nil
}

func (p *Pipeline) scorePosts(ctx context.Context, posts []domain.RawPost, stats *domain.PipelineStats) []scoredPost {
	scored := make([]scoredPost, 0, len(posts))

	for i := range posts {
		post := &posts[i]

		if _, err := p.posts.Upsert(ctx, post); err != nil {
			p.logger.Warn("failed to store post", "post_id", post.ID, "error", err)
			stats.Errors++
			continue
		}

		result, err := p.scorer.Score(*post)
		if err != nil {
			p.logger.Warn("scoring failed, skipping post", "post_id", post.ID, "error", err)
			stats.Errors++
			continue
		}

		stats.Scored++
		scored = append(scored, scoredPost{post: *post, result: result})
	}

	return scored
}
