package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/Krumil/hacksignal/internal/domain"
)

type Source interface {
	ID() string
	Name() string
	FetchPosts(ctx context.Context, maxResults int) ([]domain.RawPost, error)
}

type PostStore interface {
	Upsert(ctx context.Context, post *domain.RawPost) (int64, error)
	ExistingIDs(ctx context.Context, sourceID string, ids []string) (map[string]struct{}, error)
}

type Scorer interface {
	Score(post domain.RawPost) (domain.ScoreResult, error)
}

type Enricher interface {
	Enrich(post domain.RawPost) (domain.EnrichedEvent, error)
}

type Router interface {
	Route(ctx context.Context, event domain.EnrichedEvent) (domain.RoutingDecision, error)
	FlushDigest(ctx context.Context) (int, error)
}
