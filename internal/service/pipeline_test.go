package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/Krumil/hacksignal/internal/config"
	"github.com/Krumil/hacksignal/internal/domain"
	"github.com/Krumil/hacksignal/internal/service/mocks"
)

type PipelineTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source   *mocks.MockSource
	posts    *mocks.MockPostStore
	scorer   *mocks.MockScorer
	enricher *mocks.MockEnricher
	router   *mocks.MockRouter

	pipeline   *Pipeline
	cfg        config.PipelineConfig
	thresholds config.ThresholdsConfig
	logger     *slog.Logger
}

func (s *PipelineTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.posts = mocks.NewMockPostStore(s.ctrl)
	s.scorer = mocks.NewMockScorer(s.ctrl)
	s.enricher = mocks.NewMockEnricher(s.ctrl)
	s.router = mocks.NewMockRouter(s.ctrl)

	s.cfg = config.PipelineConfig{
		Interval:           15 * time.Minute,
		MaxResultsPerQuery: 20,
	}
	s.thresholds = config.ThresholdsConfig{
		FollowerMin:        2000,
		FollowerMax:        50000,
		RelevanceThreshold: 0.3,
		ROICutoff:          200.0,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.source.EXPECT().ID().Return("test-source").AnyTimes()
	s.source.EXPECT().Name().Return("Test Source").AnyTimes()

	s.pipeline = NewPipeline(
		s.source,
		s.posts,
		s.scorer,
		s.enricher,
		s.router,
		s.logger,
		s.cfg,
		s.thresholds,
	)
}

func (s *PipelineTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (s *PipelineTestSuite) TestRun_ScoresEnrichesAndRoutes() {
	ctx := context.Background()

	posts := []domain.RawPost{
		{ID: "1", SourceID: "test-source", Text: "hackathon $10.8k", Author: domain.Author{FollowerCount: 5000}},
		{ID: "2", SourceID: "test-source", Text: "my cat", Author: domain.Author{FollowerCount: 100}},
	}

	s.source.EXPECT().FetchPosts(ctx, 20).Return(posts, nil)
	s.posts.EXPECT().ExistingIDs(ctx, "test-source", []string{"1", "2"}).Return(map[string]struct{}{}, nil)
	s.posts.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(1), nil).Times(2)

	s.scorer.EXPECT().Score(posts[0]).Return(domain.ScoreResult{PostID: "1", Score: 0.8}, nil)
	s.scorer.EXPECT().Score(posts[1]).Return(domain.ScoreResult{PostID: "2", Score: 0.1}, nil)

	event := domain.EnrichedEvent{PostID: "1", PrizeValueUSD: 10800, DurationHours: 48, ROIScore: 225}
	s.enricher.EXPECT().Enrich(posts[0]).Return(event, nil)
	s.router.EXPECT().Route(ctx, event).Return(domain.DecisionImmediate, nil)

	stats, err := s.pipeline.Run(ctx)

	s.NoError(err)
	s.Equal(2, stats.Fetched)
	s.Equal(2, stats.Scored)
	s.Equal(1, stats.Skipped)
	s.Equal(1, stats.Enriched)
	s.Equal(1, stats.Immediate)
	s.Equal(0, stats.Queued)
	s.Equal(0, stats.Errors)
}

func (s *PipelineTestSuite) TestRun_QueuesBelowCutoff() {
	ctx := context.Background()

	posts := []domain.RawPost{
		{ID: "1", SourceID: "test-source", Text: "small hackathon", Author: domain.Author{FollowerCount: 5000}},
	}

	s.source.EXPECT().FetchPosts(ctx, 20).Return(posts, nil)
	s.posts.EXPECT().ExistingIDs(ctx, "test-source", []string{"1"}).Return(map[string]struct{}{}, nil)
	s.posts.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(1), nil)

	s.scorer.EXPECT().Score(posts[0]).Return(domain.ScoreResult{PostID: "1", Score: 0.5}, nil)

	event := domain.EnrichedEvent{PostID: "1", DurationHours: 48, ROIScore: 80}
	s.enricher.EXPECT().Enrich(posts[0]).Return(event, nil)
	s.router.EXPECT().Route(ctx, event).Return(domain.DecisionDigest, nil)

	stats, err := s.pipeline.Run(ctx)

	s.NoError(err)
	s.Equal(1, stats.Queued)
	s.Equal(0, stats.Immediate)
}

func (s *PipelineTestSuite) TestRun_DedupesSeenPosts() {
	ctx := context.Background()

	posts := []domain.RawPost{
		{ID: "seen", SourceID: "test-source", Text: "hackathon", Author: domain.Author{FollowerCount: 5000}},
		{ID: "fresh", SourceID: "test-source", Text: "hackathon", Author: domain.Author{FollowerCount: 5000}},
	}

	s.source.EXPECT().FetchPosts(ctx, 20).Return(posts, nil)
	s.posts.EXPECT().ExistingIDs(ctx, "test-source", []string{"seen", "fresh"}).Return(
		map[string]struct{}{"seen": {}}, nil,
	)
	s.posts.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(1), nil)

	s.scorer.EXPECT().Score(posts[1]).Return(domain.ScoreResult{PostID: "fresh", Score: 0.1}, nil)

	stats, err := s.pipeline.Run(ctx)

	s.NoError(err)
	s.Equal(2, stats.Fetched)
	s.Equal(1, stats.Scored)
	s.Equal(1, stats.Skipped)
}

func (s *PipelineTestSuite) TestRun_SourceError() {
	ctx := context.Background()

	s.source.EXPECT().FetchPosts(ctx, 20).Return(nil, errors.New("api error"))

	stats, err := s.pipeline.Run(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "fetch posts")
}

func (s *PipelineTestSuite) TestRun_EmptyFetch() {
	ctx := context.Background()

	s.source.EXPECT().FetchPosts(ctx, 20).Return(nil, nil)

	stats, err := s.pipeline.Run(ctx)

	s.NoError(err)
	s.Equal(0, stats.Fetched)
	s.Equal(0, stats.Scored)
}

func (s *PipelineTestSuite) TestRun_ScoringErrorIsolated() {
	ctx := context.Background()

	posts := []domain.RawPost{
		{ID: "bad", SourceID: "test-source", Text: "hackathon", Author: domain.Author{FollowerCount: -1}},
		{ID: "good", SourceID: "test-source", Text: "hackathon", Author: domain.Author{FollowerCount: 5000}},
	}

	s.source.EXPECT().FetchPosts(ctx, 20).Return(posts, nil)
	s.posts.EXPECT().ExistingIDs(ctx, "test-source", []string{"bad", "good"}).Return(map[string]struct{}{}, nil)
	s.posts.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(1), nil).Times(2)

	s.scorer.EXPECT().Score(posts[0]).Return(domain.ScoreResult{}, &domain.InvalidInputError{Field: "author.follower_count", Reason: "cannot be negative"})
	s.scorer.EXPECT().Score(posts[1]).Return(domain.ScoreResult{PostID: "good", Score: 0.1}, nil)

	stats, err := s.pipeline.Run(ctx)

	s.NoError(err)
	s.Equal(1, stats.Errors)
	s.Equal(1, stats.Scored)
	s.Equal(1, stats.Skipped)
}

func (s *PipelineTestSuite) TestRun_EnrichmentErrorIsolated() {
	ctx := context.Background()

	posts := []domain.RawPost{
		{ID: "1", SourceID: "test-source", Text: "hackathon", Author: domain.Author{FollowerCount: 5000}},
	}

	s.source.EXPECT().FetchPosts(ctx, 20).Return(posts, nil)
	s.posts.EXPECT().ExistingIDs(ctx, "test-source", []string{"1"}).Return(map[string]struct{}{}, nil)
	s.posts.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(1), nil)

	s.scorer.EXPECT().Score(posts[0]).Return(domain.ScoreResult{PostID: "1", Score: 0.5}, nil)
	s.enricher.EXPECT().Enrich(posts[0]).Return(domain.EnrichedEvent{}, &domain.InvalidDurationError{Hours: 0})

	stats, err := s.pipeline.Run(ctx)

	s.NoError(err)
	s.Equal(1, stats.Errors)
	s.Equal(0, stats.Enriched)
}

func (s *PipelineTestSuite) TestRun_StoreErrorIsolated() {
	ctx := context.Background()

	posts := []domain.RawPost{
		{ID: "1", SourceID: "test-source", Text: "hackathon", Author: domain.Author{FollowerCount: 5000}},
	}

	s.source.EXPECT().FetchPosts(ctx, 20).Return(posts, nil)
	s.posts.EXPECT().ExistingIDs(ctx, "test-source", []string{"1"}).Return(map[string]struct{}{}, nil)
	s.posts.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(0), errors.New("db down"))

	stats, err := s.pipeline.Run(ctx)

	s.NoError(err)
	s.Equal(1, stats.Errors)
	s.Equal(0, stats.Scored)
}

func (s *PipelineTestSuite) TestRun_ProcessesHighestScoreFirst() {
	ctx := context.Background()

	posts := []domain.RawPost{
		{ID: "low", SourceID: "test-source", Text: "hackathon", Author: domain.Author{FollowerCount: 5000}},
		{ID: "high", SourceID: "test-source", Text: "big hackathon", Author: domain.Author{FollowerCount: 5000}},
	}

	s.source.EXPECT().FetchPosts(ctx, 20).Return(posts, nil)
	s.posts.EXPECT().ExistingIDs(ctx, "test-source", []string{"low", "high"}).Return(map[string]struct{}{}, nil)
	s.posts.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(1), nil).Times(2)

	s.scorer.EXPECT().Score(posts[0]).Return(domain.ScoreResult{PostID: "low", Score: 0.4}, nil)
	s.scorer.EXPECT().Score(posts[1]).Return(domain.ScoreResult{PostID: "high", Score: 0.9}, nil)

	var order []string
	s.enricher.EXPECT().Enrich(gomock.Any()).DoAndReturn(
		func(post domain.RawPost) (domain.EnrichedEvent, error) {
			order = append(order, post.ID)
			return domain.EnrichedEvent{PostID: post.ID, DurationHours: 48}, nil
		},
	).Times(2)
	s.router.EXPECT().Route(ctx, gomock.Any()).Return(domain.DecisionDigest, nil).Times(2)

	_, err := s.pipeline.Run(ctx)

	s.NoError(err)
	s.Equal([]string{"high", "low"}, order)
}

func (s *PipelineTestSuite) TestFlushDigest_Delegates() {
	ctx := context.Background()

	s.router.EXPECT().FlushDigest(ctx).Return(3, nil)

	delivered, err := s.pipeline.FlushDigest(ctx)

	s.NoError(err)
	s.Equal(3, delivered)
}
