package xsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Krumil/hacksignal/internal/catalog"
	"github.com/Krumil/hacksignal/internal/domain"
)

const (
	SourceID   = "xsearch"
	SourceName = "X Search API"
)

// creationDateLayout is the timestamp format the search API returns.
const creationDateLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Config holds search source configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	APIHost        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source polls the search API once per catalog query and merges the results.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	apiHost        string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	catalog        *catalog.Catalog
	logger         *slog.Logger
}

// New creates a search source over the given catalog.
func New(cfg Config, cat *catalog.Catalog, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		apiHost:        cfg.APIHost,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		catalog:        cat,
		logger:         logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// FetchPosts runs one search per high/medium-relevance hashtag and per
// hackathon keyword, deduplicates by post ID and transforms to domain posts.
// A failed query returns what was collected so far along with the error.
func (s *Source) FetchPosts(ctx context.Context, maxResults int) ([]domain.RawPost, error) {
	var all []Result

	for _, query := range s.queries() {
		results, err := s.search(ctx, query, maxResults)
		if err != nil {
			return s.transform(dedupe(all)), fmt.Errorf("search %q: %w", query, err)
		}

		all = append(all, results...)

		s.logger.Debug("fetched query",
			"query", query,
			"results", len(results),
			"total", len(all),
		)
	}

	return s.transform(dedupe(all)), nil
}

// queries builds the search list: high/medium-relevance hashtags plus the
// hackathon-flavored catalog keywords.
func (s *Source) queries() []string {
	var queries []string

	for _, h := range s.catalog.Hashtags {
		if h.Relevance == "High" || h.Relevance == "Medium" {
			queries = append(queries, h.Tag)
		}
	}

	for _, kw := range s.catalog.Keywords {
		lower := strings.ToLower(kw)
		for _, indicator := range catalog.Indicators {
			if strings.Contains(lower, indicator) {
				queries = append(queries, kw)
				break
			}
		}
	}

	return queries
}

func (s *Source) search(ctx context.Context, query string, limit int) ([]Result, error) {
	var results []Result
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		results, err = s.doRequest(ctx, query, limit)
		if err == nil {
			return results, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, query string, limit int) ([]Result, error) {
	body, err := json.Marshal(searchRequest{
		Query:   query,
		Limit:   limit,
		Section: "top",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-rapidapi-key", s.apiKey)
	req.Header.Set("x-rapidapi-host", s.apiHost)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return apiResp.Results, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func dedupe(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.TweetID == "" {
			continue
		}
		if _, dup := seen[r.TweetID]; dup {
			continue
		}
		seen[r.TweetID] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (s *Source) transform(results []Result) []domain.RawPost {
	posts := make([]domain.RawPost, 0, len(results))

	for _, r := range results {
		createdAt, err := time.Parse(creationDateLayout, r.CreationDate)
		if err != nil {
			s.logger.Warn("failed to parse creation date",
				"post_id", r.TweetID,
				"date", r.CreationDate,
			)
			continue
		}

		posts = append(posts, domain.RawPost{
			ID:       r.TweetID,
			SourceID: SourceID,
			Text:     r.Text,
			Author: domain.Author{
				Handle:        r.User.Username,
				FollowerCount: r.User.FollowerCount,
			},
			CreatedAt: createdAt,
			SourceURL: postURL(r),
		})
	}

	return posts
}

// postURL prefers the API's expanded URL but replaces media permalinks with
// the canonical post URL, and falls back to constructing one.
func postURL(r Result) string {
	canonical := fmt.Sprintf("https://x.com/%s/status/%s", r.User.Username, r.TweetID)

	if r.ExpandedURL == nil || *r.ExpandedURL == "" {
		return canonical
	}
	if strings.Contains(*r.ExpandedURL, "/photo/") || strings.Contains(*r.ExpandedURL, "/video/") {
		return canonical
	}
	return *r.ExpandedURL
}
