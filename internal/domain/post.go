package domain

import "time"

// Author is the account a post was published from.
type Author struct {
	Handle        string `json:"handle"`
	FollowerCount int    `json:"follower_count"`
}

// RawPost is a social-media post as ingested from a source.
// Immutable once ingested.
type RawPost struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"` // identifies the source (e.g., "xsearch")
	Text      string    `json:"text"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	SourceURL string    `json:"source_url,omitempty"`
}

// ScoreResult is the relevance score derived from one RawPost.
type ScoreResult struct {
	PostID          string   `json:"post_id"`
	Score           float64  `json:"score"` // clamped to [0.0, 1.0]
	FollowerFit     int      `json:"follower_fit"`
	MatchedKeywords []string `json:"matched_keywords"`
	SourceURL       string   `json:"source_url,omitempty"`
}

// EnrichedEvent carries the structured attributes extracted from a post.
// ROIScore is always PrizeValueUSD / DurationHours.
type EnrichedEvent struct {
	PostID               string     `json:"post_id"`
	PrizeValueUSD        float64    `json:"prize_value_usd"`
	CurrencyDetected     string     `json:"currency_detected"`
	DurationHours        int        `json:"duration_hours"`
	ROIScore             float64    `json:"roi_score"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	SourceURL            string     `json:"source_url,omitempty"`
}

// RoutingDecision is the alert router's verdict for one event.
type RoutingDecision string

const (
	DecisionImmediate RoutingDecision = "immediate"
	DecisionDigest    RoutingDecision = "digest"
)
