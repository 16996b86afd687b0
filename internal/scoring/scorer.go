package scoring

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Krumil/hacksignal/internal/catalog"
	"github.com/Krumil/hacksignal/internal/domain"
)

// Scoring formula constants. The keyword scale bakes the keyword-component
// weight into a single multiplier; the 0.02 value is carried over from the
// original calibration and is not derived from a score distribution.
const (
	followerWeight = 0.3
	topicWeight    = 0.5
	keywordScale   = 0.02
	keywordCap     = 0.2
	topicStep      = 0.2
)

// Term families for topic confidence. Disjoint on purpose; the stronger
// family wins.
var (
	aiTerms     = []string{"ai", "artificial intelligence", "machine learning", "ml", "neural", "deep learning"}
	cryptoTerms = []string{"crypto", "blockchain", "bitcoin", "ethereum", "defi", "web3", "nft"}
)

// Bounds is the follower band considered a fit for the target audience.
type Bounds struct {
	FollowerMin int
	FollowerMax int
}

// Scorer converts raw posts into bounded relevance scores. Pure: two calls
// on the same post yield identical results.
type Scorer struct {
	terms   []string
	weights map[string]float64
	bounds  Bounds
	logger  *slog.Logger
}

// New builds a Scorer from the catalog and follower bounds.
func New(cat *catalog.Catalog, bounds Bounds, logger *slog.Logger) *Scorer {
	return &Scorer{
		terms:   cat.SearchTerms(),
		weights: cat.KeywordWeights(),
		bounds:  bounds,
		logger:  logger.With("component", "scorer"),
	}
}

// Score computes the relevance score for one post.
func (s *Scorer) Score(post domain.RawPost) (domain.ScoreResult, error) {
	if post.ID == "" {
		return domain.ScoreResult{}, &domain.InvalidInputError{Field: "id", Reason: "is required"}
	}
	if post.Author.FollowerCount < 0 {
		return domain.ScoreResult{}, &domain.InvalidInputError{Field: "author.follower_count", Reason: "cannot be negative"}
	}

	fit := s.FollowerFit(post.Author.FollowerCount)
	keywords := s.ExtractKeywords(post.Text)
	topic := TopicConfidence(post.Text)

	keywordScore := min(s.weighKeywords(keywords)*keywordScale, keywordCap)
	score := float64(fit)*followerWeight + keywordScore + topic*topicWeight

	return domain.ScoreResult{
		PostID:          post.ID,
		Score:           clamp(score),
		FollowerFit:     fit,
		MatchedKeywords: keywords,
		SourceURL:       sourceURL(post),
	}, nil
}

// ScoreBatch scores a batch of posts and returns the results sorted by score
// descending. The sort is stable: equally scored posts keep their input
// order. Posts that fail to score are skipped and counted.
func (s *Scorer) ScoreBatch(posts []domain.RawPost) ([]domain.ScoreResult, int) {
	results := make([]domain.ScoreResult, 0, len(posts))
	errors := 0

	for _, post := range posts {
		result, err := s.Score(post)
		if err != nil {
			s.logger.Warn("skipping unscorable post", "post_id", post.ID, "error", err)
			errors++
			continue
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, errors
}

// FollowerFit returns 1 when the count falls inside the configured band,
// boundaries included.
func (s *Scorer) FollowerFit(count int) int {
	if count >= s.bounds.FollowerMin && count <= s.bounds.FollowerMax {
		return 1
	}
	return 0
}

// ExtractKeywords finds catalog terms and generic hackathon indicators in
// the text. Case-insensitive substring match, each term kept once, in
// first-seen order over the term list.
func (s *Scorer) ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)

	var found []string
	seen := make(map[string]struct{})
	for _, term := range s.terms {
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			continue
		}
		if strings.Contains(lower, key) {
			found = append(found, term)
			seen[key] = struct{}{}
		}
	}

	return found
}

// TopicConfidence estimates AI/crypto subject-matter strength: the larger
// distinct-match count of the two term families, scaled by 0.2 and capped
// at 1.0.
func TopicConfidence(text string) float64 {
	lower := strings.ToLower(text)

	count := func(terms []string) int {
		n := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				n++
			}
		}
		return n
	}

	strongest := count(aiTerms)
	if c := count(cryptoTerms); c > strongest {
		strongest = c
	}

	return min(float64(strongest)*topicStep, 1.0)
}

func (s *Scorer) weighKeywords(keywords []string) float64 {
	total := 0.0
	for _, kw := range keywords {
		if w, ok := s.weights[strings.ToLower(kw)]; ok {
			total += w
		} else {
			total += catalog.DefaultWeight
		}
	}
	return total
}

func sourceURL(post domain.RawPost) string {
	if post.SourceURL != "" {
		return post.SourceURL
	}
	if post.Author.Handle == "" {
		return ""
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", post.Author.Handle, post.ID)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
