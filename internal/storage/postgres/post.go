package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Krumil/hacksignal/internal/domain"
)

type PostStore struct {
	db *sqlx.DB
}

func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

// Upsert stores a raw post keyed by (source_id, external_id). A repeated
// ingest of the same post is a no-op; posts are immutable once ingested.
func (s *PostStore) Upsert(ctx context.Context, post *domain.RawPost) (int64, error) {
	query := `
		INSERT INTO posts (
			source_id, external_id, text, author_handle, follower_count,
			posted_at, source_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (source_id, external_id) DO NOTHING
		RETURNING id`

	exec := GetExecutor(ctx, s.db)

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		post.SourceID,
		post.ID,
		post.Text,
		post.Author.Handle,
		post.Author.FollowerCount,
		post.CreatedAt,
		post.SourceURL,
	).Scan(&id)

	if err == sql.ErrNoRows {
		err = exec.QueryRowxContext(ctx,
			"SELECT id FROM posts WHERE source_id = $1 AND external_id = $2",
			post.SourceID, post.ID,
		).Scan(&id)
	}

	if err != nil {
		return 0, err
	}

	return id, nil
}

// ExistingIDs returns which of the given external IDs are already stored for
// a source. Used to skip posts seen in earlier runs.
func (s *PostStore) ExistingIDs(ctx context.Context, sourceID string, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return make(map[string]struct{}), nil
	}

	query := `SELECT external_id FROM posts WHERE source_id = $1 AND external_id = ANY($2)`

	rows, err := s.db.QueryContext(ctx, query, sourceID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var extID string
		if err := rows.Scan(&extID); err != nil {
			return nil, err
		}
		result[extID] = struct{}{}
	}

	return result, rows.Err()
}
