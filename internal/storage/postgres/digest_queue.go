package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Krumil/hacksignal/internal/domain"
)

// DigestQueueStore persists the below-threshold event queue between pipeline
// runs. Events are stored as flat JSON payloads; queue order is insertion
// order. The store is transaction-aware so the router's load-dispatch-clear
// flush runs as one critical section.
type DigestQueueStore struct {
	db *sqlx.DB
}

func NewDigestQueueStore(db *sqlx.DB) *DigestQueueStore {
	return &DigestQueueStore{db: db}
}

func (s *DigestQueueStore) Append(ctx context.Context, event domain.EnrichedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	exec := GetExecutor(ctx, s.db)
	_, err = exec.ExecContext(ctx,
		`INSERT INTO digest_queue (post_id, roi_score, payload) VALUES ($1, $2, $3)`,
		event.PostID, event.ROIScore, payload,
	)
	return err
}

func (s *DigestQueueStore) Load(ctx context.Context) ([]domain.EnrichedEvent, error) {
	exec := GetExecutor(ctx, s.db)

	rows, err := exec.QueryxContext(ctx,
		`SELECT payload FROM digest_queue ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.EnrichedEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var event domain.EnrichedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal queued event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (s *DigestQueueStore) Clear(ctx context.Context) error {
	exec := GetExecutor(ctx, s.db)
	_, err := exec.ExecContext(ctx, `DELETE FROM digest_queue`)
	return err
}

// Len reports the current queue depth. Used for operator logging.
func (s *DigestQueueStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM digest_queue`)
	return n, err
}
