package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

type BlockedPair struct {
	ActorID  int64
	TargetID int64
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

func (r *BlockRepo) Upsert(ctx context.Context, actorID, targetID int64, reason string) error {
	if actorID <= 0 || targetID <= 0 || actorID == targetID {
		return fmt.Errorf("invalid block payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO blocks (
	actor_participant_id,
	target_participant_id,
	reason,
	created_at
) VALUES ($1, $2, $3, NOW())
ON CONFLICT (actor_participant_id, target_participant_id) DO UPDATE SET
	reason = EXCLUDED.reason
`, actorID, targetID, strings.TrimSpace(reason)); err != nil {
		return fmt.Errorf("upsert block: %w", err)
	}

	return nil
}

// ListPairsAmong returns every block edge where both sides belong to the
// given pool. Direction is preserved; matching treats edges symmetrically.
func (r *BlockRepo) ListPairsAmong(ctx context.Context, participantIDs []int64) ([]BlockedPair, error) {
	if len(participantIDs) == 0 {
		return []BlockedPair{}, nil
	}
	if r.pool == nil {
		return []BlockedPair{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT actor_participant_id, target_participant_id
FROM blocks
WHERE actor_participant_id = ANY($1) AND target_participant_id = ANY($1)
`, participantIDs)
	if err != nil {
		return nil, fmt.Errorf("list blocked pairs: %w", err)
	}
	defer rows.Close()

	items := make([]BlockedPair, 0)
	for rows.Next() {
		var pair BlockedPair
		if err := rows.Scan(&pair.ActorID, &pair.TargetID); err != nil {
			return nil, fmt.Errorf("scan blocked pair: %w", err)
		}
		items = append(items, pair)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate blocked pairs: %w", rows.Err())
	}

	return items, nil
}
