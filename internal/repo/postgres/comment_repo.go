package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/model"
)

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func (r *CommentRepo) Add(ctx context.Context, tx pgx.Tx, comment model.Comment) (model.Comment, error) {
	if comment.PairingID <= 0 || comment.ParticipantID <= 0 || strings.TrimSpace(comment.Body) == "" {
		return model.Comment{}, fmt.Errorf("invalid comment payload")
	}
	if tx == nil {
		return model.Comment{}, fmt.Errorf("transaction is required")
	}

	err := tx.QueryRow(ctx, `
INSERT INTO pairing_comments (
	pairing_id,
	participant_id,
	body,
	created_at
) VALUES ($1, $2, $3, NOW())
RETURNING id, created_at
`, comment.PairingID, comment.ParticipantID, comment.Body).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return model.Comment{}, fmt.Errorf("create comment: %w", err)
	}

	result, err := tx.Exec(ctx, `
UPDATE pairings
SET comment_count = comment_count + 1
WHERE id = $1
`, comment.PairingID)
	if err != nil {
		return model.Comment{}, fmt.Errorf("increment comment count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.Comment{}, ErrPairingNotFound
	}

	return comment, nil
}

func (r *CommentRepo) ListForPairing(ctx context.Context, pairingID int64, limit int) ([]model.Comment, error) {
	if pairingID <= 0 {
		return nil, fmt.Errorf("invalid pairing id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []model.Comment{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, pairing_id, participant_id, body, created_at
FROM pairing_comments
WHERE pairing_id = $1
ORDER BY created_at, id
LIMIT $2
`, pairingID, limit)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]model.Comment, 0, limit)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PairingID, &c.ParticipantID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, c)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate comments: %w", rows.Err())
	}

	return items, nil
}
