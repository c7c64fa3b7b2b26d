package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/enums"
	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/model"
)

var ErrPairingNotFound = errors.New("pairing not found")

type PairingRepo struct {
	pool *pgxpool.Pool
}

// PartnerEdge is one historical partnership, read when building the
// recent-partner index for a match run.
type PartnerEdge struct {
	SlotAID   int64
	SlotBID   int64
	MatchDate time.Time
}

// FlakedPairing is a record the reaper just forced into the flaked state,
// with enough slot detail to decide who gets penalized.
type FlakedPairing struct {
	ID             int64
	SlotAID        int64
	SlotBID        int64
	SlotASubmitted bool
	SlotBSubmitted bool
}

func NewPairingRepo(pool *pgxpool.Pool) *PairingRepo {
	return &PairingRepo{pool: pool}
}

const pairingColumns = `
	id,
	match_date,
	expires_at,
	slot_a_id,
	slot_b_id,
	status,
	slot_a_photo_ref,
	slot_b_photo_ref,
	slot_a_submitted_at,
	slot_b_submitted_at,
	completed_at,
	chat_ref,
	like_count,
	comment_count,
	created_at`

func scanPairing(row pgx.Row) (model.Pairing, error) {
	var p model.Pairing
	var status string
	err := row.Scan(
		&p.ID,
		&p.MatchDate,
		&p.ExpiresAt,
		&p.SlotAID,
		&p.SlotBID,
		&status,
		&p.SlotAPhotoRef,
		&p.SlotBPhotoRef,
		&p.SlotASubmittedAt,
		&p.SlotBSubmittedAt,
		&p.CompletedAt,
		&p.ChatRef,
		&p.LikeCount,
		&p.CommentCount,
		&p.CreatedAt,
	)
	if err != nil {
		return model.Pairing{}, err
	}

	p.Status = enums.PairingStatus(status)
	if !p.Status.Valid() {
		return model.Pairing{}, fmt.Errorf("pairing %d has malformed status %q", p.ID, status)
	}

	return p, nil
}

func (r *PairingRepo) Create(ctx context.Context, tx pgx.Tx, p *model.Pairing) error {
	if p == nil || p.SlotAID <= 0 || p.SlotBID <= 0 || p.SlotAID == p.SlotBID {
		return fmt.Errorf("invalid pairing payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	err := tx.QueryRow(ctx, `
INSERT INTO pairings (
	match_date,
	expires_at,
	slot_a_id,
	slot_b_id,
	status,
	chat_ref,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING id, created_at
`, p.MatchDate, p.ExpiresAt, p.SlotAID, p.SlotBID, string(p.Status), p.ChatRef).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create pairing: %w", err)
	}

	return nil
}

func (r *PairingRepo) Get(ctx context.Context, id int64) (model.Pairing, error) {
	if id <= 0 {
		return model.Pairing{}, fmt.Errorf("invalid pairing id")
	}
	if r.pool == nil {
		return model.Pairing{}, ErrPairingNotFound
	}

	p, err := scanPairing(r.pool.QueryRow(ctx, `
SELECT`+pairingColumns+`
FROM pairings
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pairing{}, ErrPairingNotFound
		}
		return model.Pairing{}, fmt.Errorf("get pairing: %w", err)
	}

	return p, nil
}

// GetForUpdate locks the pairing row for the duration of the transaction so
// concurrent submissions serialize instead of racing.
func (r *PairingRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Pairing, error) {
	if id <= 0 {
		return model.Pairing{}, fmt.Errorf("invalid pairing id")
	}
	if tx == nil {
		return model.Pairing{}, fmt.Errorf("transaction is required")
	}

	p, err := scanPairing(tx.QueryRow(ctx, `
SELECT`+pairingColumns+`
FROM pairings
WHERE id = $1
FOR UPDATE
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pairing{}, ErrPairingNotFound
		}
		return model.Pairing{}, fmt.Errorf("get pairing for update: %w", err)
	}

	return p, nil
}

func (r *PairingRepo) UpdateSubmission(ctx context.Context, tx pgx.Tx, p model.Pairing) error {
	if p.ID <= 0 {
		return fmt.Errorf("invalid pairing id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE pairings
SET
	status = $2,
	slot_a_photo_ref = $3,
	slot_b_photo_ref = $4,
	slot_a_submitted_at = $5,
	slot_b_submitted_at = $6,
	completed_at = $7
WHERE id = $1
`, p.ID, string(p.Status), p.SlotAPhotoRef, p.SlotBPhotoRef, p.SlotASubmittedAt, p.SlotBSubmittedAt, p.CompletedAt)
	if err != nil {
		return fmt.Errorf("update pairing submission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPairingNotFound
	}

	return nil
}

func (r *PairingRepo) FindForParticipantOn(ctx context.Context, participantID int64, matchDate time.Time) (model.Pairing, error) {
	if participantID <= 0 {
		return model.Pairing{}, fmt.Errorf("invalid participant id")
	}
	if r.pool == nil {
		return model.Pairing{}, ErrPairingNotFound
	}

	p, err := scanPairing(r.pool.QueryRow(ctx, `
SELECT`+pairingColumns+`
FROM pairings
WHERE match_date = $2 AND (slot_a_id = $1 OR slot_b_id = $1)
ORDER BY created_at DESC
LIMIT 1
`, participantID, matchDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pairing{}, ErrPairingNotFound
		}
		return model.Pairing{}, fmt.Errorf("find pairing for participant: %w", err)
	}

	return p, nil
}

// ListPartnerEdgesSince feeds the recent-partner index. Replaced and flaked
// records count as history too: the pairing happened even if it went nowhere.
func (r *PairingRepo) ListPartnerEdgesSince(ctx context.Context, since time.Time) ([]PartnerEdge, error) {
	if r.pool == nil {
		return []PartnerEdge{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT slot_a_id, slot_b_id, match_date
FROM pairings
WHERE match_date >= $1
`, since)
	if err != nil {
		return nil, fmt.Errorf("list partner edges: %w", err)
	}
	defer rows.Close()

	items := make([]PartnerEdge, 0, 128)
	for rows.Next() {
		var edge PartnerEdge
		if err := rows.Scan(&edge.SlotAID, &edge.SlotBID, &edge.MatchDate); err != nil {
			return nil, fmt.Errorf("scan partner edge: %w", err)
		}
		items = append(items, edge)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate partner edges: %w", rows.Err())
	}

	return items, nil
}

func (r *PairingRepo) ListParticipantIDsPairedOn(ctx context.Context, matchDate time.Time) ([]int64, error) {
	if r.pool == nil {
		return []int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT slot_a_id, slot_b_id
FROM pairings
WHERE match_date = $1
`, matchDate)
	if err != nil {
		return nil, fmt.Errorf("list paired participants: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 64)
	for rows.Next() {
		var a, b int64
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("scan paired participants: %w", err)
		}
		ids = append(ids, a, b)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate paired participants: %w", rows.Err())
	}

	return ids, nil
}

func (r *PairingRepo) ListExpiredUnresolved(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("invalid sweep batch limit")
	}
	if r.pool == nil {
		return []int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id
FROM pairings
WHERE expires_at < $1 AND status IN ($2, $3, $4)
ORDER BY id
LIMIT $5
`, now,
		string(enums.PairingStatusPending),
		string(enums.PairingStatusSlotASubmitted),
		string(enums.PairingStatusSlotBSubmitted),
		limit)
	if err != nil {
		return nil, fmt.Errorf("list expired pairings: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired pairing id: %w", err)
		}
		ids = append(ids, id)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate expired pairing ids: %w", rows.Err())
	}

	return ids, nil
}

// FlakeBatch forces the given records into the flaked state. The status
// filter makes retries idempotent: a record already terminal is left alone
// and simply not returned.
func (r *PairingRepo) FlakeBatch(ctx context.Context, tx pgx.Tx, ids []int64) ([]FlakedPairing, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}
	if len(ids) == 0 {
		return []FlakedPairing{}, nil
	}

	rows, err := tx.Query(ctx, `
UPDATE pairings
SET status = $2
WHERE id = ANY($1) AND status IN ($3, $4, $5)
RETURNING
	id,
	slot_a_id,
	slot_b_id,
	slot_a_submitted_at IS NOT NULL,
	slot_b_submitted_at IS NOT NULL
`, ids,
		string(enums.PairingStatusFlaked),
		string(enums.PairingStatusPending),
		string(enums.PairingStatusSlotASubmitted),
		string(enums.PairingStatusSlotBSubmitted))
	if err != nil {
		return nil, fmt.Errorf("flake pairings batch: %w", err)
	}
	defer rows.Close()

	items := make([]FlakedPairing, 0, len(ids))
	for rows.Next() {
		var item FlakedPairing
		if err := rows.Scan(&item.ID, &item.SlotAID, &item.SlotBID, &item.SlotASubmitted, &item.SlotBSubmitted); err != nil {
			return nil, fmt.Errorf("scan flaked pairing: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate flaked pairings: %w", rows.Err())
	}

	return items, nil
}
