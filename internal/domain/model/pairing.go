package model

import (
	"time"

	"github.com/yudduy/cs278-bnoc-sub000/internal/domain/enums"
)

type Slot string

const (
	SlotA Slot = "a"
	SlotB Slot = "b"
)

// Pairing is one day's photo-sharing assignment between two participants.
// A photo reference and its submission timestamp are written together,
// exactly once per slot, and never cleared afterwards.
type Pairing struct {
	ID               int64               `json:"id"`
	MatchDate        time.Time           `json:"match_date"`
	ExpiresAt        time.Time           `json:"expires_at"`
	SlotAID          int64               `json:"slot_a_id"`
	SlotBID          int64               `json:"slot_b_id"`
	Status           enums.PairingStatus `json:"status"`
	SlotAPhotoRef    *string             `json:"slot_a_photo_ref"`
	SlotBPhotoRef    *string             `json:"slot_b_photo_ref"`
	SlotASubmittedAt *time.Time          `json:"slot_a_submitted_at"`
	SlotBSubmittedAt *time.Time          `json:"slot_b_submitted_at"`
	CompletedAt      *time.Time          `json:"completed_at"`
	ChatRef          string              `json:"chat_ref"`
	LikeCount        int                 `json:"like_count"`
	CommentCount     int                 `json:"comment_count"`
	CreatedAt        time.Time           `json:"created_at"`
}

func (p *Pairing) SlotOf(participantID int64) (Slot, bool) {
	switch participantID {
	case p.SlotAID:
		return SlotA, true
	case p.SlotBID:
		return SlotB, true
	default:
		return "", false
	}
}

func (p *Pairing) PartnerOf(participantID int64) (int64, bool) {
	switch participantID {
	case p.SlotAID:
		return p.SlotBID, true
	case p.SlotBID:
		return p.SlotAID, true
	default:
		return 0, false
	}
}

func (p *Pairing) PhotoRefFor(slot Slot) *string {
	if slot == SlotA {
		return p.SlotAPhotoRef
	}
	return p.SlotBPhotoRef
}

func (p *Pairing) Submitted(slot Slot) bool {
	return p.PhotoRefFor(slot) != nil
}

type Comment struct {
	ID            int64     `json:"id"`
	PairingID     int64     `json:"pairing_id"`
	ParticipantID int64     `json:"participant_id"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}

type ChatChannel struct {
	Ref       string    `json:"ref"`
	PairingID int64     `json:"pairing_id"`
	CreatedAt time.Time `json:"created_at"`
}
