package dto

import "time"

type PairingResponse struct {
	ID               int64      `json:"id"`
	MatchDate        string     `json:"match_date"`
	ExpiresAt        time.Time  `json:"expires_at"`
	SlotAID          int64      `json:"slot_a_id"`
	SlotBID          int64      `json:"slot_b_id"`
	Status           string     `json:"status"`
	SlotAPhotoRef    *string    `json:"slot_a_photo_ref"`
	SlotBPhotoRef    *string    `json:"slot_b_photo_ref"`
	SlotASubmittedAt *time.Time `json:"slot_a_submitted_at"`
	SlotBSubmittedAt *time.Time `json:"slot_b_submitted_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	ChatRef          string     `json:"chat_ref"`
	LikeCount        int        `json:"like_count"`
	CommentCount     int        `json:"comment_count"`
}

type SubmitPhotoRequest struct {
	PhotoRef string `json:"photo_ref"`
}

type ReactionResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type AddCommentRequest struct {
	Body string `json:"body"`
}

type CommentResponse struct {
	ID            int64     `json:"id"`
	PairingID     int64     `json:"pairing_id"`
	ParticipantID int64     `json:"participant_id"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}

type CommentsResponse struct {
	Items []CommentResponse `json:"items"`
}

type JobRunResponse struct {
	OK bool `json:"ok"`
}
