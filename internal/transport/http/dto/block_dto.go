package dto

type BlockRequest struct {
	TargetID int64  `json:"target_id"`
	Reason   string `json:"reason"`
}

type BlockResponse struct {
	OK bool `json:"ok"`
}
