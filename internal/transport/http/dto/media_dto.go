package dto

import "time"

type UploadURLResponse struct {
	PhotoRef  string    `json:"photo_ref"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
