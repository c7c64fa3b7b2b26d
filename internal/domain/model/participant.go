package model

import "time"

type Participant struct {
	ID                  int64     `json:"id"`
	Active              bool      `json:"active"`
	LastActiveAt        time.Time `json:"last_active_at"`
	FlakeStreak         int       `json:"flake_streak"`
	MaxFlakeStreak      int       `json:"max_flake_streak"`
	WaitlistedToday     bool      `json:"waitlisted_today"`
	PriorityNextPairing bool      `json:"priority_next_pairing"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
