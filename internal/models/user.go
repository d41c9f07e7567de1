package models

import "time"

// User is a bot user known from a previous /start. Kept for broadcast
// delivery and usage stats; access decisions never depend on this record.
type User struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
