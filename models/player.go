package models

import "time"

// Player is a participant's membership in a Session. The address is the
// primary key, so a participant can be in at most one game at a time.
// Position records roster insertion order; Round starts at 1.
type Player struct {
	Addr     string `json:"addr" gorm:"primaryKey"`
	ChatID   int64  `json:"chat_id" gorm:"not null;index"`
	Round    int    `json:"round" gorm:"not null;default:1"`
	Position int    `json:"position" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
