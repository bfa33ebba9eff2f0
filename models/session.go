package models

import "time"

// Session is one Exquisite Corpse game, scoped to a group chat.
// Turn holds the address of the player expected to act; it is empty
// until the game is started.
type Session struct {
	ChatID   int64  `json:"chat_id" gorm:"primaryKey"`
	Text     string `json:"text" gorm:"not null;default:''"`
	Turn     string `json:"turn"`
	Rounds   int    `json:"rounds" gorm:"not null"`
	MinWords int    `json:"min_words" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Players []Player `json:"players,omitempty" gorm:"foreignKey:ChatID;references:ChatID;constraint:OnDelete:CASCADE"`
}
