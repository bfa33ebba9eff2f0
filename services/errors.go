package services

import (
	"errors"
	"fmt"
)

// User-visible rejections. The error text is the exact chat reply, so
// handlers can send err.Error() back to the actor verbatim.
var (
	ErrNotAGroup           = errors.New("❌ This is not a group.")
	ErrAlreadyPlaying      = errors.New("❌ You are already playing Exquisite Corpse.")
	ErrSessionExists       = errors.New("❌ There is already a game created in this group.")
	ErrInvalidSetup        = errors.New("❌ Invalid game setup.")
	ErrNoSession           = errors.New("❌ There is no game created in this group.")
	ErrAlreadyJoined       = errors.New("❌ You already joined this game.")
	ErrPlayingElsewhere    = errors.New("❌ You are already playing Exquisite Corpse in another group.")
	ErrJoinWindowClosed    = errors.New("⌛ Too late!!! You can't join the game at this time")
	ErrAlreadyStarted      = errors.New("❌ Game already started.")
	ErrInsufficientPlayers = errors.New("❌ There is not sufficient players")
	ErrNotPlaying          = errors.New("❌ You are not playing Exquisite Corpse.")
)

// TextTooShortError rejects a submission below the session word minimum.
// The submission is discarded and the sender keeps the turn.
type TextTooShortError struct {
	MinWords int
}

func (e *TextTooShortError) Error() string {
	return fmt.Sprintf("❌ Text too short. Send a message with at least %d words", e.MinWords)
}
