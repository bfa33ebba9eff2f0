package services

import "github.com/simplebot-org/simplebot-corpse/models"

// nextPlayer picks who acts next: the player with the lowest round, ties
// broken by roster insertion order. Returns nil for an empty roster.
// Callers pass the roster already ordered by position.
func nextPlayer(players []models.Player) *models.Player {
	var next *models.Player
	for i := range players {
		if next == nil || players[i].Round < next.Round {
			next = &players[i]
		}
	}
	return next
}
