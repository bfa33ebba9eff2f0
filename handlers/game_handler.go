package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/simplebot-org/simplebot-corpse/services"

	"github.com/gin-gonic/gin"
)

// GameHandler exposes read-only game state over HTTP.
type GameHandler struct {
	gameService *services.GameService
}

func NewGameHandler(gameService *services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

func (h *GameHandler) GetStatus(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat ID"})
		return
	}

	replies, err := h.gameService.Status(services.Chat{ID: chatID, Group: true})
	if err != nil {
		if errors.Is(err, services.ErrNoSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": chatID, "status": replies[0].Text})
}
