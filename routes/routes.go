package routes

import (
	"log"
	"net/http"

	"github.com/simplebot-org/simplebot-corpse/handlers"
	"github.com/simplebot-org/simplebot-corpse/middleware"
	"github.com/simplebot-org/simplebot-corpse/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		api.POST("/auth/token", authHandler.Token)

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			protected.GET("/chats/:id/status", gameHandler.GetStatus)
		}
	}

	// WebSocket endpoint for the chat gateway
	router.GET("/ws", func(c *gin.Context) {
		token := c.Query("token")
		addr, name, err := middleware.ParseToken(jwtSecret, token)
		if err != nil {
			log.Printf("WebSocket auth failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for %s: %v", addr, err)
			return
		}

		log.Printf("WebSocket connection established for %s (%s)", addr, name)
		hub.RegisterClient(conn, addr, name)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
