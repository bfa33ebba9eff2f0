package main

import (
	"log"

	"github.com/simplebot-org/simplebot-corpse/config"
	"github.com/simplebot-org/simplebot-corpse/handlers"
	"github.com/simplebot-org/simplebot-corpse/middleware"
	"github.com/simplebot-org/simplebot-corpse/models"
	"github.com/simplebot-org/simplebot-corpse/routes"
	"github.com/simplebot-org/simplebot-corpse/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.Session{},
		&models.Player{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	directory := services.NewDirectory(redisClient)
	gameService := services.NewGameService(db, directory)

	// Initialize handlers
	botHandler := handlers.NewBotHandler(gameService)
	authHandler := handlers.NewAuthHandler(cfg.JWTSecret)
	gameHandler := handlers.NewGameHandler(gameService)

	// Initialize WebSocket hub
	hub := services.NewHub(botHandler, directory)
	go hub.Run()

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, gameHandler, hub, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
