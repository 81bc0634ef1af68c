package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/zhaozysharecode/wb-api/internal/auth"
	"github.com/zhaozysharecode/wb-api/internal/config"
	"github.com/zhaozysharecode/wb-api/internal/db"
	routes "github.com/zhaozysharecode/wb-api/internal/http"
	"github.com/zhaozysharecode/wb-api/internal/models"
	"github.com/zhaozysharecode/wb-api/internal/ws"
)

func main() {
	// Load .env first so config sees its values. Missing files are fine:
	// production sets env vars directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// 1. Initialize Database
	database, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 2. Run Migrations
	log.Println("Running database migrations...")
	if err := database.AutoMigrate(&models.User{}, &models.Post{}, &models.Like{}, &models.Comment{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete.")

	// 3. Token service with the process-wide signing secret
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)

	// 4. Initialize WebSocket Hub
	hub := ws.NewHub()
	go hub.Run()

	// 5. Initialize Gin Router
	router := gin.New()

	// 6. Setup Routes
	routes.SetupRoutes(router, database, hub, tokens, cfg)

	// 7. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
