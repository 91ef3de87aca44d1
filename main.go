package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"metalflow/cmd"
	"metalflow/internal/database"
	"metalflow/internal/logger"
	"metalflow/internal/middleware"
	"metalflow/internal/repository"
	"metalflow/internal/routes"
)

func init() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load .env file, but don't overwrite system environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, falling back to system environment variables.")
	}

	cmd.Execute(ctx)
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := database.NewPostgresConnection(dbURL)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer db.Close()

	log.Println("Connected to the database successfully!")

	appLogger := logger.NewLogger()
	repo := repository.NewRepository(db)

	router := gin.Default()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.TimeoutMiddleware(30 * time.Second))

	routes.RegisterUtilityRoutes(router)
	routes.RegisterProtectedRoutes(router, repo, appLogger)

	if err := router.Run(os.Getenv("APP_HOST")); err != nil {
		panic(err)
	}
}
