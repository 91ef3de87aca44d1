package routes

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"metalflow/internal/ledger"
	"metalflow/internal/manufacturing"
	"metalflow/internal/metals"
	"metalflow/internal/repository"
	"metalflow/internal/security"
	"metalflow/internal/supplies"
)

// RegisterProtectedRoutes mounts every domain feature behind the JWT
// middleware. All handlers read the tenant and user from the token claims.
func RegisterProtectedRoutes(router *gin.Engine, repo *repository.Repository, appLogger *zap.Logger) {
	protectedRoutes := router.Group("/api")
	protectedRoutes.Use(security.JWTMiddleware())

	metals.RegisterRoutes(protectedRoutes, repo)
	ledger.RegisterRoutes(protectedRoutes, repo)
	manufacturing.RegisterRoutes(protectedRoutes, repo)
	supplies.RegisterRoutes(protectedRoutes, repo, appLogger)
}

func RegisterUtilityRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		log.Println("Health check successful")
	})
}
