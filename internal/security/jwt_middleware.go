package security

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// JWTMiddleware validates the bearer token and stores the tenant and acting
// user identifiers on the request context. The engine treats both as opaque:
// they only scope queries and tag audit rows.
func JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return jwtSecret(), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		tenantID, tenantOK := claimInt(claims, "tenantID")
		userID, userOK := claimInt(claims, "userID")
		if !tenantOK || !userOK {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token missing tenant or user claim"})
			c.Abort()
			return
		}

		c.Set("tenantID", tenantID)
		c.Set("userID", userID)
		c.Next()
	}
}

func claimInt(claims jwt.MapClaims, key string) (int, bool) {
	raw, ok := claims[key]
	if !ok {
		return 0, false
	}
	value, ok := raw.(float64)
	if !ok {
		return 0, false
	}
	return int(value), true
}

// TenantID reads the tenant identifier set by JWTMiddleware.
func TenantID(c *gin.Context) int {
	return c.GetInt("tenantID")
}

// UserID reads the acting user identifier set by JWTMiddleware.
func UserID(c *gin.Context) int {
	return c.GetInt("userID")
}
