package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhaozysharecode/wb-api/internal/auth"
	"github.com/zhaozysharecode/wb-api/internal/models"
)

const currentUserKey = "currentUser"

// BearerAuth verifies the Authorization: Bearer token and resolves its
// subject to a stored user. Every failure kind (missing header, bad
// signature, expiry, unknown subject) is reported as a plain 401 with a
// WWW-Authenticate challenge; the kinds are only distinguished in logs.
func BearerAuth(db *gorm.DB, tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c)
			return
		}

		username, err := tokens.Verify(parts[1])
		if err != nil {
			log.Printf("token rejected: %v", err)
			unauthorized(c)
			return
		}

		var user models.User
		if err := db.Where("username = ?", username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Token subject no longer resolves to a stored user.
				log.Printf("token rejected: %v", auth.ErrUserNotFound)
				unauthorized(c)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
}

// CurrentUser returns the identity stored by BearerAuth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// RequestIDMiddleware tags every request with a uuid, echoed back in the
// X-Request-ID header for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// SecurityHeadersMiddleware adds basic, sensible security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevents clickjacking
		c.Header("X-Frame-Options", "DENY")
		// Prevents MIME-type sniffing
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}
