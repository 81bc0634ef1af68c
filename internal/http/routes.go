package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/zhaozysharecode/wb-api/internal/auth"
	"github.com/zhaozysharecode/wb-api/internal/config"
	"github.com/zhaozysharecode/wb-api/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, db *gorm.DB, hub *ws.Hub, tokens *auth.TokenService, cfg *config.Config) {

	// --- Dependencies ---
	env := &Env{DB: db, Hub: hub, Tokens: tokens, Cfg: cfg}

	// --- Middleware ---

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(SecurityHeadersMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.mu.Lock()
			for ip, v := range limiter.visitors {
				if v.Allow() {
					// Idle long enough to have a full bucket again; drop it.
					delete(limiter.visitors, ip)
				}
			}
			limiter.mu.Unlock()
		}
	}()

	authRequired := BearerAuth(db, tokens)

	// --- API Routes ---

	router.POST("/register/", RateLimitMiddleware(limiter), env.Register)
	router.POST("/login/", RateLimitMiddleware(limiter), env.Login)
	router.GET("/verify-token/", env.VerifyToken)

	router.GET("/posts/", env.GetPosts)
	router.POST("/posts/", RateLimitMiddleware(limiter), authRequired, env.CreatePost)
	router.PUT("/posts/:post_id", authRequired, env.UpdatePost)
	router.DELETE("/posts/:post_id", authRequired, env.DeletePost)
	router.POST("/posts/:post_id/like", authRequired, env.ToggleLike)
	router.GET("/posts/:post_id/comments", env.GetComments)
	router.POST("/posts/:post_id/comments", authRequired, env.CreateComment)
	router.DELETE("/comments/:comment_id", authRequired, env.DeleteComment)

	// --- WebSocket Route ---

	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(hub, c.Writer, c.Request)
	})
}
