package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/zhaozysharecode/wb-api/internal/auth"
	"github.com/zhaozysharecode/wb-api/internal/config"
	"github.com/zhaozysharecode/wb-api/internal/models"
	"github.com/zhaozysharecode/wb-api/internal/ws"
)

// --- Structs for request binding ---
type RegisterInput struct {
	Username string `json:"username" binding:"required,min=1,max=50"`
	Password string `json:"password" binding:"required,min=1"`
}
type CreatePostInput struct {
	Content string `json:"content" binding:"required"`
}
type UpdatePostInput struct {
	Content string `json:"content" binding:"required"`
}
type CreateCommentInput struct {
	Content         string `json:"content" binding:"required"`
	ParentCommentID *uint  `json:"parent_comment_id"`
}

// --- WebSocket Payloads ---

// WsMessage defines the JSON structure broadcast to feed subscribers.
type WsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// --- Rate Limiter ---
type IPRateLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*rate.Limiter),
		mu:       sync.RWMutex{},
		rps:      r,
		burst:    b,
	}
}
func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, exists := rl.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[ip] = limiter
	}
	return limiter
}
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please wait."})
			return
		}
		c.Next()
	}
}

// --- Handlers ---
type Env struct {
	DB     *gorm.DB
	Hub    *ws.Hub
	Tokens *auth.TokenService
	Cfg    *config.Config
}

// Transaction result sentinels, mapped to HTTP statuses after commit/rollback.
var (
	errUsernameTaken   = errors.New("username already registered")
	errPostNotFound    = errors.New("post not found")
	errCommentNotFound = errors.New("comment not found")
	errParentNotFound  = errors.New("parent comment not found")
)

// Register creates a new user. The username check and the insert run in one
// transaction, and the schema keeps username unique, so a racing duplicate
// registration fails instead of producing two rows.
func (e *Env) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	digest, err := auth.HashPassword(input.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	user := models.User{Username: input.Username, PasswordHash: digest}
	err = e.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("username = ?", input.Username).First(&existing).Error
		if err == nil {
			return errUsernameTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&user).Error
	})

	if err != nil {
		if errors.Is(err, errUsernameTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already registered"})
			return
		}
		log.Printf("Error registering user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "User registered successfully",
		"username": user.Username,
	})
}

// Login checks the password digest and issues a bearer token. An unknown
// username and a wrong password produce the identical error body so the
// endpoint cannot be used to enumerate usernames.
func (e *Env) Login(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var user models.User
	err := e.DB.Where("username = ?", input.Username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error loading user for login: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}
	if err != nil || !auth.CheckPassword(input.Password, user.PasswordHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect username or password"})
		return
	}

	token, err := e.Tokens.Issue(user.Username, 0)
	if err != nil {
		log.Printf("Error issuing token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// VerifyToken checks a token passed as a query parameter.
func (e *Env) VerifyToken(c *gin.Context) {
	subject, err := e.Tokens.Verify(c.Query("token"))
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Token is valid", "user": subject})
}

type postSummary struct {
	ID      uint   `json:"id"`
	Content string `json:"content"`
	OwnerID uint   `json:"owner_id"`
}

// GetPosts lists posts publicly with skip/limit pagination.
func (e *Env) GetPosts(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	posts := []postSummary{}
	if err := e.DB.Model(&models.Post{}).Order("id").Offset(skip).Limit(limit).Find(&posts).Error; err != nil {
		log.Printf("Error fetching posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (e *Env) CreatePost(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		unauthorized(c)
		return
	}

	var input CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if len(input.Content) > e.Cfg.MaxPostLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post content too long"})
		return
	}

	post := models.Post{Content: input.Content, OwnerID: user.ID}
	if err := e.DB.Create(&post).Error; err != nil {
		log.Printf("Error creating post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	e.broadcastMessage(WsMessage{Type: "new_post", Data: postSummary{ID: post.ID, Content: post.Content, OwnerID: post.OwnerID}})

	c.JSON(http.StatusCreated, gin.H{"message": "Post created successfully", "post_id": post.ID})
}

// UpdatePost replaces a post's content. The lookup is scoped to the caller's
// id, so a missing post and another user's post both come back as the same
// 404; existence of other users' posts never leaks through this endpoint.
func (e *Env) UpdatePost(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		unauthorized(c)
		return
	}

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var input UpdatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if len(input.Content) > e.Cfg.MaxPostLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post content too long"})
		return
	}

	err = e.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ? AND owner_id = ?", postID, user.ID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errPostNotFound
			}
			return err
		}
		return tx.Model(&post).Update("content", input.Content).Error
	})

	if err != nil {
		e.renderMutationError(c, err, "Failed to update post")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Post updated successfully",
		"post_id":     postID,
		"new_content": input.Content,
	})
}

// DeletePost removes a post along with every like and comment that
// references it. The cleanup runs in a single transaction so a failure
// never leaves the post gone but its likes or comments still queryable.
func (e *Env) DeletePost(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		unauthorized(c)
		return
	}

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	err = e.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ? AND owner_id = ?", postID, user.ID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errPostNotFound
			}
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})

	if err != nil {
		e.renderMutationError(c, err, "Failed to delete post")
		return
	}

	e.broadcastMessage(WsMessage{Type: "delete_post", Data: gin.H{"post_id": postID}})

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully", "post_id": postID})
}

// ToggleLike adds a like when none exists for this (user, post) pair and
// removes it otherwise. The check and the insert/delete share a transaction
// and the pair carries a unique index, so two concurrent identical requests
// can never leave two like rows behind.
func (e *Env) ToggleLike(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		unauthorized(c)
		return
	}

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	removed := false
	err = e.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errPostNotFound
			}
			return err
		}

		var like models.Like
		err := tx.Where("user_id = ? AND post_id = ?", user.ID, post.ID).First(&like).Error
		switch {
		case err == nil:
			removed = true
			return tx.Delete(&like).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
		default:
			return err
		}
	})

	if err != nil {
		e.renderMutationError(c, err, "Failed to process like")
		return
	}

	message := "Post liked"
	if removed {
		message = "Like removed"
	}

	e.broadcastMessage(WsMessage{Type: "like", Data: gin.H{"post_id": postID, "message": message}})

	c.JSON(http.StatusOK, gin.H{"message": message, "post_id": postID})
}

// CreateComment adds a comment, optionally as a reply. A parent comment
// must exist and belong to the same post; a cross-post parent reference is
// rejected with the same 404 as a missing one.
func (e *Env) CreateComment(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		unauthorized(c)
		return
	}

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var input CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if len(input.Content) > e.Cfg.MaxCommentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment content too long"})
		return
	}

	comment := models.Comment{
		Content:         input.Content,
		PostID:          uint(postID),
		UserID:          user.ID,
		ParentCommentID: input.ParentCommentID,
	}
	err = e.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errPostNotFound
			}
			return err
		}
		if input.ParentCommentID != nil {
			var parent models.Comment
			err := tx.Where("id = ? AND post_id = ?", *input.ParentCommentID, post.ID).First(&parent).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errParentNotFound
				}
				return err
			}
		}
		return tx.Create(&comment).Error
	})

	if err != nil {
		e.renderMutationError(c, err, "Failed to create comment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Comment created successfully", "comment_id": comment.ID})
}

// GetComments lists a post's comments as flat rows; reply threads are
// reconstructed by the client from parent_comment_id.
func (e *Env) GetComments(c *gin.Context) {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var post models.Post
	if err := e.DB.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		log.Printf("Error loading post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	comments := []models.Comment{}
	if err := e.DB.Where("post_id = ?", post.ID).Order("id").Find(&comments).Error; err != nil {
		log.Printf("Error fetching comments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}
	c.JSON(http.StatusOK, comments)
}

// DeleteComment removes a comment authored by the caller, together with all
// of its replies (and theirs, transitively). As with posts, a missing
// comment and someone else's comment get the same 404.
func (e *Env) DeleteComment(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		unauthorized(c)
		return
	}

	commentID, err := strconv.ParseUint(c.Param("comment_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment ID"})
		return
	}

	err = e.DB.Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Where("id = ? AND user_id = ?", commentID, user.ID).First(&comment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errCommentNotFound
			}
			return err
		}

		// Walk the reply tree level by level; depth is unbounded.
		doomed := []uint{comment.ID}
		frontier := []uint{comment.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).Where("parent_comment_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			doomed = append(doomed, children...)
			frontier = children
		}
		return tx.Where("id IN ?", doomed).Delete(&models.Comment{}).Error
	})

	if err != nil {
		e.renderMutationError(c, err, "Failed to delete comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully", "comment_id": commentID})
}

// renderMutationError maps transaction sentinels to responses. Ownership
// failures surface as the resource's not-found message on purpose.
func (e *Env) renderMutationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, errPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
	case errors.Is(err, errCommentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
	case errors.Is(err, errParentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Parent comment not found"})
	default:
		log.Printf("Error in mutation transaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// broadcastMessage pushes a feed event to websocket subscribers.
func (e *Env) broadcastMessage(msg WsMessage) {
	if e.Hub == nil {
		return
	}
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling WS message: %v", err)
		return
	}
	e.Hub.Broadcast <- jsonMsg
}
