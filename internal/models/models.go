package models

import "time"

// User is a registered account. The username is unique and never changes
// after registration. PasswordHash holds the bcrypt digest and must never
// appear in API responses.
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`

	Posts    []Post    `gorm:"foreignKey:OwnerID" json:"-"`
	Likes    []Like    `gorm:"foreignKey:UserID" json:"-"`
	Comments []Comment `gorm:"foreignKey:UserID" json:"-"`
}

// Post is a single feed entry.
type Post struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Content   string    `gorm:"size:255;not null" json:"content"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Likes    []Like    `gorm:"foreignKey:PostID" json:"-"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"-"`
}

// Like marks that a user liked a post. The composite unique index makes a
// duplicate insert for the same (user, post) pair fail at the store level,
// which keeps the like toggle race-safe under concurrent identical requests.
type Like struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_post" json:"post_id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a comment on a post. ParentCommentID is nil for top-level
// comments; when set it must reference an existing comment on the same post.
// The thread is never materialized as an object graph: replies are found by
// querying parent_comment_id.
type Comment struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	Content         string    `gorm:"size:255;not null" json:"content"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id"`
	CreatedAt       time.Time `json:"createdAt"`
}
