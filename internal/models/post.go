package models

import (
	"time"
)

// MaxCaptionLength bounds Post.Caption.
const MaxCaptionLength = 256

// Post represents a photo post. Photo, PostedBy and PostedAt are fixed at creation.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Caption  string    `gorm:"size:256" json:"caption"`
	Photo    string    `gorm:"not null" json:"photo"`
	PhotoKey string    `gorm:"not null" json:"-"`
	PostedBy uint      `gorm:"not null;index" json:"postedBy"`
	PostedAt time.Time `gorm:"not null;index" json:"postedAt"`
}

// PostView is the composed read model for a post with its likes and comments.
type PostView struct {
	Post
	Likes        []uint    `json:"likes"`
	LikeCount    int       `json:"like"`
	CommentCount int       `json:"comment"`
	Comments     []Comment `json:"comments,omitempty"`
}
