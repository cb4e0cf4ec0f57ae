package models

import (
	"time"
)

// Comment represents a comment left on a post.
type Comment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Text          string    `gorm:"type:text;not null" json:"comment"`
	CommentedBy   uint      `gorm:"not null;index" json:"commentedBy"`
	CommentedPost uint      `gorm:"not null;index" json:"commentedPost"`
	CreatedAt     time.Time `json:"created_at"`
}
