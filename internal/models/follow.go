package models

import (
	"time"
)

// Follow is one directed edge of the follow graph. A single row answers both
// "who follows X" and "whom does Y follow", so the two sides cannot diverge.
// The pair is unique and a user never follows itself.
type Follow struct {
	FollowerID  uint      `gorm:"primaryKey;autoIncrement:false;check:chk_follows_not_self,follower_id <> following_id" json:"followerId"`
	FollowingID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"followingId"`
	CreatedAt   time.Time `json:"created_at"`
}

// Like records that a user likes a post. The (UserID, PostID) pair is unique.
type Like struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
