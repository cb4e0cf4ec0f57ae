// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account in the Pictogram application.
// Active is the soft-delete marker: inactive users are hidden from public reads
// and reactivated by a successful login.
type User struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	Firstname              string     `gorm:"size:16" json:"firstname"`
	Lastname               string     `gorm:"size:16" json:"lastname"`
	Username               string     `gorm:"size:12;uniqueIndex:idx_users_username;not null" json:"username"`
	Email                  string     `gorm:"uniqueIndex:idx_users_email;not null" json:"email"`
	Password               string     `gorm:"not null" json:"-"`
	Photo                  string     `json:"photo,omitempty"`
	Bio                    string     `gorm:"not null;default:''" json:"bio"`
	Active                 bool       `gorm:"not null;default:true;index" json:"-"`
	PasswordResetToken     string     `gorm:"index" json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// UserSummary is the compact author shape embedded in other read models.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Photo    string `json:"photo,omitempty"`
}

// Summary returns the compact representation of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Photo: u.Photo}
}

// Profile is the composed read model for a single user: the account plus
// its posts, stories and both sides of the follow graph.
type Profile struct {
	User
	Posts      []Post  `json:"posts"`
	Stories    []Story `json:"stories"`
	Followers  []uint  `json:"followers"`
	Followings []uint  `json:"followings"`
}
