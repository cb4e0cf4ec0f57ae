package models

import (
	"time"
)

// Story represents a story photo. Stories do not expire.
type Story struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Photo     string    `gorm:"not null" json:"photo"`
	PhotoKey  string    `gorm:"not null" json:"-"`
	StoriedBy uint      `gorm:"not null;index" json:"storiedBy"`
	CreatedAt time.Time `json:"created_at"`
}

// StoryItem is one entry of a StoryGroup.
type StoryItem struct {
	Photo   string `json:"photo"`
	StoryID uint   `json:"storyId"`
}

// StoryGroup holds all stories of one author.
type StoryGroup struct {
	AuthorID uint        `json:"_id"`
	Stories  []StoryItem `json:"stories"`
}
