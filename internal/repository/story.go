package repository

import (
	"context"

	"pictogram/internal/models"

	"gorm.io/gorm"
)

// StoryRepository defines the interface for story data operations
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	ListAll(ctx context.Context) ([]models.Story, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Story, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
}

type storyRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db, read: readDB(db)}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	return internal(r.db.WithContext(ctx).Create(story).Error)
}

// ListAll returns every story ordered by author, oldest first within an author.
func (r *storyRepository) ListAll(ctx context.Context) ([]models.Story, error) {
	var stories []models.Story
	if err := r.read.WithContext(ctx).
		Order("storied_by ASC, created_at ASC, id ASC").
		Find(&stories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stories, nil
}

func (r *storyRepository) ListByUser(ctx context.Context, userID uint) ([]models.Story, error) {
	var stories []models.Story
	if err := r.read.WithContext(ctx).
		Where("storied_by = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&stories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stories, nil
}

func (r *storyRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("storied_by = ?", userID).Delete(&models.Story{})
	return res.RowsAffected, internal(res.Error)
}
