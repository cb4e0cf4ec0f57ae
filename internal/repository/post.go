package repository

import (
	"context"
	"errors"

	"pictogram/internal/models"

	"gorm.io/gorm"
)

// MsgPostNotFound is the NotFound message for post lookups.
const MsgPostNotFound = "Post not found."

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	ListRecent(ctx context.Context, limit int) ([]models.Post, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Post, error)
	UpdateCaption(ctx context.Context, id uint, caption string) error
	Delete(ctx context.Context, id uint) error
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
}

type postRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, read: readDB(db)}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return internal(r.db.WithContext(ctx).Create(post).Error)
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(MsgPostNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// ListRecent returns the newest posts first.
func (r *postRepository) ListRecent(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	if err := r.read.WithContext(ctx).
		Order("posted_at DESC, id DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint) ([]models.Post, error) {
	var posts []models.Post
	if err := r.read.WithContext(ctx).
		Where("posted_by = ?", userID).
		Order("posted_at DESC, id DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// UpdateCaption changes the only mutable column of a post.
func (r *postRepository) UpdateCaption(ctx context.Context, id uint, caption string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("caption", caption)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgPostNotFound)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return internal(r.db.WithContext(ctx).Delete(&models.Post{}, id).Error)
}

func (r *postRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("posted_by = ?", userID).Delete(&models.Post{})
	return res.RowsAffected, internal(res.Error)
}
