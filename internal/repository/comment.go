package repository

import (
	"context"
	"errors"

	"pictogram/internal/models"

	"gorm.io/gorm"
)

// MsgCommentNotFound is the NotFound message for comment lookups.
const MsgCommentNotFound = "Comment not found."

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	Latest(ctx context.Context, userID, postID uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	CountByPosts(ctx context.Context, postIDs []uint) (map[uint]int, error)
	Delete(ctx context.Context, id uint) error
	DeleteByPosts(ctx context.Context, postIDs []uint) (int64, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	DeleteOnPostsOf(ctx context.Context, userID uint) (int64, error)
	// PostIDsByUser lists the distinct posts userID has commented on.
	PostIDsByUser(ctx context.Context, userID uint) ([]uint, error)
}

type commentRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, read: readDB(db)}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return internal(r.db.WithContext(ctx).Create(comment).Error)
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(MsgCommentNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// Latest returns the most recent comment userID left on postID.
func (r *commentRepository) Latest(ctx context.Context, userID, postID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Where("commented_by = ? AND commented_post = ?", userID, postID).
		Order("created_at DESC, id DESC").
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(MsgCommentNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.read.WithContext(ctx).
		Where("commented_post = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) CountByPosts(ctx context.Context, postIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		CommentedPost uint
		Total         int
	}
	if err := r.read.WithContext(ctx).
		Model(&models.Comment{}).
		Select("commented_post, COUNT(*) AS total").
		Where("commented_post IN ?", postIDs).
		Group("commented_post").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		counts[row.CommentedPost] = row.Total
	}
	return counts, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	return internal(r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error)
}

func (r *commentRepository) DeleteByPosts(ctx context.Context, postIDs []uint) (int64, error) {
	if len(postIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("commented_post IN ?", postIDs).Delete(&models.Comment{})
	return res.RowsAffected, internal(res.Error)
}

func (r *commentRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("commented_by = ?", userID).Delete(&models.Comment{})
	return res.RowsAffected, internal(res.Error)
}

// DeleteOnPostsOf removes every comment left on posts owned by userID.
func (r *commentRepository) DeleteOnPostsOf(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("commented_post IN (?)", r.db.Model(&models.Post{}).Select("id").Where("posted_by = ?", userID)).
		Delete(&models.Comment{})
	return res.RowsAffected, internal(res.Error)
}

func (r *commentRepository) PostIDsByUser(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	if err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("commented_by = ?", userID).
		Distinct().
		Pluck("commented_post", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
