package repository

import (
	"context"

	"pictogram/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository stores (user, post) like pairs.
type LikeRepository interface {
	// Add inserts the pair and reports whether it did not exist before.
	Add(ctx context.Context, userID, postID uint) (bool, error)
	// Remove deletes the pair and reports whether it existed.
	Remove(ctx context.Context, userID, postID uint) (bool, error)
	UserIDsByPost(ctx context.Context, postID uint) ([]uint, error)
	UserIDsByPosts(ctx context.Context, postIDs []uint) (map[uint][]uint, error)
	DeleteByPosts(ctx context.Context, postIDs []uint) (int64, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	DeleteOnPostsOf(ctx context.Context, userID uint) (int64, error)
	// PostIDsByUser lists the distinct posts userID has liked.
	PostIDsByUser(ctx context.Context, userID uint) ([]uint, error)
}

type likeRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db, read: readDB(db)}
}

func (r *likeRepository) Add(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: userID, PostID: postID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *likeRepository) Remove(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) UserIDsByPost(ctx context.Context, postID uint) ([]uint, error) {
	ids := []uint{}
	if err := r.read.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *likeRepository) UserIDsByPosts(ctx context.Context, postIDs []uint) (map[uint][]uint, error) {
	byPost := make(map[uint][]uint, len(postIDs))
	if len(postIDs) == 0 {
		return byPost, nil
	}
	var likes []models.Like
	if err := r.read.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("created_at ASC").
		Find(&likes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, l := range likes {
		byPost[l.PostID] = append(byPost[l.PostID], l.UserID)
	}
	return byPost, nil
}

func (r *likeRepository) DeleteByPosts(ctx context.Context, postIDs []uint) (int64, error) {
	if len(postIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Delete(&models.Like{})
	return res.RowsAffected, internal(res.Error)
}

func (r *likeRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Like{})
	return res.RowsAffected, internal(res.Error)
}

// DeleteOnPostsOf removes every like on posts owned by userID.
func (r *likeRepository) DeleteOnPostsOf(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("post_id IN (?)", r.db.Model(&models.Post{}).Select("id").Where("posted_by = ?", userID)).
		Delete(&models.Like{})
	return res.RowsAffected, internal(res.Error)
}

func (r *likeRepository) PostIDsByUser(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("post_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
