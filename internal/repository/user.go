// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"pictogram/internal/models"

	"gorm.io/gorm"
)

// MsgUserNotFound is the NotFound message for user lookups.
const MsgUserNotFound = "User not found."

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	Random(ctx context.Context, limit int) ([]models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, read: readDB(db)}
}

// Create inserts the user. Duplicate username or email errors are returned
// wrapped so the error translator can map them to a Conflict.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return internal(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, r.db, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, r.db, "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, r.db, "email = ?", email)
}

func (r *userRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if tokenHash == "" {
		return nil, models.NewNotFoundError(MsgUserNotFound)
	}
	return r.first(ctx, r.db, "password_reset_token = ? AND password_reset_expires_at > ?", tokenHash, now)
}

func (r *userRepository) first(ctx context.Context, db *gorm.DB, query string, args ...any) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(MsgUserNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// Update writes the given columns. Zero values are written too.
func (r *userRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgUserNotFound)
	}
	return nil
}

// Random returns up to limit active users in random order.
func (r *userRepository) Random(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := r.read.WithContext(ctx).
		Where("active = ?", true).
		Order("RANDOM()").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Search matches active users whose username contains query, case-insensitively.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	if err := r.read.WithContext(ctx).
		Where("active = ? AND LOWER(username) LIKE ? ESCAPE '\\'", true, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
