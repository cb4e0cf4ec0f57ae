package repository

import (
	"context"

	"pictogram/internal/database"

	"gorm.io/gorm"
)

// Store bundles the repositories over one connection. Inside InTx every
// repository of the callback's Store shares the transaction.
type Store struct {
	db *gorm.DB

	Users         UserRepository
	Posts         PostRepository
	Comments      CommentRepository
	Stories       StoryRepository
	Follows       FollowRepository
	Likes         LikeRepository
	Notifications NotificationRepository
}

// NewStore builds a Store writing to db and reading from the replica when one is configured.
func NewStore(db *gorm.DB) *Store {
	return newStore(db, readDB(db))
}

func newStore(db, read *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         &userRepository{db: db, read: read},
		Posts:         &postRepository{db: db, read: read},
		Comments:      &commentRepository{db: db, read: read},
		Stories:       &storyRepository{db: db, read: read},
		Follows:       &followRepository{db: db, read: read},
		Likes:         &likeRepository{db: db, read: read},
		Notifications: &notificationRepository{db: db, read: read},
	}
}

// InTx runs fn with a Store bound to a single transaction. Reads inside fn go
// to the primary so they observe the transaction's own writes.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return database.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		return fn(newStore(tx, tx))
	})
}

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}
