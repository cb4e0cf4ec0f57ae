// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"pictogram/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

// Options tune the generated data.
type Options struct {
	// FastHash uses the minimum bcrypt cost so large meshes seed quickly.
	FastHash bool
	// MaxDays spreads PostedAt over the given number of past days.
	MaxDays int
	// Seed makes the generated content reproducible when non-zero.
	Seed int64
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	rnd    *rand.Rand
	hashed string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}

	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seed),
		rnd:    rand.New(rand.NewSource(seed)), //nolint:gosec // seeding only
		hashed: string(hashed),
	}, nil
}

// username fits the 12 character column and stays unique through the suffix.
func (f *Factory) username() string {
	base := strings.ToLower(f.faker.Username())
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, base)
	if len(base) > 8 {
		base = base[:8]
	}
	return fmt.Sprintf("%s%04d", base, f.faker.Number(0, 9999))
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.rnd.Intn(f.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// CreateUser constructs and persists an active user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	username := f.username()
	user := &models.User{
		Firstname: clip(f.faker.FirstName(), 16),
		Lastname:  clip(f.faker.LastName(), 16),
		Username:  username,
		Email:     username + "@" + f.faker.DomainName(),
		Password:  f.hashed,
		Bio:       f.faker.Sentence(8),
		Photo:     fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		Active:    true,
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a photo post by user with a picsum photo.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	id := f.faker.UUID()
	post := &models.Post{
		Caption:  clip(f.faker.Sentence(6), models.MaxCaptionLength),
		Photo:    fmt.Sprintf("https://picsum.photos/seed/%s/1080/1080", id),
		PhotoKey: fmt.Sprintf("seed/posts/%d/%s.jpg", user.ID, id),
		PostedBy: user.ID,
		PostedAt: f.pastTime(),
	}
	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateStory persists a story by user.
func (f *Factory) CreateStory(user *models.User) (*models.Story, error) {
	id := f.faker.UUID()
	story := &models.Story{
		Photo:     fmt.Sprintf("https://picsum.photos/seed/%s/1080/1920", id),
		PhotoKey:  fmt.Sprintf("seed/stories/%d/%s.jpg", user.ID, id),
		StoriedBy: user.ID,
	}
	if err := f.db.Create(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}

// CreateFollow adds the follower -> following edge and its notification.
func (f *Factory) CreateFollow(follower, following *models.User) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID}).Error; err != nil {
			return err
		}
		return notify(tx, follower.ID, following.ID, models.NotificationFollowed)
	})
}

// CreateLike records user liking post and notifies the author.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error; err != nil {
			return err
		}
		return notify(tx, user.ID, post.PostedBy, models.NotificationLiked)
	})
}

// CreateComment persists a comment by user on post and notifies the author.
func (f *Factory) CreateComment(user *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		Text:          f.faker.Sentence(8),
		CommentedBy:   user.ID,
		CommentedPost: post.ID,
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return notify(tx, user.ID, post.PostedBy, models.NotificationCommented)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func notify(tx *gorm.DB, from, to uint, message string) error {
	return tx.Create(&models.Notification{NotifiedBy: from, NotifiedTo: to, Message: message, New: true}).Error
}
