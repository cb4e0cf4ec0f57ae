package seed

import (
	"fmt"
	"log/slog"

	"pictogram/internal/database"
	"pictogram/internal/middleware"
	"pictogram/internal/models"

	"gorm.io/gorm"
)

// Seeder populates a database with a connected social graph.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// Result counts what a seeding run created.
type Result struct {
	Users    int
	Follows  int
	Posts    int
	Likes    int
	Comments int
	Stories  int
}

// NewSeeder builds a Seeder with its own Factory.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f}, nil
}

// ClearAll removes every row of every persistent model, children first.
func (s *Seeder) ClearAll() error {
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	middleware.Logger.Info("Cleared existing data")
	return nil
}

// SeedSocialMesh creates count users where each follows the next few users
// in a ring, so every account has followers and followings.
func (s *Seeder) SeedSocialMesh(count int) ([]*models.User, int, error) {
	users := make([]*models.User, 0, count)
	for len(users) < count {
		u, err := s.createUserWithRetry()
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}

	fanout := 3
	if count-1 < fanout {
		fanout = count - 1
	}
	follows := 0
	for i, follower := range users {
		for step := 1; step <= fanout; step++ {
			if err := s.factory.CreateFollow(follower, users[(i+step)%count]); err != nil {
				return nil, 0, fmt.Errorf("create follow: %w", err)
			}
			follows++
		}
	}

	middleware.Logger.Info("Seeded social mesh", slog.Int("users", len(users)), slog.Int("follows", follows))
	return users, follows, nil
}

// usernames are random; a collision only costs another attempt.
func (s *Seeder) createUserWithRetry() (*models.User, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		u, err := s.factory.CreateUser()
		if err == nil {
			return u, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("create user: %w", lastErr)
}

// SeedEngagement spreads numPosts posts over users, then has followers like
// and comment on them. Every user also gets one story.
func (s *Seeder) SeedEngagement(users []*models.User, numPosts int) (*Result, error) {
	res := &Result{Users: len(users)}
	if len(users) == 0 {
		return res, nil
	}

	posts := make([]*models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		p, err := s.factory.CreatePost(users[i%len(users)])
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		posts = append(posts, p)
	}
	res.Posts = len(posts)

	for i, p := range posts {
		author := i % len(users)
		for step := 1; step < len(users) && step <= 2; step++ {
			fan := users[(author+step)%len(users)]
			if err := s.factory.CreateLike(fan, p); err != nil {
				return nil, fmt.Errorf("create like: %w", err)
			}
			res.Likes++
		}
		if len(users) > 1 && s.factory.rnd.Intn(2) == 0 {
			if _, err := s.factory.CreateComment(users[(author+1)%len(users)], p); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			res.Comments++
		}
	}

	for _, u := range users {
		if _, err := s.factory.CreateStory(u); err != nil {
			return nil, fmt.Errorf("create story: %w", err)
		}
		res.Stories++
	}

	middleware.Logger.Info("Seeded engagement",
		slog.Int("posts", res.Posts), slog.Int("likes", res.Likes),
		slog.Int("comments", res.Comments), slog.Int("stories", res.Stories))
	return res, nil
}

// Run clears the database when asked, then seeds users and engagement.
func (s *Seeder) Run(numUsers, numPosts int, clean bool) (*Result, error) {
	if clean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}
	users, follows, err := s.SeedSocialMesh(numUsers)
	if err != nil {
		return nil, err
	}
	res, err := s.SeedEngagement(users, numPosts)
	if err != nil {
		return nil, err
	}
	res.Follows = follows
	return res, nil
}
