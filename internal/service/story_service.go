package service

import (
	"context"

	"pictogram/internal/cache"
	"pictogram/internal/imaging"
	"pictogram/internal/models"
	"pictogram/internal/repository"
	"pictogram/internal/storage"
)

// StoryService publishes and lists stories.
type StoryService struct {
	stories repository.StoryRepository
	images  *ImageService
	cache   *cache.Cache
}

// NewStoryService returns a new StoryService. cache may be nil.
func NewStoryService(stories repository.StoryRepository, images *ImageService, c *cache.Cache) *StoryService {
	return &StoryService{stories: stories, images: images, cache: c}
}

// ListStories groups every story by its author, authors in ascending id order.
func (s *StoryService) ListStories(ctx context.Context) ([]models.StoryGroup, error) {
	stories, err := s.stories.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]models.StoryGroup, 0)
	for _, st := range stories {
		if n := len(groups); n == 0 || groups[n-1].AuthorID != st.StoriedBy {
			groups = append(groups, models.StoryGroup{AuthorID: st.StoriedBy})
		}
		last := &groups[len(groups)-1]
		last.Stories = append(last.Stories, models.StoryItem{Photo: st.Photo, StoryID: st.ID})
	}
	return groups, nil
}

// CreateStory renders and stores the photo, then records the story.
func (s *StoryService) CreateStory(ctx context.Context, actor *models.User, content []byte) (*models.Story, error) {
	now := s.images.Now()
	stored, err := s.images.Store(ctx, actor.ID, content, imaging.StoryPreset, func(ext string) string {
		return storage.StoryKey(actor.ID, now, ext)
	}, "Couldn't storied.")
	if err != nil {
		return nil, err
	}

	story := &models.Story{Photo: stored.URL, PhotoKey: stored.Key, StoriedBy: actor.ID}
	if err := s.stories.Create(ctx, story); err != nil {
		s.images.Discard(ctx, stored.Key)
		return nil, err
	}

	s.cache.InvalidateProfiles(ctx, actor.ID)
	return story, nil
}
