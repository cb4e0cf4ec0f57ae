package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pictogram/internal/cache"
	"pictogram/internal/imaging"
	"pictogram/internal/middleware"
	"pictogram/internal/models"
	"pictogram/internal/repository"
	"pictogram/internal/storage"
	"pictogram/internal/validation"
)

const (
	DefaultPostsLimit = 15
	MaxPostsLimit     = 100
)

// PostService reads and writes posts. Ownership is checked here.
type PostService struct {
	store  *repository.Store
	images *ImageService
	blobs  storage.BlobStore
	cache  *cache.Cache
}

// NewPostService returns a new PostService. cache may be nil.
func NewPostService(store *repository.Store, images *ImageService, blobs storage.BlobStore, c *cache.Cache) *PostService {
	return &PostService{store: store, images: images, blobs: blobs, cache: c}
}

// ListPosts returns the newest posts with like ids and counts, without comments.
func (s *PostService) ListPosts(ctx context.Context, limit int) ([]models.PostView, error) {
	if limit <= 0 {
		limit = DefaultPostsLimit
	}
	if limit > MaxPostsLimit {
		limit = MaxPostsLimit
	}

	posts, err := s.store.Posts.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	likes, err := s.store.Likes.UserIDsByPosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Comments.CountByPosts(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		liked := nonNil(likes[p.ID])
		views = append(views, models.PostView{
			Post:         p,
			Likes:        liked,
			LikeCount:    len(liked),
			CommentCount: counts[p.ID],
		})
	}
	return views, nil
}

// GetPost returns a post with its likes and comments.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.PostView, error) {
	var view models.PostView
	err := s.cache.Aside(ctx, cache.PostKey(id), &view, func() error {
		post, err := s.store.Posts.GetByID(ctx, id)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.NewNotFoundError("The post no longer active.")
			}
			return err
		}
		likes, err := s.store.Likes.UserIDsByPost(ctx, id)
		if err != nil {
			return err
		}
		comments, err := s.store.Comments.ListByPost(ctx, id)
		if err != nil {
			return err
		}
		view = models.PostView{
			Post:         *post,
			Likes:        nonNil(likes),
			LikeCount:    len(likes),
			CommentCount: len(comments),
			Comments:     nonNil(comments),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// CreatePost renders and stores the photo, then records the post. The blob
// is removed again when the row cannot be written.
func (s *PostService) CreatePost(ctx context.Context, actor *models.User, content []byte, caption string) (*models.Post, error) {
	if err := validation.ValidateCaption(caption); err != nil {
		return nil, err
	}

	now := s.images.Now()
	stored, err := s.images.Store(ctx, actor.ID, content, imaging.PostPreset, func(ext string) string {
		return storage.PostKey(actor.ID, now, ext)
	}, "Post couldn't uploaded.")
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Caption:  caption,
		Photo:    stored.URL,
		PhotoKey: stored.Key,
		PostedBy: actor.ID,
		PostedAt: now.UTC().Truncate(time.Millisecond),
	}
	if err := s.store.Posts.Create(ctx, post); err != nil {
		s.images.Discard(ctx, stored.Key)
		return nil, err
	}

	s.cache.InvalidateProfiles(ctx, actor.ID)
	return post, nil
}

// UpdatePost changes the caption of actor's own post. body is the raw
// request; photo, postedBy and postedAt cannot be changed.
func (s *PostService) UpdatePost(ctx context.Context, actor *models.User, postID uint, body map[string]any) error {
	if present(body, "photo") {
		return models.NewForbiddenError("You cannot change the post photo.")
	}
	if present(body, "postedBy") {
		return models.NewForbiddenError("You cannot change post owner.")
	}
	if present(body, "postedAt") {
		return models.NewForbiddenError("You cannot change post's date.")
	}

	post, err := s.store.Posts.GetByID(ctx, postID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewNotFoundError("Not found post to update.")
		}
		return err
	}
	if post.PostedBy != actor.ID {
		return models.NewForbiddenError("You cannot update some else's post.")
	}

	caption, _ := body["caption"].(string)
	if caption == "" {
		return models.NewValidationError("Please set a new caption for the post.")
	}
	if err := validation.ValidateCaption(caption); err != nil {
		return err
	}

	if err := s.store.Posts.UpdateCaption(ctx, post.ID, caption); err != nil {
		return err
	}
	s.cache.InvalidatePosts(ctx, post.ID)
	s.cache.InvalidateProfiles(ctx, actor.ID)
	return nil
}

func present(body map[string]any, key string) bool {
	v, ok := body[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

// DeletePost removes actor's own post: the photo first, then its comments,
// likes and the row in one transaction.
func (s *PostService) DeletePost(ctx context.Context, actor *models.User, postID uint) error {
	post, err := s.store.Posts.GetByID(ctx, postID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewNotFoundError("Not found post to delete.")
		}
		return err
	}
	if post.PostedBy != actor.ID {
		return models.NewForbiddenError("You cannot delete someone else's post.")
	}

	if post.PhotoKey != "" {
		if err := s.blobs.Delete(ctx, post.PhotoKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			middleware.Logger.ErrorContext(ctx, "post photo delete failed",
				slog.Uint64("post_id", uint64(post.ID)),
				slog.String("error", err.Error()),
			)
			return models.NewUnprocessableError("Couldn't delete your post.", err)
		}
	}

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		ids := []uint{post.ID}
		if _, err := tx.Comments.DeleteByPosts(ctx, ids); err != nil {
			return err
		}
		if _, err := tx.Likes.DeleteByPosts(ctx, ids); err != nil {
			return err
		}
		return tx.Posts.Delete(ctx, post.ID)
	})
	if err != nil {
		return err
	}

	s.cache.InvalidatePosts(ctx, post.ID)
	s.cache.InvalidateProfiles(ctx, actor.ID)
	return nil
}
