package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pictogram/internal/cache"
	"pictogram/internal/imaging"
	"pictogram/internal/middleware"
	"pictogram/internal/models"
	"pictogram/internal/repository"
	"pictogram/internal/storage"
	"pictogram/internal/validation"
)

const (
	// MsgUserInactive hides deactivated accounts from public reads.
	MsgUserInactive = "That user is no longer active."

	RandomUsersLimit = 5
	SearchUsersLimit = 25
)

// UserService composes profile read models and applies profile changes.
type UserService struct {
	store  *repository.Store
	images *ImageService
	blobs  storage.BlobStore
	cache  *cache.Cache
}

// NewUserService returns a new UserService. cache may be nil.
func NewUserService(store *repository.Store, images *ImageService, blobs storage.BlobStore, c *cache.Cache) *UserService {
	return &UserService{store: store, images: images, blobs: blobs, cache: c}
}

// GetUser returns the account behind an authenticated session, active or not.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.store.Users.GetByID(ctx, id)
}

// GetProfile returns the profile of an active user.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	err := s.cache.Aside(ctx, cache.ProfileKey(id), &profile, func() error {
		p, err := s.composeProfile(ctx, id)
		if err != nil {
			return err
		}
		profile = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfileByUsername resolves username and returns that user's profile.
func (s *UserService) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("Please specify a username to reach user.")
	}
	user, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, models.NewNotFoundError(MsgUserInactive)
	}
	return s.GetProfile(ctx, user.ID)
}

func (s *UserService) composeProfile(ctx context.Context, id uint) (*models.Profile, error) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, models.NewNotFoundError(MsgUserInactive)
	}

	posts, err := s.store.Posts.ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	stories, err := s.store.Stories.ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	followers, err := s.store.Follows.FollowerIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	followings, err := s.store.Follows.FollowingIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.Profile{
		User:       *user,
		Posts:      nonNil(posts),
		Stories:    nonNil(stories),
		Followers:  nonNil(followers),
		Followings: nonNil(followings),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// RandomUsers returns a handful of active users for discovery.
func (s *UserService) RandomUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users.Random(ctx, RandomUsersLimit)
	return nonNil(users), err
}

// SearchUsers matches active usernames containing query.
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Please type a username to search users.")
	}
	users, err := s.store.Users.Search(ctx, query, SearchUsersLimit)
	return nonNil(users), err
}

// lockedProfileFields cannot be changed through UpdateProfile.
var lockedProfileFields = []string{"email", "password", "passwordConfirm", "photo", "active"}

// editableProfileFields maps request keys to columns.
var editableProfileFields = map[string]string{
	"firstname": "firstname",
	"lastname":  "lastname",
	"username":  "username",
	"bio":       "bio",
}

// UpdateProfile applies the editable fields present in body. Keys outside
// the allow-list are ignored; credential, photo and status keys are refused.
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, body map[string]any) (*models.User, error) {
	for _, key := range lockedProfileFields {
		if _, ok := body[key]; ok {
			return nil, models.NewForbiddenError("You cannot update these fields.")
		}
	}

	fields := make(map[string]any)
	for key, column := range editableProfileFields {
		raw, ok := body[key]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return nil, models.NewValidationError(fmt.Sprintf("%s must be a string.", key))
		}
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "username":
			err = validation.ValidateUsername(value)
		case "firstname":
			err = validation.ValidateName("Firstname", value)
		case "lastname":
			err = validation.ValidateName("Lastname", value)
		case "bio":
			err = validation.ValidateBio(value)
		}
		if err != nil {
			return nil, err
		}
		fields[column] = value
	}

	if len(fields) > 0 {
		if err := s.store.Users.Update(ctx, user.ID, fields); err != nil {
			return nil, repository.TranslateError(err)
		}
		s.cache.InvalidateProfiles(ctx, user.ID)
	}
	return s.store.Users.GetByID(ctx, user.ID)
}

// UploadPhoto replaces the profile photo and returns its URL.
func (s *UserService) UploadPhoto(ctx context.Context, user *models.User, content []byte) (string, error) {
	stored, err := s.images.Store(ctx, user.ID, content, imaging.ProfilePreset, func(string) string {
		return storage.ProfileKey(user.ID)
	}, "Couldn't uploaded photo")
	if err != nil {
		return "", err
	}

	if err := s.store.Users.Update(ctx, user.ID, map[string]any{"photo": stored.URL}); err != nil {
		return "", err
	}
	user.Photo = stored.URL
	s.cache.InvalidateProfiles(ctx, user.ID)
	return stored.URL, nil
}

// RemovePhoto deletes the profile photo. It reports false when there was
// nothing to delete.
func (s *UserService) RemovePhoto(ctx context.Context, user *models.User) (bool, error) {
	err := s.blobs.Delete(ctx, storage.ProfileKey(user.ID))
	removed := err == nil
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		middleware.Logger.ErrorContext(ctx, "profile photo delete failed",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
		return false, models.NewUnprocessableError("Error deleting your profile picture.", err)
	}

	if user.Photo != "" {
		if err := s.store.Users.Update(ctx, user.ID, map[string]any{"photo": ""}); err != nil {
			return false, err
		}
		user.Photo = ""
		s.cache.InvalidateProfiles(ctx, user.ID)
	}
	return removed, nil
}

// Deactivate hides the account until its next successful login.
func (s *UserService) Deactivate(ctx context.Context, user *models.User, currentPassword string) error {
	if !user.Active {
		return models.NewForbiddenError("Your account is already inactive.")
	}
	if currentPassword == "" {
		return models.NewValidationError("Please confirm your password.")
	}
	if !PasswordMatches(user.Password, currentPassword) {
		return models.NewUnauthorizedError(MsgPasswordMismatch)
	}

	if err := s.store.Users.Update(ctx, user.ID, map[string]any{"active": false}); err != nil {
		return err
	}
	user.Active = false
	s.cache.InvalidateProfiles(ctx, user.ID)
	return nil
}

// Notifications returns the user's mailbox, newest first.
func (s *UserService) Notifications(ctx context.Context, userID uint) ([]models.Notification, error) {
	items, err := s.store.Notifications.ListFor(ctx, userID, 0)
	return nonNil(items), err
}

// MarkNotificationsSeen clears the new flag on every entry of the mailbox.
func (s *UserService) MarkNotificationsSeen(ctx context.Context, userID uint) (int64, error) {
	return s.store.Notifications.MarkSeen(ctx, userID)
}
