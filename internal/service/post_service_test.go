package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"pictogram/internal/models"
	"pictogram/internal/storage"
	"pictogram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreatePost(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	alice := env.user(t, "alice")

	post, err := env.posts.CreatePost(ctx, alice, testutil.TinyPNG(t, 200, 100), "first light")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, post.PostedBy)
	assert.True(t, strings.HasPrefix(post.PhotoKey, storage.PostPrefix(alice.ID)))
	assert.True(t, strings.HasSuffix(post.PhotoKey, ".jpg"))
	assert.Equal(t, "https://blobs.test/"+post.PhotoKey, post.Photo)

	t.Run("caption too long", func(t *testing.T) {
		_, err := env.posts.CreatePost(ctx, alice, testutil.TinyPNG(t, 10, 10), strings.Repeat("x", models.MaxCaptionLength+1))
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := env.posts.CreatePost(ctx, alice, []byte("%PDF-1.4"), "")
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("storage failure", func(t *testing.T) {
		env.blobs.PutErr = errors.New("bucket unavailable")
		defer func() { env.blobs.PutErr = nil }()
		_, err := env.posts.CreatePost(ctx, alice, testutil.TinyPNG(t, 10, 10), "")
		assertCode(t, err, models.CodeUnprocessable)
		assert.EqualError(t, err, "Post couldn't uploaded.: bucket unavailable")
	})
}

func TestPostService_WebPRollout(t *testing.T) {
	env := newTestEnv(t, "webp_uploads=on")
	ctx := context.Background()
	alice := env.user(t, "alice")

	post, err := env.posts.CreatePost(ctx, alice, testutil.TinyPNG(t, 20, 20), "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(post.PhotoKey, ".webp"))

	url, err := env.users.UploadPhoto(ctx, alice, testutil.TinyPNG(t, 20, 20))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".png"))
}

func TestPostService_ListAndGet(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	var last *models.Post
	for i := 0; i < 3; i++ {
		last = env.post(t, alice, "")
	}
	_, err := env.graph.ToggleLike(ctx, bob, last.ID)
	require.NoError(t, err)
	_, err = env.graph.AddComment(ctx, bob, last.ID, "wow")
	require.NoError(t, err)

	views, err := env.posts.ListPosts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, last.ID, views[0].ID)
	assert.Equal(t, 1, views[0].LikeCount)
	assert.Equal(t, 1, views[0].CommentCount)
	assert.Nil(t, views[0].Comments)

	views, err = env.posts.ListPosts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, views, 2)

	view, err := env.posts.GetPost(ctx, last.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, view.Likes)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "wow", view.Comments[0].Text)

	t.Run("like invalidates the cached view", func(t *testing.T) {
		_, err := env.graph.ToggleLike(ctx, bob, last.ID)
		require.NoError(t, err)

		view, err := env.posts.GetPost(ctx, last.ID)
		require.NoError(t, err)
		assert.Empty(t, view.Likes)
		assert.Zero(t, view.LikeCount)
	})

	_, err = env.posts.GetPost(ctx, 9999)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_Ownership(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	post := env.post(t, alice, "original")

	err := env.posts.UpdatePost(ctx, bob, post.ID, map[string]any{"caption": "new"})
	assertCode(t, err, models.CodeForbidden)
	assert.Equal(t, 403, models.StatusFor(err))

	err = env.posts.DeletePost(ctx, bob, post.ID)
	assertCode(t, err, models.CodeForbidden)

	stored, err := env.store.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", stored.Caption)
	assert.Contains(t, env.blobs.Keys(), post.PhotoKey)

	t.Run("immutable fields", func(t *testing.T) {
		for _, key := range []string{"photo", "postedBy", "postedAt"} {
			err := env.posts.UpdatePost(ctx, alice, post.ID, map[string]any{key: "x", "caption": "c"})
			assertCode(t, err, models.CodeForbidden)
		}
	})

	t.Run("owner updates the caption", func(t *testing.T) {
		assertCode(t, env.posts.UpdatePost(ctx, alice, post.ID, map[string]any{}), models.CodeValidation)
		require.NoError(t, env.posts.UpdatePost(ctx, alice, post.ID, map[string]any{"caption": "edited"}))

		stored, err := env.store.Posts.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", stored.Caption)
		assert.Equal(t, post.Photo, stored.Photo)
	})
}

func TestPostService_DeletePost(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	post := env.post(t, alice, "")
	_, err := env.graph.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	_, err = env.graph.AddComment(ctx, bob, post.ID, "hi")
	require.NoError(t, err)

	t.Run("blob failure keeps the post", func(t *testing.T) {
		env.blobs.DeleteErr = errors.New("bucket unavailable")
		defer func() { env.blobs.DeleteErr = nil }()

		err := env.posts.DeletePost(ctx, alice, post.ID)
		assertCode(t, err, models.CodeUnprocessable)
		_, err = env.store.Posts.GetByID(ctx, post.ID)
		require.NoError(t, err)
	})

	require.NoError(t, env.posts.DeletePost(ctx, alice, post.ID))

	_, err = env.store.Posts.GetByID(ctx, post.ID)
	assertCode(t, err, models.CodeNotFound)
	comments, err := env.store.Comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	likes, err := env.store.Likes.UserIDsByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)
	assert.Empty(t, env.blobs.Keys())
}

func TestStoryService(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	groups, err := env.stories.ListStories(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	a1, err := env.stories.CreateStory(ctx, alice, testutil.TinyPNG(t, 30, 60))
	require.NoError(t, err)
	b1, err := env.stories.CreateStory(ctx, bob, testutil.TinyPNG(t, 30, 60))
	require.NoError(t, err)
	a2, err := env.stories.CreateStory(ctx, alice, testutil.TinyPNG(t, 30, 60))
	require.NoError(t, err)

	data := env.blobs
	img, _, err := image.DecodeConfig(bytes.NewReader(mustBlob(t, data, a1.PhotoKey)))
	require.NoError(t, err)
	assert.Equal(t, 1080, img.Width)
	assert.Equal(t, 1920, img.Height)

	groups, err = env.stories.ListStories(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, alice.ID, groups[0].AuthorID)
	assert.Equal(t, []models.StoryItem{
		{Photo: a1.Photo, StoryID: a1.ID},
		{Photo: a2.Photo, StoryID: a2.ID},
	}, groups[0].Stories)
	assert.Equal(t, bob.ID, groups[1].AuthorID)
	assert.Equal(t, []models.StoryItem{{Photo: b1.Photo, StoryID: b1.ID}}, groups[1].Stories)
}

func mustBlob(t *testing.T, store *testutil.MemoryBlobStore, key string) []byte {
	t.Helper()
	data, ok := store.Get(key)
	require.True(t, ok, "blob %s missing", key)
	return data
}
