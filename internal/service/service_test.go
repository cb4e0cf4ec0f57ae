package service

import (
	"context"
	"testing"
	"time"

	"pictogram/internal/cache"
	"pictogram/internal/featureflags"
	"pictogram/internal/imaging"
	"pictogram/internal/models"
	"pictogram/internal/repository"
	"pictogram/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	store   *repository.Store
	blobs   *testutil.MemoryBlobStore
	mail    *testutil.RecordingMailer
	redis   *miniredis.Miniredis
	cache   *cache.Cache
	images  *ImageService
	auth    *AuthService
	users   *UserService
	graph   *GraphService
	posts   *PostService
	stories *StoryService
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := &testEnv{
		db:    db,
		store: repository.NewStore(db),
		blobs: testutil.NewMemoryBlobStore(),
		mail:  &testutil.RecordingMailer{},
		redis: mr,
		cache: cache.New(rdb, time.Minute),
	}
	env.images = NewImageService(imaging.NewPool(2), env.blobs, featureflags.NewManager(flags), nil)
	env.auth = NewAuthService(env.store.Users, env.mail, env.cache, "https://pictogram.test/").WithHashCost(bcrypt.MinCost)
	env.users = NewUserService(env.store, env.images, env.blobs, env.cache)
	env.graph = NewGraphService(env.store, env.blobs, env.cache)
	env.posts = NewPostService(env.store, env.images, env.blobs, env.cache)
	env.stories = NewStoryService(env.store.Stories, env.images, env.cache)
	return env
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	return testutil.CreateUser(t, e.db, username)
}

func (e *testEnv) post(t *testing.T, owner *models.User, caption string) *models.Post {
	t.Helper()
	post, err := e.posts.CreatePost(context.Background(), owner, testutil.TinyPNG(t, 40, 30), caption)
	require.NoError(t, err)
	return post
}

func (e *testEnv) notifications(t *testing.T, userID uint, message string) int64 {
	t.Helper()
	n, err := e.store.Notifications.CountFor(context.Background(), userID, message)
	require.NoError(t, err)
	return n
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, models.IsCode(err, code), "want %s, got %v", code, err)
}
