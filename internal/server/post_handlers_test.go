package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pictogram/internal/models"
	"pictogram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadThenForeignUpdate(t *testing.T) {
	ts := newTestServer(t)
	_, aliceToken := ts.user(t, "alice")
	_, bobToken := ts.user(t, "bob")

	resp, body := ts.do(t, uploadRequest(t, "/api/posts/upload", "post",
		testutil.TinyPNG(t, 120, 80), map[string]string{"caption": "golden hour"}), aliceToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Your post has been uploaded successfully.", body["message"])

	post := data(t, body)["post"].(map[string]any)
	photo, _ := post["photo"].(string)
	assert.True(t, strings.HasPrefix(photo, "https://blobs.test/posts/"), photo)
	assert.Equal(t, "golden hour", post["caption"])
	postID := uint(post["id"].(float64))

	resp, body = ts.do(t, jsonRequest(t, http.MethodPost, fmt.Sprintf("/api/posts/update/%d", postID),
		map[string]string{"caption": "mine now"}), bobToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, body["code"])

	stored, err := ts.store.Posts.GetByID(context.Background(), postID)
	require.NoError(t, err)
	assert.Equal(t, "golden hour", stored.Caption)

	t.Run("owner may update the caption", func(t *testing.T) {
		resp, body := ts.do(t, jsonRequest(t, http.MethodPost, fmt.Sprintf("/api/posts/update/%d", postID),
			map[string]string{"caption": "blue hour"}), aliceToken)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)

		resp, body = ts.do(t, jsonRequest(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil), "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "blue hour", data(t, body)["post"].(map[string]any)["caption"])
	})

	t.Run("photo is immutable", func(t *testing.T) {
		resp, _ := ts.do(t, jsonRequest(t, http.MethodPost, fmt.Sprintf("/api/posts/update/%d", postID),
			map[string]string{"photo": "https://elsewhere/x.png"}), aliceToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestCreatePost_Rejections(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user(t, "alice")

	resp, body := ts.do(t, jsonRequest(t, http.MethodPost, "/api/posts/upload", map[string]string{"caption": "x"}), token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "No post photo found to upload.", body["message"])

	resp, _ = ts.do(t, uploadRequest(t, "/api/posts/upload", "post", []byte("not an image"), nil), token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, uploadRequest(t, "/api/posts/upload", "post", testutil.TinyPNG(t, 4, 4), nil), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, ts.blobs.Keys())
}

func TestLikeCommentAndDelete(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceToken := ts.user(t, "alice")
	_, bobToken := ts.user(t, "bob")

	post, err := ts.postService.CreatePost(context.Background(), alice, testutil.TinyPNG(t, 20, 20), "")
	require.NoError(t, err)
	base := fmt.Sprintf("/api/posts/%%s/%d", post.ID)

	resp, body := ts.do(t, jsonRequest(t, http.MethodPost, fmt.Sprintf(base, "like"), nil), bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Liked!", body["message"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodPost, fmt.Sprintf(base, "comments"),
		map[string]string{"comment": "lovely"}), bobToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Commented!", body["message"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodGet, "/api/posts", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["results"])
	listed := data(t, body)["posts"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 1, listed["like"])
	assert.EqualValues(t, 1, listed["comment"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodPost, fmt.Sprintf(base, "like"), nil), bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Unliked.", body["message"])

	resp, _ = ts.do(t, jsonRequest(t, http.MethodDelete, fmt.Sprintf(base, "comments"), nil), aliceToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, jsonRequest(t, http.MethodDelete, fmt.Sprintf(base, "comments"), nil), bobToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, jsonRequest(t, http.MethodDelete, fmt.Sprintf(base, "delete"), nil), bobToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, jsonRequest(t, http.MethodDelete, fmt.Sprintf(base, "delete"), nil), aliceToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = ts.do(t, jsonRequest(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.StatusFail, body["status"])
	assert.Empty(t, ts.blobs.Keys())
}

func TestStories(t *testing.T) {
	ts := newTestServer(t)
	alice, token := ts.user(t, "alice")

	resp, body := ts.do(t, uploadRequest(t, "/api/stories/upload", "story", testutil.TinyPNG(t, 30, 30), nil), token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "Story has been uploaded.", body["message"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodGet, "/api/stories", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	groups := data(t, body)["stories"].([]any)
	require.Len(t, groups, 1)
	group := groups[0].(map[string]any)
	assert.EqualValues(t, alice.ID, group["_id"])
	assert.Len(t, group["stories"], 1)
}

func TestParseIDRejectsBadPath(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, jsonRequest(t, http.MethodGet, "/api/posts/abc", nil), "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid ID", body["message"])
}

func TestLocalMediaIsServed(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0o600))

	srv, err := NewServerWithDeps(testConfig(), Deps{DB: testutil.NewDB(t), MediaDir: dir})
	require.NoError(t, err)

	resp, err := srv.NewApp().Test(httptest.NewRequest(http.MethodGet, "/media/hello.txt", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
