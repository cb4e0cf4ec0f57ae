package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"pictogram/internal/models"
	"pictogram/internal/storage"
	"pictogram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowAndProfile(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceToken := ts.user(t, "alice")
	bob, _ := ts.user(t, "bob")

	resp, body := ts.do(t, jsonRequest(t, http.MethodPost, "/api/users/follow/bob", nil), aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Now, you are following bob", body["message"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodGet, "/api/users/username/bob", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := data(t, body)["user"].(map[string]any)
	assert.Equal(t, []any{float64(alice.ID)}, profile["followers"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodGet, fmt.Sprintf("/api/users/id/%d", alice.ID), nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{float64(bob.ID)}, data(t, body)["user"].(map[string]any)["followings"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodPost, "/api/users/follow/alice", nil), aliceToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "You cannot follow yourself.", body["message"])

	resp, _ = ts.do(t, jsonRequest(t, http.MethodPost, "/api/users/follow/nobody", nil), aliceToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, jsonRequest(t, http.MethodPost, "/api/users/unfollow/bob", nil), aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Now, you aren't following bob", body["message"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodGet, "/api/users/username/bob", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, data(t, body)["user"].(map[string]any)["followers"])
}

func TestDiscoverAndSearch(t *testing.T) {
	ts := newTestServer(t)
	for _, name := range []string{"alice", "alicia", "bob"} {
		ts.user(t, name)
	}

	resp, body := ts.do(t, jsonRequest(t, http.MethodGet, "/api/users", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, body["results"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodGet, "/api/users/search/ALI", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["results"])
}

func TestUpdateMe(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user(t, "alice")

	resp, body := ts.do(t, jsonRequest(t, http.MethodPatch, "/api/users/update",
		map[string]string{"password": "sneaky-pass", "bio": "hi"}), token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "You cannot update these fields.", body["message"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodPatch, "/api/users/update",
		map[string]string{"bio": "street photographer", "lastname": "Liddell"}), token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	user := data(t, body)["user"].(map[string]any)
	assert.Equal(t, "street photographer", user["bio"])
	assert.Equal(t, "Liddell", user["lastname"])
}

func TestProfilePhoto(t *testing.T) {
	ts := newTestServer(t)
	alice, token := ts.user(t, "alice")

	resp, body := ts.do(t, jsonRequest(t, http.MethodPost, "/api/users/remove", nil), token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "No profile picture found. Nothing to delete.", body["message"])

	resp, body = ts.do(t, uploadRequest(t, "/api/users/upload", "photo", testutil.TinyPNG(t, 64, 48), nil), token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "https://blobs.test/"+storage.ProfileKey(alice.ID), data(t, body)["url"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodPost, "/api/users/remove", nil), token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Your profile picture has been removed successfully.", body["message"])
	assert.Empty(t, ts.blobs.Keys())
}

func TestNotificationsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	_, aliceToken := ts.user(t, "alice")
	_, bobToken := ts.user(t, "bob")

	resp, _ := ts.do(t, jsonRequest(t, http.MethodPost, "/api/users/follow/alice", nil), bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.do(t, jsonRequest(t, http.MethodGet, "/api/users/notifications", nil), aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["results"])
	item := data(t, body)["notifications"].([]any)[0].(map[string]any)
	assert.Equal(t, models.NotificationFollowed, item["notification"])
	assert.Equal(t, true, item["new"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodPatch, "/api/users/notifications/seen", nil), aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, data(t, body)["updated"])
}

func TestDeactivateThenLoginReactivates(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user(t, "alice")

	resp, _ := ts.do(t, jsonRequest(t, http.MethodDelete, "/api/users/deactivate",
		map[string]string{"currentPassword": "wrong-password"}), token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := ts.do(t, jsonRequest(t, http.MethodDelete, "/api/users/deactivate",
		map[string]string{"currentPassword": testutil.TestPassword}), token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = ts.do(t, jsonRequest(t, http.MethodGet, "/api/users/username/alice", nil), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "That user is no longer active.", body["message"])

	resp, body = ts.do(t, jsonRequest(t, http.MethodPost, "/api/users/login", map[string]string{
		"username": "alice",
		"password": testutil.TestPassword,
	}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, _ = ts.do(t, jsonRequest(t, http.MethodGet, "/api/users/username/alice", nil), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteMe(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceToken := ts.user(t, "alice")
	_, bobToken := ts.user(t, "bob")

	_, err := ts.postService.CreatePost(context.Background(), alice, testutil.TinyPNG(t, 10, 10), "")
	require.NoError(t, err)
	resp, _ := ts.do(t, jsonRequest(t, http.MethodPost, "/api/users/follow/alice", nil), bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.do(t, jsonRequest(t, http.MethodDelete, "/api/users/delete", map[string]string{}), aliceToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Please confirm your password.", body["message"])

	resp, _ = ts.do(t, jsonRequest(t, http.MethodDelete, "/api/users/delete",
		map[string]string{"currentPassword": testutil.TestPassword}), aliceToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, jsonRequest(t, http.MethodGet, "/api/users/authorization/current-user", nil), aliceToken)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = ts.do(t, jsonRequest(t, http.MethodGet, "/api/posts", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["results"])
	assert.Empty(t, ts.blobs.Keys())
}
