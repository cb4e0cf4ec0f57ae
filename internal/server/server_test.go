package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"pictogram/internal/config"
	"pictogram/internal/imaging"
	"pictogram/internal/models"
	"pictogram/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testServer struct {
	*Server
	app   *fiber.App
	blobs *testutil.MemoryBlobStore
	mail  *testutil.RecordingMailer
	mr    *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		Env:              "test",
		APIPrefix:        "/api",
		AppURL:           "https://pictogram.test",
		JWTSecret:        testSecret,
		JWTExpiresInDays: 7,
		CacheTTLSeconds:  60,
		AllowedOrigins:   "http://localhost:5173",
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	blobs := testutil.NewMemoryBlobStore()
	mail := &testutil.RecordingMailer{}

	srv, err := NewServerWithDeps(testConfig(), Deps{
		DB:     db,
		Redis:  rdb,
		Blobs:  blobs,
		Mailer: mail,
		Images: imaging.NewPool(2),
	})
	require.NoError(t, err)
	srv.authService.WithHashCost(bcrypt.MinCost)

	return &testServer{Server: srv, app: srv.NewApp(), blobs: blobs, mail: mail, mr: mr}
}

// user creates an active user and returns it with a valid credential.
func (ts *testServer) user(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	u := testutil.CreateUser(t, ts.db, username)
	token, _, err := ts.sessions.Issue(u.ID)
	require.NoError(t, err)
	return u, token
}

// do runs req against the app and decodes the JSON body, if any.
func (ts *testServer) do(t *testing.T, req *http.Request, token string) (*http.Response, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	return req
}

func uploadRequest(t *testing.T, path, field string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile(field, "upload.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// data returns the envelope's data object.
func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "envelope has no data: %v", body)
	return d
}

func decodeJSON(resp *http.Response, dest any) error {
	return json.NewDecoder(resp.Body).Decode(dest)
}
