package testutil

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sort"
	"strings"
	"sync"

	"pictogram/internal/storage"
)

// MemoryBlobStore is an in-memory storage.BlobStore.
type MemoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// PutErr and DeleteErr, when set, are returned by every call.
	PutErr    error
	DeleteErr error
}

// NewMemoryBlobStore returns an empty store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string][]byte)}
}

func (s *MemoryBlobStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return "", s.PutErr
	}
	s.objects[key] = append([]byte(nil), data...)
	return "https://blobs.test/" + key, nil
}

func (s *MemoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if _, ok := s.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryBlobStore) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	n := 0
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
			n++
		}
	}
	return n, nil
}

// Get returns the bytes stored under key.
func (s *MemoryBlobStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Keys lists stored keys in order.
func (s *MemoryBlobStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SentMail is one message captured by RecordingMailer.
type SentMail struct {
	To       string
	Template string
	Vars     map[string]string
}

// RecordingMailer captures messages instead of sending them.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []SentMail

	// Err, when set, is returned by every Send.
	Err error
}

func (m *RecordingMailer) Send(_ context.Context, to, template string, vars map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentMail{To: to, Template: template, Vars: vars})
	return nil
}

// Sent returns a copy of the captured messages.
func (m *RecordingMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
