package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gocloud.dev/gcerrors"
)

// Memory is a map-backed Bucket for tests. Signed URLs are fake but unique
// per call, like real presigners.
type Memory struct {
	mu      sync.Mutex
	objects map[string]memObject
	signs   int
}

type memObject struct {
	data        []byte
	contentType string
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

type notFoundError struct {
	key string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("object '%s' not found", e.key)
}

func (e *notFoundError) ErrorCode() gcerrors.ErrorCode {
	return gcerrors.NotFound
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[key]

	if !ok {
		return nil, &notFoundError{key: key}
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, nil
}

func (m *Memory) Store(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = memObject{data: stored, contentType: contentType}
	return nil
}

func (m *Memory) Delete(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
		}
	}

	return nil
}

func (m *Memory) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.signs++
	return fmt.Sprintf("https://bucket.invalid/%s?sig=%d&expires=%d", key, m.signs, int64(expiry.Seconds())), nil
}

func (m *Memory) SignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.signs++
	return fmt.Sprintf("https://bucket.invalid/%s?sig=%d&expires=%d&method=PUT", key, m.signs, int64(expiry.Seconds())), nil
}

// Keys returns the stored keys with the given prefix, unordered.
func (m *Memory) Keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string

	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	return keys
}

// ContentType reports the content type recorded for key.
func (m *Memory) ContentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.objects[key].contentType
}
