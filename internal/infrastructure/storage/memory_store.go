package storage

import (
	"context"
	"io"
	"sync"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
)

const memoryBucket = "local"

var _ ledger.AttachmentStore = (*MemoryStore)(nil)

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryStore keeps attachments in process memory. References have the form
// memory://local/<key>. Used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Put stores a copy of body under key
func (s *MemoryStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if size > MaxAttachmentSize {
		return "", ErrTooLarge
	}
	data, err := readBounded(body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.objects[key] = memoryObject{contentType: contentType, data: data}
	s.mu.Unlock()

	return "memory://" + memoryBucket + "/" + key, nil
}

// URL returns the reference itself once the object exists
func (s *MemoryStore) URL(ctx context.Context, ref string) (string, error) {
	_, key, err := splitRef(ref, "memory")
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return ref, nil
}

// Get returns the stored bytes and content type
func (s *MemoryStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.data, obj.contentType, ok
}
