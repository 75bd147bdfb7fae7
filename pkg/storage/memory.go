package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JaimeStill/casse/pkg/lifecycle"
)

type memoryBlob struct {
	data        []byte
	contentType string
}

// Memory is an in-process blob store used for local development and tests.
type Memory struct {
	mu     sync.RWMutex
	blobs  map[string]memoryBlob
	logger *zap.Logger
}

// NewMemory creates an empty in-memory store.
func NewMemory(logger *zap.Logger) *Memory {
	return &Memory{
		blobs:  make(map[string]memoryBlob),
		logger: logger,
	}
}

func (m *Memory) Start(lc *lifecycle.Coordinator) error {
	m.logger.Warn("using in-memory blob storage; blobs do not survive restarts")
	return nil
}

func (m *Memory) Put(
	ctx context.Context,
	owner string,
	category Category,
	filename string,
	r io.Reader,
	size int64,
	contentType string,
) (string, error) {
	key, err := Key(owner, category, filename)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read blob %s: %w", key, err)
	}

	m.mu.Lock()
	m.blobs[key] = memoryBlob{data: data, contentType: contentType}
	m.mu.Unlock()

	return key, nil
}

func (m *Memory) Get(ctx context.Context, owner string, category Category, key string) (*Object, error) {
	key, err := scopedKey(owner, category, key)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	blob, ok := m.blobs[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return &Object{
		Body:          io.NopCloser(bytes.NewReader(blob.data)),
		ContentType:   blob.contentType,
		ContentLength: int64(len(blob.data)),
	}, nil
}

func (m *Memory) Delete(ctx context.Context, owner string, category Category, key string) error {
	key, err := scopedKey(owner, category, key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.blobs, key)
	m.mu.Unlock()

	return nil
}

func (m *Memory) List(ctx context.Context, owner string) ([]string, error) {
	prefix, err := ownerPrefix(owner)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0)
	for key := range m.blobs {
		if rest, ok := strings.CutPrefix(key, prefix); ok {
			names = append(names, rest)
		}
	}
	slices.Sort(names)

	return names, nil
}

// Exists reports whether a blob is stored under key.
func (m *Memory) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[key]
	return ok
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
