package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStorage keeps documents in a map. Used by tests and dry runs.
type MemoryStorage struct {
	docs map[string]KeywordVolumeDoc
	mu   sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		docs: make(map[string]KeywordVolumeDoc),
	}
}

func (ms *MemoryStorage) Save(ctx context.Context, doc KeywordVolumeDoc) error {
	if doc.Keyword == "" {
		return fmt.Errorf("store: document keyword cannot be empty")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.docs[doc.Keyword] = doc
	return nil
}

func (ms *MemoryStorage) Load(ctx context.Context, keyword string) (*KeywordVolumeDoc, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	doc, exists := ms.docs[keyword]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, keyword)
	}
	return &doc, nil
}

func (ms *MemoryStorage) List(ctx context.Context) ([]KeywordVolumeDoc, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]KeywordVolumeDoc, 0, len(ms.docs))
	for _, doc := range ms.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out, nil
}

func (ms *MemoryStorage) Delete(ctx context.Context, keyword string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.docs, keyword)
	return nil
}

func (ms *MemoryStorage) Exists(ctx context.Context, keyword string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, exists := ms.docs[keyword]
	return exists, nil
}

func (ms *MemoryStorage) Close() error {
	return nil
}
