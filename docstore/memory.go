package docstore

import (
	"context"
	"sync"
)

// MemoryStore is a goroutine-safe in-memory Store. It backs tests and
// no-infrastructure deployments; insertion order is preserved so Query
// results are deterministic.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	order []string
	docs  map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := col.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (s *MemoryStore) Set(_ context.Context, collection, id string, fields Document, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		col = &memCollection{docs: make(map[string]Document)}
		s.collections[collection] = col
	}

	existing, exists := col.docs[id]
	if !exists {
		col.order = append(col.order, id)
		existing = Document{}
	}

	if !merge {
		existing = Document{}
	}
	for k, v := range fields {
		existing[k] = v
	}
	col.docs[id] = existing
	return nil
}

func (s *MemoryStore) Query(_ context.Context, collection string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	entries := make([]Entry, 0, len(col.order))
	for _, id := range col.order {
		entries = append(entries, Entry{ID: id, Doc: copyDoc(col.docs[id])})
	}
	return entries, nil
}

func (s *MemoryStore) QueryWhere(ctx context.Context, collection, field, value string) ([]Entry, error) {
	all, err := s.Query(ctx, collection)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, e := range all {
		if v, ok := e.Doc[field].(string); ok && v == value {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func copyDoc(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
