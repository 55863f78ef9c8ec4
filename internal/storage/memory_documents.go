package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/docustore/internal/models"
)

type documentID struct {
	collection string
	key        string
}

// MemoryDocumentStore keeps documents in process memory. Contents are lost
// on restart.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[documentID]models.StoredDocument
}

// NewMemoryDocumentStore creates an empty store
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[documentID]models.StoredDocument)}
}

// Get returns a copy of the document, or nil when absent
func (s *MemoryDocumentStore) Get(ctx context.Context, collection, key string) (*models.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[documentID{collection, key}]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// Put creates or replaces a document
func (s *MemoryDocumentStore) Put(ctx context.Context, doc *models.StoredDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[documentID{doc.Collection, doc.Key}] = *doc
	return nil
}

// Remove deletes a document; removing an absent key is not an error
func (s *MemoryDocumentStore) Remove(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, documentID{collection, key})
	return nil
}

// ListByOwner returns up to limit of owner's documents in collection,
// ordered by key, with keys strictly greater than startAfter
func (s *MemoryDocumentStore) ListByOwner(ctx context.Context, owner, collection, startAfter string, limit int) ([]*models.StoredDocument, error) {
	s.mu.RLock()
	var matched []*models.StoredDocument
	for id, doc := range s.docs {
		if id.collection != collection || doc.Owner != owner {
			continue
		}
		if startAfter != "" && id.key <= startAfter {
			continue
		}
		d := doc
		matched = append(matched, &d)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	if limit < 0 {
		limit = 0
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Len returns how many documents are stored
func (s *MemoryDocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
