package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

type storedDoc struct {
	seq    int
	fields map[string]any
}

// DocumentStore is an in-memory domain.DocumentStore. Setting Err makes every
// operation fail with it.
type DocumentStore struct {
	mu          sync.Mutex
	seq         int
	collections map[string]map[string]*storedDoc
	Err         error
}

// NewDocumentStore creates an empty in-memory store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{collections: make(map[string]map[string]*storedDoc)}
}

// Seed stores a document directly, bypassing Err.
func (s *DocumentStore) Seed(collection, id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merge(collection, id, fields)
}

// Count returns the number of documents in a collection.
func (s *DocumentStore) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

func (s *DocumentStore) List(ctx context.Context, collection string, limit int) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	docs := make([]domain.Document, 0, len(s.collections[collection]))
	seqs := make(map[string]int, len(s.collections[collection]))
	for id, d := range s.collections[collection] {
		docs = append(docs, domain.Document{ID: id, Fields: copyFields(d.fields)})
		seqs[id] = d.seq
	}
	sort.Slice(docs, func(i, j int) bool { return seqs[docs[i].ID] < seqs[docs[j].ID] })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.get(collection, id)
}

func (s *DocumentStore) Exists(ctx context.Context, collection, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.collections[collection][id]
	return ok, nil
}

func (s *DocumentStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.merge(collection, id, fields)
	return nil
}

func (s *DocumentStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	id := uuid.NewString()
	s.merge(collection, id, fields)
	return id, nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *DocumentStore) FindOne(ctx context.Context, collection, field, value string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for id, d := range s.collections[collection] {
		if v, ok := d.fields[field].(string); ok && v == value {
			return &domain.Document{ID: id, Fields: copyFields(d.fields)}, nil
		}
	}
	return nil, nil
}

// RunInTx holds the store lock for the whole of fn. Changes made before fn
// returns an error are rolled back.
func (s *DocumentStore) RunInTx(ctx context.Context, fn func(tx domain.DocumentTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	snapshot := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.collections = snapshot
		return err
	}
	return nil
}

type memTx struct{ s *DocumentStore }

func (t *memTx) GetForUpdate(ctx context.Context, collection, id string) (*domain.Document, error) {
	return t.s.get(collection, id)
}

func (t *memTx) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	t.s.merge(collection, id, fields)
	return nil
}

func (s *DocumentStore) get(collection, id string) (*domain.Document, error) {
	d, ok := s.collections[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{ID: id, Fields: copyFields(d.fields)}, nil
}

func (s *DocumentStore) merge(collection, id string, fields map[string]any) {
	if s.collections == nil {
		s.collections = make(map[string]map[string]*storedDoc)
	}
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]*storedDoc)
		s.collections[collection] = coll
	}
	d, ok := coll[id]
	if !ok {
		s.seq++
		d = &storedDoc{seq: s.seq, fields: make(map[string]any)}
		coll[id] = d
	}
	for k, v := range fields {
		d.fields[k] = v
	}
}

func (s *DocumentStore) snapshot() map[string]map[string]*storedDoc {
	out := make(map[string]map[string]*storedDoc, len(s.collections))
	for name, coll := range s.collections {
		c := make(map[string]*storedDoc, len(coll))
		for id, d := range coll {
			c[id] = &storedDoc{seq: d.seq, fields: copyFields(d.fields)}
		}
		out[name] = c
	}
	return out
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
