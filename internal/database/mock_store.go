// file: internal/database/mock_store.go
// version: 2.0.0
// guid: bbd352e3-33a3-4855-a111-ef6897590019

package database

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/models"
)

// MockStore is an in-memory Store for tests. Each Func field, when set,
// replaces the built-in behavior so tests can inject failures.
type MockStore struct {
	GetAllFunc            func() ([]models.Record, error)
	GetByIDFunc           func(id string) (*models.Record, error)
	GetByPathFunc         func(path string) (*models.Record, error)
	CreateFunc            func(rec *models.Record) (*models.Record, error)
	UpsertFunc            func(path string, fields models.Descriptive) (UpsertResult, error)
	MarkMissingFunc       func(present map[string]bool) (int, error)
	SetUserFieldsFunc     func(id string, fields UserFields) error
	SetNarratorRatingFunc func(id, narrator string, rating *int) error
	SetCoverPathFunc      func(id, relativePath string) error
	DeleteFunc            func(id string) error

	mu      sync.Mutex
	records map[string]*models.Record
	byPath  map[string]string
	seq     int
	closed  bool
}

// NewMockStore returns an empty in-memory store
func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string]*models.Record),
		byPath:  make(map[string]string),
	}
}

// Closed reports whether Close was called
func (m *MockStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// clone deep-copies a record so callers never alias store state
func clone(rec *models.Record) *models.Record {
	c := *rec
	if rec.NarratorRatings != nil {
		c.NarratorRatings = make(map[string]int, len(rec.NarratorRatings))
		for k, v := range rec.NarratorRatings {
			c.NarratorRatings[k] = v
		}
	}
	return &c
}

func (m *MockStore) nextID() string {
	m.seq++
	return fmt.Sprintf("rec-%04d", m.seq)
}

func (m *MockStore) GetAll() ([]models.Record, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, *clone(m.records[id]))
	}
	return out, nil
}

func (m *MockStore) GetByID(id string) (*models.Record, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		return clone(rec), nil
	}
	return nil, nil
}

func (m *MockStore) GetByPath(path string) (*models.Record, error) {
	if m.GetByPathFunc != nil {
		return m.GetByPathFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byPath[path]; ok {
		return clone(m.records[id]), nil
	}
	return nil, nil
}

func (m *MockStore) Create(rec *models.Record) (*models.Record, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byPath[rec.Path]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, rec.Path)
	}
	if rec.ID == "" {
		rec.ID = m.nextID()
	}
	if err := prepareCreate(rec, time.Now()); err != nil {
		return nil, err
	}
	m.records[rec.ID] = clone(rec)
	m.byPath[rec.Path] = rec.ID
	return rec, nil
}

func (m *MockStore) Upsert(path string, fields models.Descriptive) (UpsertResult, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(path, fields)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if id, ok := m.byPath[path]; ok {
		rec := m.records[id]
		rec.Descriptive = fields
		rec.MissingFromSource = false
		rec.UpdatedAt = now
		return UpsertResult{ID: id}, nil
	}
	id := m.nextID()
	m.records[id] = newScannedRecord(id, path, fields, now)
	m.byPath[path] = id
	return UpsertResult{ID: id, WasInsert: true}, nil
}

func (m *MockStore) MarkMissing(present map[string]bool) (int, error) {
	if m.MarkMissingFunc != nil {
		return m.MarkMissingFunc(present)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	flagged := 0
	for _, rec := range m.records {
		rec.MissingFromSource = !present[rec.Path]
		if rec.MissingFromSource {
			flagged++
		}
	}
	return flagged, nil
}

func (m *MockStore) update(id string, fn func(rec *models.Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(rec)
	rec.UpdatedAt = time.Now()
	return nil
}

func (m *MockStore) SetUserFields(id string, fields UserFields) error {
	if m.SetUserFieldsFunc != nil {
		return m.SetUserFieldsFunc(id, fields)
	}
	return m.update(id, func(rec *models.Record) { applyUserFields(rec, fields) })
}

func (m *MockStore) SetNarratorRating(id, narrator string, rating *int) error {
	if m.SetNarratorRatingFunc != nil {
		return m.SetNarratorRatingFunc(id, narrator, rating)
	}
	return m.update(id, func(rec *models.Record) { applyNarratorRating(rec, narrator, rating) })
}

func (m *MockStore) SetCoverPath(id, relativePath string) error {
	if m.SetCoverPathFunc != nil {
		return m.SetCoverPathFunc(id, relativePath)
	}
	return m.update(id, func(rec *models.Record) { rec.CoverImagePath = &relativePath })
}

func (m *MockStore) Delete(id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.byPath, rec.Path)
	delete(m.records, id)
	return nil
}

// Verify MockStore implements Store
var _ Store = (*MockStore)(nil)
