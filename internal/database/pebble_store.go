// file: internal/database/pebble_store.go
// version: 2.0.0
// guid: 56407a9b-01d0-4445-b9f0-277b0bf16ec0

package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/jdfalk/audiobook-catalog/internal/models"
)

// PebbleStore implements the Store interface using PebbleDB (LSM key-value store)
//
// Key Schema:
// - record:<id>          -> Record JSON (narrator ratings embedded)
// - record:path:<path>   -> record_id (for lookups)
//
// Record ids are ULIDs, whose first character is always a digit, so the
// record range "record:0".."record:;" never overlaps the path index.
type PebbleStore struct {
	db  *pebble.DB
	now func() time.Time
}

const (
	recordPrefix    = "record:"
	recordPathIndex = "record:path:"
)

// NewPebbleStore creates a new PebbleDB store
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	return &PebbleStore{db: db, now: time.Now}, nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// DB exposes the underlying handle for diagnostics
func (p *PebbleStore) DB() *pebble.DB {
	return p.db
}

// Snapshot writes a Pebble checkpoint directory at dest
func (p *PebbleStore) Snapshot(dest string) error {
	if err := p.db.Checkpoint(dest); err != nil {
		return fmt.Errorf("failed to checkpoint PebbleDB: %w", err)
	}
	return nil
}

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

func pathKey(path string) []byte {
	return []byte(recordPathIndex + path)
}

// GetAll returns every record in id order
func (p *PebbleStore) GetAll() ([]models.Record, error) {
	var records []models.Record
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(recordPrefix + "0"),
		UpperBound: []byte(recordPrefix + ";"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec models.Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", iter.Key(), err)
		}
		records = append(records, rec)
	}
	return records, iter.Error()
}

func (p *PebbleStore) GetByID(id string) (*models.Record, error) {
	value, closer, err := p.db.Get(recordKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var rec models.Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *PebbleStore) GetByPath(path string) (*models.Record, error) {
	value, closer, err := p.db.Get(pathKey(path))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id := string(value) // ULID string
	closer.Close()

	return p.GetByID(id)
}

// put writes the record and its path index in one batch
func (p *PebbleStore) put(rec *models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	batch := p.db.NewBatch()
	if err := batch.Set(recordKey(rec.ID), data, nil); err != nil {
		batch.Close()
		return err
	}
	if err := batch.Set(pathKey(rec.Path), []byte(rec.ID), nil); err != nil {
		batch.Close()
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleStore) Create(rec *models.Record) (*models.Record, error) {
	existing, err := p.GetByPath(rec.Path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, rec.Path)
	}
	if err := prepareCreate(rec, p.now()); err != nil {
		return nil, err
	}
	if err := p.put(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *PebbleStore) Upsert(path string, fields models.Descriptive) (UpsertResult, error) {
	existing, err := p.GetByPath(path)
	if err != nil {
		return UpsertResult{}, err
	}

	now := p.now()
	if existing == nil {
		id, err := newULID()
		if err != nil {
			return UpsertResult{}, err
		}
		if err := p.put(newScannedRecord(id, path, fields, now)); err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{ID: id, WasInsert: true}, nil
	}

	existing.Descriptive = fields
	existing.MissingFromSource = false
	existing.UpdatedAt = now
	if err := p.put(existing); err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{ID: existing.ID}, nil
}

func (p *PebbleStore) MarkMissing(present map[string]bool) (int, error) {
	records, err := p.GetAll()
	if err != nil {
		return 0, err
	}

	batch := p.db.NewBatch()
	flagged := 0
	now := p.now()
	for i := range records {
		rec := &records[i]
		missing := !present[rec.Path]
		if missing {
			flagged++
		}
		if rec.MissingFromSource == missing {
			continue
		}
		rec.MissingFromSource = missing
		rec.UpdatedAt = now
		data, err := json.Marshal(rec)
		if err != nil {
			batch.Close()
			return 0, err
		}
		if err := batch.Set(recordKey(rec.ID), data, nil); err != nil {
			batch.Close()
			return 0, err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return flagged, nil
}

// update loads a record, applies fn and writes it back
func (p *PebbleStore) update(id string, fn func(rec *models.Record)) error {
	rec, err := p.GetByID(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(rec)
	rec.UpdatedAt = p.now()
	return p.put(rec)
}

func (p *PebbleStore) SetUserFields(id string, fields UserFields) error {
	return p.update(id, func(rec *models.Record) { applyUserFields(rec, fields) })
}

func (p *PebbleStore) SetNarratorRating(id, narrator string, rating *int) error {
	return p.update(id, func(rec *models.Record) { applyNarratorRating(rec, narrator, rating) })
}

func (p *PebbleStore) SetCoverPath(id, relativePath string) error {
	return p.update(id, func(rec *models.Record) { rec.CoverImagePath = &relativePath })
}

func (p *PebbleStore) Delete(id string) error {
	rec, err := p.GetByID(id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	batch := p.db.NewBatch()
	if err := batch.Delete(recordKey(id), nil); err != nil {
		batch.Close()
		return err
	}
	if err := batch.Delete(pathKey(rec.Path), nil); err != nil {
		batch.Close()
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Verify PebbleStore implements Store
var _ Store = (*PebbleStore)(nil)
