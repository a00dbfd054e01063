// file: internal/database/store.go
// version: 3.0.0
// guid: ac50312d-b660-4968-a62c-faffd8dbb77a

package database

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/models"
	ulid "github.com/oklog/ulid/v2"
)

var (
	// ErrNotFound is returned by mutations that target an unknown record id
	ErrNotFound = errors.New("record not found")
	// ErrDuplicatePath is returned by Create when the path is already cataloged
	ErrDuplicatePath = errors.New("record path already exists")
)

// UpsertResult reports the id of the written record and whether it was new
type UpsertResult struct {
	ID        string
	WasInsert bool
}

// UserFields is a partial update of the user-owned fields. Nil pointers
// leave the stored value alone.
type UserFields struct {
	Status          *models.Status
	BookRating      *int
	ClearBookRating bool
	Tags            *string
	Notes           *string
}

// Store defines the record store used by ingestion and queries.
// This abstraction allows us to support both PebbleDB (default) and SQLite3 (opt-in)
type Store interface {
	// Lifecycle
	Close() error

	// Reads. Lookups return nil, nil when nothing matches.
	GetAll() ([]models.Record, error)
	GetByID(id string) (*models.Record, error)
	GetByPath(path string) (*models.Record, error)

	// Create stores a hand-entered record (source manual unless set)
	Create(rec *models.Record) (*models.Record, error)

	// Upsert writes descriptive fields by path. A new record starts as
	// scanned and not_started; an existing one keeps its source and user
	// fields. Either way missing_from_source is cleared.
	Upsert(path string, fields models.Descriptive) (UpsertResult, error)

	// MarkMissing flags every record whose path is not in present and
	// clears the flag on the rest. It returns the number flagged.
	MarkMissing(present map[string]bool) (int, error)

	// User fields
	SetUserFields(id string, fields UserFields) error
	// SetNarratorRating stores a rating; nil removes it
	SetNarratorRating(id, narrator string, rating *int) error
	SetCoverPath(id, relativePath string) error

	// Delete removes a record together with its narrator ratings
	Delete(id string) error
}

// Snapshotter is implemented by stores that can write a consistent copy of
// themselves to dest, which must not exist yet.
type Snapshotter interface {
	Snapshot(dest string) error
}

// Global store instance
var GlobalStore Store

// InitializeStore initializes the database store based on configuration
func InitializeStore(dbType, path string, enableSQLite bool) error {
	var err error

	switch dbType {
	case "sqlite", "sqlite3":
		if !enableSQLite {
			return fmt.Errorf("SQLite3 is not enabled. To use SQLite3, you must explicitly enable it with --enable-sqlite3-i-know-the-risks or set 'enable_sqlite3_i_know_the_risks: true' in your config file. PebbleDB is the recommended database for production use")
		}
		GlobalStore, err = NewSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
	case "pebble", "":
		// PebbleDB is the default
		GlobalStore, err = NewPebbleStore(path)
		if err != nil {
			return fmt.Errorf("failed to initialize PebbleDB store: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database type: %s (supported: pebble, sqlite)", dbType)
	}

	log.Printf("[INFO] database: opened %s store at %s", dbTypeName(dbType), path)
	return nil
}

// CloseStore closes the global store
func CloseStore() error {
	if GlobalStore != nil {
		err := GlobalStore.Close()
		GlobalStore = nil
		return err
	}
	return nil
}

func dbTypeName(dbType string) string {
	if dbType == "" {
		return "pebble"
	}
	return dbType
}

func newULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// newScannedRecord builds the record inserted on a first upsert
func newScannedRecord(id, path string, fields models.Descriptive, now time.Time) *models.Record {
	return &models.Record{
		ID:          id,
		Path:        path,
		Descriptive: fields,
		Source:      models.SourceScanned,
		Status:      models.StatusNotStarted,
		DateAdded:   now,
		UpdatedAt:   now,
	}
}

// prepareCreate fills defaults on a hand-entered record
func prepareCreate(rec *models.Record, now time.Time) error {
	if rec.Path == "" {
		return fmt.Errorf("record path is required")
	}
	if rec.ID == "" {
		id, err := newULID()
		if err != nil {
			return err
		}
		rec.ID = id
	}
	if rec.Source == "" {
		rec.Source = models.SourceManual
	}
	if rec.Status == "" {
		rec.Status = models.StatusNotStarted
	}
	if rec.DateAdded.IsZero() {
		rec.DateAdded = now
	}
	rec.UpdatedAt = now
	return nil
}

// applyUserFields mutates rec in place
func applyUserFields(rec *models.Record, f UserFields) {
	if f.Status != nil {
		rec.Status = *f.Status
	}
	if f.ClearBookRating {
		rec.BookRating = nil
	} else if f.BookRating != nil {
		v := *f.BookRating
		rec.BookRating = &v
	}
	if f.Tags != nil {
		rec.Tags = *f.Tags
	}
	if f.Notes != nil {
		rec.Notes = *f.Notes
	}
}

// applyNarratorRating mutates the owned ratings collection of rec
func applyNarratorRating(rec *models.Record, narrator string, rating *int) {
	if rating == nil {
		delete(rec.NarratorRatings, narrator)
		return
	}
	if rec.NarratorRatings == nil {
		rec.NarratorRatings = make(map[string]int)
	}
	rec.NarratorRatings[narrator] = *rating
}
