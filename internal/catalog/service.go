// file: internal/catalog/service.go
// version: 1.1.0
// guid: ae3e9ee9-5d9e-43cf-940e-12d119ce2b20

package catalog

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/models"
)

var (
	// ErrInvalidRating is returned for ratings outside 1..5
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrUnknownNarrator is returned when rating a name not in the narrator field
	ErrUnknownNarrator = errors.New("narrator is not credited on this record")
	// ErrInvalidEntry is returned for hand-entered records without a usable path or kind
	ErrInvalidEntry = errors.New("invalid manual entry")
)

// Service applies user edits to catalog records
type Service struct {
	store database.Store
}

// NewService returns a Service over store
func NewService(store database.Store) *Service {
	return &Service{store: store}
}

func (s *Service) get(id string) (*models.Record, error) {
	rec, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", database.ErrNotFound, id)
	}
	return rec, nil
}

// Get returns one record or database.ErrNotFound
func (s *Service) Get(id string) (*models.Record, error) {
	return s.get(id)
}

// SetStatus updates listening progress
func (s *Service) SetStatus(id string, status models.Status) error {
	if _, err := models.ParseStatus(string(status)); err != nil {
		return err
	}
	return s.store.SetUserFields(id, database.UserFields{Status: &status})
}

// SetBookRating sets the book rating; nil clears it
func (s *Service) SetBookRating(id string, rating *int) error {
	if rating == nil {
		return s.store.SetUserFields(id, database.UserFields{ClearBookRating: true})
	}
	if !models.ValidRating(*rating) {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, *rating)
	}
	return s.store.SetUserFields(id, database.UserFields{BookRating: rating})
}

// SetNarratorRating rates one narrator credited in the record's narrator
// field; nil clears the rating.
func (s *Service) SetNarratorRating(id, narrator string, rating *int) error {
	if rating != nil && !models.ValidRating(*rating) {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, *rating)
	}
	rec, err := s.get(id)
	if err != nil {
		return err
	}
	credited := false
	for _, name := range rec.Narrators() {
		if name == narrator {
			credited = true
			break
		}
	}
	if !credited {
		return fmt.Errorf("%w: %q", ErrUnknownNarrator, narrator)
	}
	return s.store.SetNarratorRating(id, narrator, rating)
}

// SetTagsNotes replaces tags and/or notes; nil leaves a field alone
func (s *Service) SetTagsNotes(id string, tags, notes *string) error {
	return s.store.SetUserFields(id, database.UserFields{Tags: tags, Notes: notes})
}

// Update applies several user fields at once after validating them
func (s *Service) Update(id string, fields database.UserFields) error {
	if fields.Status != nil {
		if _, err := models.ParseStatus(string(*fields.Status)); err != nil {
			return err
		}
	}
	if fields.BookRating != nil && !models.ValidRating(*fields.BookRating) {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, *fields.BookRating)
	}
	return s.store.SetUserFields(id, fields)
}

// ManualEntry is a hand-entered record. An empty Kind is taken from the
// filesystem: directories are folders, anything else a single file.
type ManualEntry struct {
	Path           string
	Kind           models.Kind
	Title          string
	Author         string
	Narrator       string
	Series         string
	SeriesPosition string
}

// AddManual stores a hand-entered record with source manual. Later commits
// of the same path only fill the fields left blank here.
func (s *Service) AddManual(entry ManualEntry) (*models.Record, error) {
	path := strings.TrimSpace(entry.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidEntry)
	}
	path = filepath.Clean(path)

	kind := entry.Kind
	switch kind {
	case models.KindFolder, models.KindSingleFile:
	case "":
		kind = models.KindSingleFile
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			kind = models.KindFolder
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, kind)
	}

	rec := &models.Record{
		Path: path,
		Descriptive: models.Descriptive{
			Kind:           kind,
			Title:          models.NullableString(entry.Title),
			Author:         models.NullableString(entry.Author),
			Narrator:       models.NullableString(entry.Narrator),
			Series:         models.NullableString(entry.Series),
			SeriesPosition: models.NullableString(entry.SeriesPosition),
		},
		Source: models.SourceManual,
	}
	created, err := s.store.Create(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to add %s: %w", path, err)
	}
	log.Printf("[INFO] catalog: added manual record %s for %s", created.ID, path)
	return created, nil
}

// DeleteRecord removes a record and its narrator ratings
func (s *Service) DeleteRecord(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	log.Printf("[INFO] catalog: deleted record %s", id)
	return nil
}
