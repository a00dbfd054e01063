// file: internal/models/audiobook.go
// version: 2.0.0
// guid: a5138a1d-5320-4201-9fb8-d44bb01907b4

package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes a single audio file from a folder of audio files
type Kind string

const (
	KindSingleFile Kind = "single_file"
	KindFolder     Kind = "folder"
)

// Source governs how re-ingestion merges into an existing record
type Source string

const (
	SourceScanned Source = "scanned"
	SourceManual  Source = "manual"
)

// Status is the listening progress of a record
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Ordinal returns the fixed sort position of a status.
// Unknown values sort after finished.
func (s Status) Ordinal() int {
	switch s {
	case StatusNotStarted, "":
		return 0
	case StatusInProgress:
		return 1
	case StatusFinished:
		return 2
	default:
		return 3
	}
}

// ErrInvalidStatus is returned for status strings outside the three states
var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus validates a status string
func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(s))) {
	case StatusNotStarted:
		return StatusNotStarted, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusFinished:
		return StatusFinished, nil
	}
	return "", fmt.Errorf("%w %q (expected not_started, in_progress or finished)", ErrInvalidStatus, s)
}

// Sentinel series key and display name for records without a series
const (
	StandaloneKey  = "standalone"
	StandaloneName = "Standalone Books"
)

// Descriptive holds the fields that ingestion owns. Re-ingestion may rewrite
// these; it never touches user fields.
type Descriptive struct {
	Kind             Kind    `json:"kind" yaml:"kind"`
	Title            *string `json:"title" yaml:"title"`
	Author           *string `json:"author" yaml:"author"`
	Narrator         *string `json:"narrator" yaml:"narrator"`
	Series           *string `json:"series" yaml:"series"`
	SeriesPosition   *string `json:"series_position" yaml:"series_position"`
	DurationSeconds  *int    `json:"duration_seconds" yaml:"duration_seconds"`
	TotalSizeBytes   int64   `json:"total_size_bytes" yaml:"total_size_bytes"`
	FileCount        int     `json:"file_count" yaml:"file_count"`
	HasEmbeddedCover bool    `json:"has_embedded_cover" yaml:"has_embedded_cover"`
}

// Record is a persisted catalog entry keyed by its unique path
type Record struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Descriptive
	Source Source `json:"source"`

	// User fields, never touched by re-ingestion
	Status          Status         `json:"status"`
	BookRating      *int           `json:"book_rating"`
	Tags            string         `json:"tags"`
	Notes           string         `json:"notes"`
	NarratorRatings map[string]int `json:"narrator_ratings,omitempty"`

	CoverImagePath    *string   `json:"cover_image_path"`
	MissingFromSource bool      `json:"missing_from_source"`
	DateAdded         time.Time `json:"date_added"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasSeries reports whether the series field holds anything but whitespace
func (r *Record) HasSeries() bool {
	return r.Series != nil && strings.TrimSpace(*r.Series) != ""
}

// SeriesKey returns the exact series string, or StandaloneKey when the
// record has no series.
func (r *Record) SeriesKey() string {
	if !r.HasSeries() {
		return StandaloneKey
	}
	return *r.Series
}

// Narrators returns the display names derived from the narrator field
func (r *Record) Narrators() []string {
	return SplitNarrators(Deref(r.Narrator))
}

// NarratorRating returns the rating for a narrator, or nil when unrated
func (r *Record) NarratorRating(name string) *int {
	if v, ok := r.NarratorRatings[name]; ok {
		rating := v
		return &rating
	}
	return nil
}

// IsFullyRated reports whether the book has a rating and every narrator
// derived from the narrator field has a rating too.
func (r *Record) IsFullyRated() bool {
	if r.BookRating == nil {
		return false
	}
	for _, name := range r.Narrators() {
		if _, ok := r.NarratorRatings[name]; !ok {
			return false
		}
	}
	return true
}

// ValidRating reports whether v is on the 1..5 scale
func ValidRating(v int) bool {
	return v >= 1 && v <= 5
}

// NullableString returns nil for blank strings
func NullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// FirstNonEmpty returns the first pointer that holds a non-blank value
func FirstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return v
		}
	}
	return nil
}
