// file: internal/query/books.go
// version: 1.0.0
// guid: ffe9e90c-3961-4a93-92df-2ceb74652803

// Package query answers catalog questions over an in-memory snapshot of
// records. Nothing here does I/O or keeps state between calls.
package query

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jdfalk/audiobook-catalog/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// RatedFilter narrows books by rating completeness
type RatedFilter string

const (
	RatedAny   RatedFilter = ""
	RatedFully RatedFilter = "fully_rated"
	RatedNone  RatedFilter = "unrated"
)

// BookFilter holds the conjunctive book filters. Zero values match everything.
type BookFilter struct {
	Search    string          `json:"search,omitempty" form:"search"`
	Statuses  []models.Status `json:"statuses,omitempty" form:"status"`
	Rated     RatedFilter     `json:"rated,omitempty" form:"rated"`
	SeriesKey string          `json:"series,omitempty" form:"series"`
}

// Sortable book fields
const (
	SortTitle          = "title"
	SortAuthor         = "author"
	SortNarrator       = "narrator"
	SortRating         = "rating"
	SortDateAdded      = "date_added"
	SortStatus         = "status"
	SortSeries         = "series"
	SortSeriesPosition = "series_position"
)

var bookSortFields = map[string]bool{
	SortTitle:          true,
	SortAuthor:         true,
	SortNarrator:       true,
	SortRating:         true,
	SortDateAdded:      true,
	SortStatus:         true,
	SortSeries:         true,
	SortSeriesPosition: true,
}

// Sort is a field plus direction
type Sort struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// ParseSort reads "field" or "-field". A "field:desc" suffix is accepted too.
// Hyphenated field names such as "date-added" map to their underscore form.
func ParseSort(s string) Sort {
	s = strings.TrimSpace(strings.ToLower(s))
	var out Sort
	if strings.HasPrefix(s, "-") {
		out = Sort{Field: strings.TrimPrefix(s, "-"), Desc: true}
	} else if field, dir, ok := strings.Cut(s, ":"); ok {
		out = Sort{Field: field, Desc: dir == "desc"}
	} else {
		out = Sort{Field: s}
	}
	out.Field = strings.ReplaceAll(out.Field, "-", "_")
	return out
}

// String renders the sort the way ParseSort reads it
func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// Page bounds a result window. A zero Limit means no limit.
type Page struct {
	Limit  int `json:"limit" form:"limit"`
	Offset int `json:"offset" form:"offset"`
}

// MatchesSearch is the book-level free-text predicate: a case-insensitive
// substring of title, author, series or narrator.
func MatchesSearch(rec *models.Record, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	for _, field := range []*string{rec.Title, rec.Author, rec.Series, rec.Narrator} {
		if field != nil && strings.Contains(strings.ToLower(*field), needle) {
			return true
		}
	}
	return false
}

func (f BookFilter) matches(rec *models.Record) bool {
	if !MatchesSearch(rec, f.Search) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if rec.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	switch f.Rated {
	case RatedFully:
		if !rec.IsFullyRated() {
			return false
		}
	case RatedNone:
		if rec.IsFullyRated() {
			return false
		}
	}
	if f.SeriesKey != "" && rec.SeriesKey() != f.SeriesKey {
		return false
	}
	return true
}

// Books filters and sorts records. The input slice is not modified.
// Unknown sort fields fall back to title ascending.
func Books(records []models.Record, filter BookFilter, s Sort) []models.Record {
	out := make([]models.Record, 0, len(records))
	for i := range records {
		if filter.matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	if !bookSortFields[s.Field] {
		s = Sort{Field: SortTitle}
	}

	cmp := newComparer()
	sort.SliceStable(out, func(i, j int) bool {
		c := compareBooks(cmp, &out[i], &out[j], s)
		if c != 0 {
			return c < 0
		}
		// Deterministic tie-break independent of direction
		if c = cmp.optional(out[i].Title, out[j].Title, false); c != 0 {
			return c < 0
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Paginate returns the window described by page
func Paginate(records []models.Record, page Page) []models.Record {
	if page.Offset < 0 {
		page.Offset = 0
	}
	if page.Offset >= len(records) {
		return []models.Record{}
	}
	end := len(records)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return records[page.Offset:end]
}

// compareBooks returns the direction-adjusted comparison for s.Field.
// Absent values sort last in both directions.
func compareBooks(cmp *comparer, a, b *models.Record, s Sort) int {
	switch s.Field {
	case SortAuthor:
		return cmp.optional(a.Author, b.Author, s.Desc)
	case SortNarrator:
		return cmp.optional(firstNarrator(a), firstNarrator(b), s.Desc)
	case SortRating:
		return compareOptionalInt(a.BookRating, b.BookRating, s.Desc)
	case SortDateAdded:
		return directed(compareInt64(a.DateAdded.UnixNano(), b.DateAdded.UnixNano()), s.Desc)
	case SortStatus:
		return directed(compareInt64(int64(a.Status.Ordinal()), int64(b.Status.Ordinal())), s.Desc)
	case SortSeries:
		return cmp.optional(a.Series, b.Series, s.Desc)
	case SortSeriesPosition:
		return comparePosition(PositionValue(a.SeriesPosition), PositionValue(b.SeriesPosition), s.Desc)
	default:
		return cmp.optional(a.Title, b.Title, s.Desc)
	}
}

func firstNarrator(rec *models.Record) *string {
	return models.NullableString(models.FirstNarrator(models.Deref(rec.Narrator)))
}

// PositionValue parses a series position for ordering only. Missing or
// unparsable positions are +Inf.
func PositionValue(pos *string) float64 {
	if pos == nil {
		return math.Inf(1)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*pos), 64)
	if err != nil || math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}

// comparePosition keeps +Inf last whichever way the rest is ordered
func comparePosition(a, b float64, desc bool) int {
	aInf, bInf := math.IsInf(a, 1), math.IsInf(b, 1)
	switch {
	case aInf && bInf:
		return 0
	case aInf:
		return 1
	case bInf:
		return -1
	}
	switch {
	case a < b:
		return directed(-1, desc)
	case a > b:
		return directed(1, desc)
	}
	return 0
}

func compareOptionalInt(a, b *int, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return directed(compareInt64(int64(*a), int64(*b)), desc)
}

func compareOptionalFloat(a, b *float64, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch {
	case *a < *b:
		return directed(-1, desc)
	case *a > *b:
		return directed(1, desc)
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func directed(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}

// comparer wraps a case-insensitive collator. Collators are not safe for
// concurrent use, so each query builds its own.
type comparer struct {
	col *collate.Collator
}

func newComparer() *comparer {
	return &comparer{col: collate.New(language.Und, collate.IgnoreCase, collate.Loose)}
}

func (c *comparer) strings(a, b string) int {
	return c.col.CompareString(a, b)
}

// optional compares two nullable strings; blank values sort last in either
// direction.
func (c *comparer) optional(a, b *string, desc bool) int {
	aBlank := a == nil || strings.TrimSpace(*a) == ""
	bBlank := b == nil || strings.TrimSpace(*b) == ""
	switch {
	case aBlank && bBlank:
		return 0
	case aBlank:
		return 1
	case bBlank:
		return -1
	}
	return directed(c.strings(*a, *b), desc)
}
