// file: internal/query/series.go
// version: 1.0.0
// guid: 0a292c00-3aae-441e-9a47-209676e280bc

package query

import (
	"sort"
	"strings"

	"github.com/jdfalk/audiobook-catalog/internal/matcher"
	"github.com/jdfalk/audiobook-catalog/internal/models"
)

// SeriesRatedFilter narrows series by how many members carry a book rating
type SeriesRatedFilter string

const (
	SeriesRatedAny   SeriesRatedFilter = ""
	SeriesRatedFully SeriesRatedFilter = "fully_rated"
	SeriesRatedPart  SeriesRatedFilter = "partly_rated"
	SeriesRatedNone  SeriesRatedFilter = "unrated"
)

// SeriesFilter holds the series-level filters. Zero values match everything.
type SeriesFilter struct {
	Search     string            `json:"search,omitempty" form:"search"`
	Rated      SeriesRatedFilter `json:"rated,omitempty" form:"rated"`
	Completion models.Status     `json:"completion,omitempty" form:"completion"`
}

// Sortable series fields
const (
	SeriesSortName              = "name"
	SeriesSortBookCount         = "book_count"
	SeriesSortTotalDuration     = "total_duration"
	SeriesSortAvgRating         = "avg_rating"
	SeriesSortCompletionPercent = "completion_percent"
)

var seriesSortFields = map[string]bool{
	SeriesSortName:              true,
	SeriesSortBookCount:         true,
	SeriesSortTotalDuration:     true,
	SeriesSortAvgRating:         true,
	SeriesSortCompletionPercent: true,
}

// SeriesGroup is the aggregate view of one series
type SeriesGroup struct {
	Key                  string        `json:"key"`
	Name                 string        `json:"name"`
	BookCount            int           `json:"book_count"`
	NotStartedCount      int           `json:"not_started_count"`
	InProgressCount      int           `json:"in_progress_count"`
	FinishedCount        int           `json:"finished_count"`
	TotalDurationSeconds int           `json:"total_duration_seconds"`
	RatedCount           int           `json:"rated_count"`
	AvgBookRating        *float64      `json:"avg_book_rating"`
	UnratedCount         int           `json:"unrated_count"`
	CompletionStatus     models.Status `json:"completion_status"`
	CompletionPercent    float64       `json:"completion_percent"`
	CoverRecordID        *string       `json:"cover_record_id"`
	RecordIDs            []string      `json:"record_ids"`

	members []*models.Record
}

// Series groups records by exact series string and computes per-group
// statistics, then filters and sorts the groups. Unknown sort fields fall
// back to name ascending.
func Series(records []models.Record, filter SeriesFilter, s Sort) []SeriesGroup {
	groups := groupRecords(records)

	out := make([]SeriesGroup, 0, len(groups))
	for _, g := range groups {
		if filter.matches(g) {
			out = append(out, *g)
		}
	}
	if !seriesSortFields[s.Field] {
		s = Sort{Field: SeriesSortName}
	}

	cmp := newComparer()
	sort.SliceStable(out, func(i, j int) bool {
		c := compareSeries(cmp, &out[i], &out[j], s)
		if c != 0 {
			return c < 0
		}
		return out[i].Key < out[j].Key
	})
	for i := range out {
		out[i].members = nil
	}
	return out
}

func groupRecords(records []models.Record) []*SeriesGroup {
	byKey := make(map[string]*SeriesGroup)
	var order []string
	for i := range records {
		rec := &records[i]
		key := rec.SeriesKey()
		g, ok := byKey[key]
		if !ok {
			g = &SeriesGroup{Key: key, Name: key}
			if key == models.StandaloneKey {
				g.Name = models.StandaloneName
			}
			byKey[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, rec)
	}

	sort.Strings(order)
	groups := make([]*SeriesGroup, 0, len(order))
	for _, key := range order {
		g := byKey[key]
		g.computeStats()
		groups = append(groups, g)
	}
	return groups
}

func (g *SeriesGroup) computeStats() {
	g.BookCount = len(g.members)
	ratingSum := 0
	for _, rec := range g.members {
		g.RecordIDs = append(g.RecordIDs, rec.ID)
		switch rec.Status {
		case models.StatusFinished:
			g.FinishedCount++
		case models.StatusInProgress:
			g.InProgressCount++
		default:
			g.NotStartedCount++
		}
		if rec.DurationSeconds != nil {
			g.TotalDurationSeconds += *rec.DurationSeconds
		}
		if rec.BookRating != nil {
			g.RatedCount++
			ratingSum += *rec.BookRating
		}
		if !rec.IsFullyRated() {
			g.UnratedCount++
		}
	}
	sort.Strings(g.RecordIDs)

	if g.RatedCount > 0 {
		avg := float64(ratingSum) / float64(g.RatedCount)
		g.AvgBookRating = &avg
	}

	switch {
	case g.BookCount > 0 && g.FinishedCount == g.BookCount:
		g.CompletionStatus = models.StatusFinished
	case g.NotStartedCount == g.BookCount:
		g.CompletionStatus = models.StatusNotStarted
	default:
		g.CompletionStatus = models.StatusInProgress
	}
	if g.BookCount > 0 {
		g.CompletionPercent = float64(g.FinishedCount) / float64(g.BookCount) * 100
	}

	g.CoverRecordID = g.pickCover()
}

// pickCover orders members by position then date added (date only for the
// standalone group) and returns the first one with a cover.
func (g *SeriesGroup) pickCover() *string {
	members := make([]*models.Record, len(g.members))
	copy(members, g.members)
	standalone := g.Key == models.StandaloneKey

	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if !standalone {
			if c := comparePosition(PositionValue(a.SeriesPosition), PositionValue(b.SeriesPosition), false); c != 0 {
				return c < 0
			}
		}
		if !a.DateAdded.Equal(b.DateAdded) {
			return a.DateAdded.Before(b.DateAdded)
		}
		return a.ID < b.ID
	})
	for _, rec := range members {
		if rec.CoverImagePath != nil && *rec.CoverImagePath != "" {
			id := rec.ID
			return &id
		}
	}
	return nil
}

func (f SeriesFilter) matches(g *SeriesGroup) bool {
	if f.Search != "" {
		found := strings.Contains(strings.ToLower(g.Name), strings.ToLower(strings.TrimSpace(f.Search)))
		for _, rec := range g.members {
			if found {
				break
			}
			found = MatchesSearch(rec, f.Search)
		}
		if !found {
			return false
		}
	}
	switch f.Rated {
	case SeriesRatedFully:
		if !(g.BookCount > 0 && g.RatedCount == g.BookCount) {
			return false
		}
	case SeriesRatedPart:
		if !(g.RatedCount > 0 && g.RatedCount < g.BookCount) {
			return false
		}
	case SeriesRatedNone:
		if g.RatedCount != 0 {
			return false
		}
	}
	if f.Completion != "" && g.CompletionStatus != f.Completion {
		return false
	}
	return true
}

func compareSeries(cmp *comparer, a, b *SeriesGroup, s Sort) int {
	switch s.Field {
	case SeriesSortBookCount:
		return directed(compareInt64(int64(a.BookCount), int64(b.BookCount)), s.Desc)
	case SeriesSortTotalDuration:
		return directed(compareInt64(int64(a.TotalDurationSeconds), int64(b.TotalDurationSeconds)), s.Desc)
	case SeriesSortAvgRating:
		return compareOptionalFloat(a.AvgBookRating, b.AvgBookRating, s.Desc)
	case SeriesSortCompletionPercent:
		return compareOptionalFloat(&a.CompletionPercent, &b.CompletionPercent, s.Desc)
	default:
		return directed(cmp.strings(a.Name, b.Name), s.Desc)
	}
}

// SeriesKeys returns every distinct series key in records, sorted
func SeriesKeys(records []models.Record) []string {
	seen := make(map[string]bool)
	var keys []string
	for i := range records {
		key := records[i].SeriesKey()
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// SuggestSeriesKeys returns "did you mean" keys when key selects no record.
// It returns nil when key is empty or matches.
func SuggestSeriesKeys(records []models.Record, key string, limit int) []string {
	if key == "" {
		return nil
	}
	keys := SeriesKeys(records)
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	return matcher.SuggestSeries(key, keys, limit)
}
