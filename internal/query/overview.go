// file: internal/query/overview.go
// version: 1.0.0
// guid: b69027d1-d1cc-4eea-b460-91ff4e496c86

package query

import "github.com/jdfalk/audiobook-catalog/internal/models"

// Overview summarizes the catalog for status views
type Overview struct {
	Records      int                   `json:"records"`
	Missing      int                   `json:"missing"`
	WithCovers   int                   `json:"with_covers"`
	FullyRated   int                   `json:"fully_rated"`
	Series       int                   `json:"series"`
	ByStatus     map[models.Status]int `json:"by_status"`
	DurationSecs int                   `json:"duration_seconds"`
}

// Summarize counts records by the attributes the status view shows
func Summarize(records []models.Record) Overview {
	ov := Overview{
		Records: len(records),
		ByStatus: map[models.Status]int{
			models.StatusNotStarted: 0,
			models.StatusInProgress: 0,
			models.StatusFinished:   0,
		},
	}
	series := make(map[string]bool)
	for i := range records {
		rec := &records[i]
		if rec.MissingFromSource {
			ov.Missing++
		}
		if rec.CoverImagePath != nil {
			ov.WithCovers++
		}
		if rec.IsFullyRated() {
			ov.FullyRated++
		}
		if rec.HasSeries() {
			series[*rec.Series] = true
		}
		if rec.DurationSeconds != nil {
			ov.DurationSecs += *rec.DurationSeconds
		}
		status := rec.Status
		if status == "" {
			status = models.StatusNotStarted
		}
		ov.ByStatus[status]++
	}
	ov.Series = len(series)
	return ov
}
