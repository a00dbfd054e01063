// file: internal/catalog/merge.go
// version: 1.0.0
// guid: 3d323b8d-4d24-4e83-a1d5-6e5797d43b75

package catalog

import (
	"strings"

	"github.com/jdfalk/audiobook-catalog/internal/models"
)

// MergeDescriptive returns the descriptive fields to store when incoming is
// committed over existing. Scanned records take incoming wholesale. Manual
// records only have their empty fields filled.
func MergeDescriptive(existing, incoming models.Descriptive, manual bool) models.Descriptive {
	if !manual {
		return incoming
	}

	merged := existing
	if merged.Kind == "" {
		merged.Kind = incoming.Kind
	}
	merged.Title = fillString(existing.Title, incoming.Title)
	merged.Author = fillString(existing.Author, incoming.Author)
	merged.Narrator = fillString(existing.Narrator, incoming.Narrator)
	merged.Series = fillString(existing.Series, incoming.Series)
	merged.SeriesPosition = fillString(existing.SeriesPosition, incoming.SeriesPosition)
	if merged.DurationSeconds == nil {
		merged.DurationSeconds = incoming.DurationSeconds
	}
	if merged.TotalSizeBytes == 0 {
		merged.TotalSizeBytes = incoming.TotalSizeBytes
	}
	if merged.FileCount == 0 {
		merged.FileCount = incoming.FileCount
	}
	if !merged.HasEmbeddedCover {
		merged.HasEmbeddedCover = incoming.HasEmbeddedCover
	}
	return merged
}

func fillString(existing, incoming *string) *string {
	if existing != nil && strings.TrimSpace(*existing) != "" {
		return existing
	}
	return incoming
}
