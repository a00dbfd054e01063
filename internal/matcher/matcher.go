// file: internal/matcher/matcher.go
// version: 2.0.0
// guid: fc8e0acb-6181-4d0c-b475-b5a7c2ce2aea

package matcher

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Inference is what a folder or file name tells us about a book
type Inference struct {
	Series   *string
	Position *string // kept as text ("2", "2.5"); parsed only when sorting
	Title    string
}

// HasSeries reports whether a series was inferred
func (i Inference) HasSeries() bool {
	return i.Series != nil
}

const number = `(\d+(?:\.\d+)?)`

// Naming patterns in priority order. First match wins.
var (
	// "Series - Book 2 - Title" or "Series - 2 - Title"
	reSeriesNumberTitle = regexp.MustCompile(`(?i)^(.+?)\s+-\s+(?:book\s+)?` + number + `\s+-\s+(.+)$`)
	// "Series - Book 2"
	reSeriesBookNumber = regexp.MustCompile(`(?i)^(.+?)\s+-\s+book\s+` + number + `$`)
	// "[Tag] Series - Title"
	reTaggedSeriesTitle = regexp.MustCompile(`^\[[^\]]*\]\s*(.+?)\s+-\s+(.+)$`)
)

// InferFromName infers series, position and a clean title from a folder or
// file base name. Without a match the series and position are nil and the
// title is the name itself.
func InferFromName(name string) Inference {
	name = strings.TrimSpace(name)

	if m := reSeriesNumberTitle.FindStringSubmatch(name); m != nil {
		return Inference{
			Series:   trimmedPtr(m[1]),
			Position: trimmedPtr(m[2]),
			Title:    strings.TrimSpace(m[3]),
		}
	}

	if m := reSeriesBookNumber.FindStringSubmatch(name); m != nil {
		return Inference{
			Series:   trimmedPtr(m[1]),
			Position: trimmedPtr(m[2]),
			Title:    name,
		}
	}

	if m := reTaggedSeriesTitle.FindStringSubmatch(name); m != nil {
		return Inference{
			Series: trimmedPtr(m[1]),
			Title:  strings.TrimSpace(m[2]),
		}
	}

	return Inference{Title: name}
}

// InferFromPath runs InferFromName on the base name of path, without the
// extension when the path names a file.
func InferFromPath(path string, isFile bool) Inference {
	base := filepath.Base(path)
	if isFile {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return InferFromName(base)
}

func trimmedPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
