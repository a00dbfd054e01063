// file: internal/metadata/metadata.go
// version: 2.0.0
// guid: 2d39d6ec-2435-409e-b4dd-440e0ec2e0a4

package metadata

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/jdfalk/audiobook-catalog/internal/mediainfo"
)

// TagInfo is what a single audio file's embedded tags tell us. Every field
// is optional; nothing here is ever an error.
type TagInfo struct {
	Title           *string
	Author          *string
	Narrator        *string
	Series          *string
	SeriesPosition  *string
	DurationSeconds *int
	HasCover        bool
}

// Extractor reads TagInfo from one audio file
type Extractor interface {
	Extract(filePath string) TagInfo
}

// CoverReader returns the embedded cover image of an audio file
type CoverReader interface {
	ReadCover(filePath string) ([]byte, error)
}

// TagExtractor reads tags with dhowden/tag and durations with mediainfo
type TagExtractor struct {
	probeDuration func(string) (int, error)
}

// NewTagExtractor returns the default extractor
func NewTagExtractor() *TagExtractor {
	return &TagExtractor{probeDuration: mediainfo.ProbeDuration}
}

// Raw tag keys, checked in order. ID3 TXXX frames and MP4 freeform atoms
// surface under their description, so both spellings are listed.
var (
	narratorKeys       = []string{"TXXX:NARRATOR", "TXXX:Narrator", "NARRATOR", "Narrator", "©nrt"}
	seriesKeys         = []string{"SERIES", "TXXX:SERIES", "MVNM", "©mvn", "GRP1", "©grp"}
	seriesPositionKeys = []string{"SERIES-PART", "SERIES_PART", "TXXX:SERIES-PART", "MVIN", "©mvi"}
)

// Extract reads tags and duration from filePath. Unreadable files yield an
// empty TagInfo and a warning in the log.
func (e *TagExtractor) Extract(filePath string) TagInfo {
	var info TagInfo

	if e.probeDuration != nil {
		if secs, err := e.probeDuration(filePath); err == nil {
			info.DurationSeconds = &secs
		} else {
			log.Printf("[DEBUG] metadata: no duration for %s: %v", filePath, err)
		}
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Printf("[WARN] metadata: cannot open %s: %v", filePath, err)
		return info
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		log.Printf("[WARN] metadata: cannot read tags from %s: %v", filePath, err)
		return info
	}

	raw := m.Raw()
	info.Title = nullable(m.Title())
	info.Author = nullable(firstNonBlank(m.Artist(), m.AlbumArtist()))
	info.Narrator = nullable(firstNonBlank(rawString(raw, narratorKeys...), m.Composer()))
	info.Series = nullable(rawString(raw, seriesKeys...))
	if info.Series != nil {
		info.SeriesPosition = nullable(rawString(raw, seriesPositionKeys...))
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		info.HasCover = true
	}
	return info
}

// ReadCover returns the embedded picture bytes of filePath
func (e *TagExtractor) ReadCover(filePath string) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("error reading tags: %w", err)
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, fmt.Errorf("no embedded cover in %s", filePath)
	}
	return pic.Data, nil
}

// rawString returns the first non-blank value among keys. Comm values
// (TXXX, COMM) are matched by key or by their description.
func rawString(raw map[string]interface{}, keys ...string) string {
	if raw == nil {
		return ""
	}
	for _, key := range keys {
		if s := rawValueString(raw[key]); s != "" {
			return s
		}
	}
	for _, key := range keys {
		desc := strings.TrimPrefix(key, "TXXX:")
		for _, v := range raw {
			if c, ok := v.(*tag.Comm); ok && strings.EqualFold(c.Description, desc) {
				if s := strings.TrimSpace(c.Text); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func rawValueString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case *tag.Comm:
		return strings.TrimSpace(val.Text)
	case int:
		if val > 0 {
			return strconv.Itoa(val)
		}
	}
	return ""
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
