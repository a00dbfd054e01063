// file: internal/playlist/playlist.go
// version: 2.0.0
// guid: 93050a77-f84e-4758-849b-d63627add57c

package playlist

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jdfalk/audiobook-catalog/internal/fileops"
	"github.com/jdfalk/audiobook-catalog/internal/mediainfo"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/jdfalk/audiobook-catalog/internal/query"
)

// Item is one entry of a series playlist
type Item struct {
	Title           string
	Author          string
	Path            string
	DurationSeconds int
}

// Playlist is a named, ordered list of audio files
type Playlist struct {
	Series string
	Path   string
	Items  []Item
}

// Build returns one playlist per named series, books ordered by series
// position. Missing records are left out and folder records expand to
// their audio files in name order.
func Build(records []models.Record, classifier *mediainfo.Classifier) []Playlist {
	if classifier == nil {
		classifier = mediainfo.DefaultClassifier()
	}
	var out []Playlist
	for _, g := range query.Series(records, query.SeriesFilter{}, query.Sort{Field: query.SeriesSortName}) {
		if g.Key == models.StandaloneKey {
			continue
		}
		books := query.Books(records, query.BookFilter{SeriesKey: g.Key}, query.Sort{Field: query.SortSeriesPosition})
		pl := Playlist{Series: g.Name}
		for i := range books {
			rec := &books[i]
			if rec.MissingFromSource {
				continue
			}
			pl.Items = append(pl.Items, items(rec, classifier)...)
		}
		if len(pl.Items) > 0 {
			out = append(out, pl)
		}
	}
	return out
}

func items(rec *models.Record, classifier *mediainfo.Classifier) []Item {
	base := Item{
		Title:           deref(rec.Title, filepath.Base(rec.Path)),
		Author:          deref(rec.Author, ""),
		Path:            rec.Path,
		DurationSeconds: -1,
	}
	if rec.DurationSeconds != nil {
		base.DurationSeconds = *rec.DurationSeconds
	}
	if rec.Kind != models.KindFolder {
		return []Item{base}
	}

	entries, err := os.ReadDir(rec.Path)
	if err != nil {
		log.Printf("[WARN] playlist: cannot read %s: %v", rec.Path, err)
		return nil
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && classifier.IsAudio(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	out := make([]Item, 0, len(files))
	for i, name := range files {
		it := base
		it.Path = filepath.Join(rec.Path, name)
		it.DurationSeconds = -1
		if len(files) > 1 {
			it.Title = fmt.Sprintf("%s (%d/%d)", base.Title, i+1, len(files))
		} else {
			it.DurationSeconds = base.DurationSeconds
		}
		out = append(out, it)
	}
	return out
}

func deref(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}

// Write renders each playlist as an extended M3U file in dir and records
// the written path on the playlist.
func Write(dir string, playlists []Playlist) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create playlist directory: %w", err)
	}
	for i := range playlists {
		pl := &playlists[i]
		pl.Path = filepath.Join(dir, FileName(pl.Series))
		if err := fileops.WriteFileAtomic(pl.Path, []byte(Render(pl)), 0o644); err != nil {
			return fmt.Errorf("failed to write playlist %s: %w", pl.Series, err)
		}
		log.Printf("[INFO] playlist: wrote %s (%d entries)", pl.Path, len(pl.Items))
	}
	return nil
}

// Render formats a playlist as extended M3U
func Render(pl *Playlist) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	fmt.Fprintf(&b, "#PLAYLIST:%s\n", pl.Series)
	for _, it := range pl.Items {
		label := it.Title
		if it.Author != "" {
			label = it.Author + " - " + it.Title
		}
		fmt.Fprintf(&b, "#EXTINF:%d,%s\n", it.DurationSeconds, label)
		b.WriteString(it.Path + "\n")
	}
	return b.String()
}

var unsafeChars = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "")

// FileName turns a series name into a safe .m3u file name
func FileName(series string) string {
	name := strings.TrimSpace(unsafeChars.Replace(series))
	name = strings.Trim(name, ".")
	if name == "" {
		name = "series"
	}
	return name + ".m3u"
}
