// file: internal/scanner/builder.go
// version: 2.0.0
// guid: 1e6caaf2-7eef-47a0-af85-3e219e6160e5

package scanner

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/jdfalk/audiobook-catalog/internal/matcher"
	"github.com/jdfalk/audiobook-catalog/internal/mediainfo"
	"github.com/jdfalk/audiobook-catalog/internal/metadata"
	"github.com/jdfalk/audiobook-catalog/internal/models"
)

// SourcePolicy picks the metadata source file for a folder that holds no
// preferred-format file.
type SourcePolicy string

const (
	// SourceLargest uses the largest audio file, assumed to be the main recording
	SourceLargest SourcePolicy = "largest"
	// SourceFirst uses the first audio file in name order
	SourceFirst SourcePolicy = "first"
)

// Config tunes candidate construction
type Config struct {
	Classifier           *mediainfo.Classifier
	Workers              int
	ShortDurationSeconds int
	SmallFileBytes       int64
	SourcePolicy         SourcePolicy
}

// DefaultConfig returns the stock heuristics
func DefaultConfig() Config {
	return Config{
		Classifier:           mediainfo.DefaultClassifier(),
		Workers:              4,
		ShortDurationSeconds: 600,
		SmallFileBytes:       5 * 1024 * 1024,
		SourcePolicy:         SourceLargest,
	}
}

// AudioFile is an audio entry found in a directory
type AudioFile struct {
	Path string
	Size int64
}

// Builder turns files and folders into book candidates
type Builder struct {
	cfg       Config
	extractor metadata.Extractor
}

// NewBuilder returns a Builder, filling zero config values with defaults
func NewBuilder(extractor metadata.Extractor, cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.Classifier == nil {
		cfg.Classifier = def.Classifier
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SourcePolicy == "" {
		cfg.SourcePolicy = def.SourcePolicy
	}
	return &Builder{cfg: cfg, extractor: extractor}
}

// Classifier returns the classification table in use
func (b *Builder) Classifier() *mediainfo.Classifier {
	return b.cfg.Classifier
}

// FromFile builds a single-file candidate. ok is false when the file is not
// audio.
func (b *Builder) FromFile(file AudioFile) (models.Candidate, bool) {
	if !b.cfg.Classifier.IsAudio(file.Path) {
		return models.Candidate{}, false
	}

	info := b.extractor.Extract(file.Path)
	c := models.Candidate{
		Path:           file.Path,
		MetadataSource: file.Path,
		Selected:       true,
	}
	c.Kind = models.KindSingleFile
	c.TotalSizeBytes = file.Size
	c.FileCount = 1
	c.DurationSeconds = info.DurationSeconds
	c.HasEmbeddedCover = info.HasCover
	applyNames(&c, info, matcher.InferFromPath(file.Path, true), filepath.Base(file.Path))

	if c.DurationSeconds != nil && *c.DurationSeconds < b.cfg.ShortDurationSeconds {
		c.AddWarning("short duration (%ds); may not be an audiobook", *c.DurationSeconds)
	}
	if b.cfg.SmallFileBytes > 0 && file.Size < b.cfg.SmallFileBytes {
		c.AddWarning("small file (%d bytes); may not be an audiobook", file.Size)
	}
	return c, true
}

// FromFolder builds one folder candidate from the audio files of dir.
// files must be in name order.
func (b *Builder) FromFolder(dir string, files []AudioFile) models.Candidate {
	c := models.Candidate{Path: dir, Selected: true}
	c.Kind = models.KindFolder
	c.FileCount = len(files)
	for _, f := range files {
		c.TotalSizeBytes += f.Size
	}
	if len(files) == 0 {
		applyNames(&c, metadata.TagInfo{}, matcher.InferFromPath(dir, false), filepath.Base(dir))
		return c
	}

	var preferred []AudioFile
	for _, f := range files {
		if b.cfg.Classifier.IsPreferred(f.Path) {
			preferred = append(preferred, f)
		}
	}

	var source metadata.TagInfo
	switch {
	case len(preferred) > 1:
		infos := b.extractAll(preferred)
		source = infos[0]
		c.MetadataSource = preferred[0].Path
		c.DurationSeconds = sumDurations(infos)
		c.AmbiguousMultiPart = true
		c.UserDecision = models.DecisionUnset
		for _, p := range preferred {
			c.PartPaths = append(c.PartPaths, p.Path)
		}
		c.PartCount = len(preferred)
		c.AddWarning("folder holds %d %s files; decide single or multiple books before commit",
			len(preferred), filepath.Ext(preferred[0].Path))

	case len(preferred) == 1:
		source = b.extractor.Extract(preferred[0].Path)
		c.MetadataSource = preferred[0].Path
		c.DurationSeconds = source.DurationSeconds
		if c.DurationSeconds == nil && len(files) > 1 {
			var others []AudioFile
			for _, f := range files {
				if f.Path != preferred[0].Path {
					others = append(others, f)
				}
			}
			c.DurationSeconds = sumDurations(b.extractAll(others))
		}

	default:
		infos := b.extractAll(files)
		idx := b.pickSource(files)
		source = infos[idx]
		c.MetadataSource = files[idx].Path
		c.DurationSeconds = sumDurations(infos)
	}

	c.HasEmbeddedCover = source.HasCover
	applyNames(&c, source, matcher.InferFromPath(dir, false), filepath.Base(dir))
	return c
}

// pickSource returns the index of the metadata source among files
func (b *Builder) pickSource(files []AudioFile) int {
	if b.cfg.SourcePolicy == SourceFirst {
		return 0
	}
	best := 0
	for i, f := range files {
		if f.Size > files[best].Size {
			best = i
		}
	}
	return best
}

// extractAll runs the extractor over files with bounded parallelism.
// Results keep the order of files.
func (b *Builder) extractAll(files []AudioFile) []metadata.TagInfo {
	infos := make([]metadata.TagInfo, len(files))
	if b.cfg.Workers <= 1 || len(files) <= 1 {
		for i, f := range files {
			infos[i] = b.extractor.Extract(f.Path)
		}
		return infos
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, b.cfg.Workers)
	for i, f := range files {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release
			infos[idx] = b.extractor.Extract(path)
		}(i, f.Path)
	}
	wg.Wait()
	return infos
}

// sumDurations adds the known durations; nil when none is known
func sumDurations(infos []metadata.TagInfo) *int {
	var total int
	known := false
	for _, info := range infos {
		if info.DurationSeconds != nil {
			total += *info.DurationSeconds
			known = true
		}
	}
	if !known {
		return nil
	}
	return &total
}

// applyNames resolves title, author, narrator and series. Tag values win;
// inferred series and position apply only when tags carry no series.
func applyNames(c *models.Candidate, info metadata.TagInfo, inferred matcher.Inference, rawName string) {
	c.Title = models.FirstNonEmpty(info.Title, models.NullableString(inferred.Title), models.NullableString(rawName))
	c.Author = info.Author
	c.Narrator = info.Narrator

	if info.Series != nil {
		c.Series = info.Series
		c.SeriesPosition = info.SeriesPosition
	} else if inferred.HasSeries() {
		c.Series = inferred.Series
		c.SeriesPosition = inferred.Position
		log.Printf("[DEBUG] scanner: inferred series %q for %s", *inferred.Series, c.Path)
	}
}

