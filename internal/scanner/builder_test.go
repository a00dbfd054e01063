// file: internal/scanner/builder_test.go
// version: 1.0.0
// guid: e15b0500-83a4-44d6-a8e2-a2191d0f3b2a

package scanner

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jdfalk/audiobook-catalog/internal/metadata"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor returns canned tags keyed by file base name
type fakeExtractor struct {
	mu    sync.Mutex
	tags  map[string]metadata.TagInfo
	calls []string
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{tags: make(map[string]metadata.TagInfo)}
}

func (f *fakeExtractor) Extract(path string) metadata.TagInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filepath.Base(path))
	return f.tags[filepath.Base(path)]
}

func (f *fakeExtractor) set(name string, info metadata.TagInfo) {
	f.tags[name] = info
}

func str(s string) *string { return &s }

func secs(v int) *int { return &v }

func writeSized(t *testing.T, path string, size int) AudioFile {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return AudioFile{Path: path, Size: int64(size)}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 3
	return cfg
}

func TestFromFileTitleResolution(t *testing.T) {
	dir := t.TempDir()
	fx := newFakeExtractor()
	b := NewBuilder(fx, testConfig())

	tagged := writeSized(t, filepath.Join(dir, "Mistborn - Book 1 - The Final Empire.m4b"), 10)
	fx.set(filepath.Base(tagged.Path), metadata.TagInfo{Title: str("Tagged Title"), Author: str("Brandon Sanderson")})

	c, ok := b.FromFile(tagged)
	require.True(t, ok)
	assert.Equal(t, models.KindSingleFile, c.Kind)
	assert.Equal(t, "Tagged Title", models.Deref(c.Title))
	assert.Equal(t, "Brandon Sanderson", models.Deref(c.Author))
	assert.Equal(t, "Mistborn", models.Deref(c.Series), "inferred series applies when tags have none")
	assert.Equal(t, "1", models.Deref(c.SeriesPosition))
	assert.Equal(t, 1, c.FileCount)
	assert.Equal(t, int64(10), c.TotalSizeBytes)
	assert.True(t, c.Selected)

	untagged := writeSized(t, filepath.Join(dir, "Mistborn - Book 2 - The Well of Ascension.mp3"), 10)
	c, ok = b.FromFile(untagged)
	require.True(t, ok)
	assert.Equal(t, "The Well of Ascension", models.Deref(c.Title))
}

func TestFromFileTagSeriesWins(t *testing.T) {
	dir := t.TempDir()
	fx := newFakeExtractor()
	b := NewBuilder(fx, testConfig())

	f := writeSized(t, filepath.Join(dir, "Other - Book 9 - Name.m4b"), 10)
	fx.set(filepath.Base(f.Path), metadata.TagInfo{Series: str("Real Series")})

	c, _ := b.FromFile(f)
	assert.Equal(t, "Real Series", models.Deref(c.Series))
	assert.Nil(t, c.SeriesPosition, "position never mixes tag series with inferred number")
}

func TestFromFileRejectsNonAudio(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(newFakeExtractor(), testConfig())
	_, ok := b.FromFile(writeSized(t, filepath.Join(dir, "cover.jpg"), 10))
	assert.False(t, ok)
}

func TestFromFileWarnings(t *testing.T) {
	dir := t.TempDir()
	fx := newFakeExtractor()
	cfg := testConfig()
	cfg.SmallFileBytes = 100
	b := NewBuilder(fx, cfg)

	short := writeSized(t, filepath.Join(dir, "short.mp3"), 200)
	fx.set("short.mp3", metadata.TagInfo{DurationSeconds: secs(120)})
	c, _ := b.FromFile(short)
	require.Len(t, c.Warnings, 1)
	assert.Contains(t, c.Warnings[0], "short duration")

	small := writeSized(t, filepath.Join(dir, "small.mp3"), 50)
	fx.set("small.mp3", metadata.TagInfo{DurationSeconds: secs(7200)})
	c, _ = b.FromFile(small)
	require.Len(t, c.Warnings, 1)
	assert.Contains(t, c.Warnings[0], "small file")

	fine := writeSized(t, filepath.Join(dir, "fine.mp3"), 200)
	fx.set("fine.mp3", metadata.TagInfo{DurationSeconds: secs(7200)})
	c, _ = b.FromFile(fine)
	assert.Empty(t, c.Warnings)

	unknown := writeSized(t, filepath.Join(dir, "unknown.mp3"), 200)
	c, _ = b.FromFile(unknown)
	assert.Empty(t, c.Warnings, "unknown duration is not flagged")
}

func TestFromFolderSinglePreferredUsesItsDuration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "The Book")
	fx := newFakeExtractor()
	b := NewBuilder(fx, testConfig())

	files := []AudioFile{
		writeSized(t, filepath.Join(dir, "bonus.mp3"), 100),
		writeSized(t, filepath.Join(dir, "book.m4b"), 1000),
	}
	fx.set("bonus.mp3", metadata.TagInfo{DurationSeconds: secs(60)})
	fx.set("book.m4b", metadata.TagInfo{Title: str("The Book"), DurationSeconds: secs(36000), HasCover: true})

	c := b.FromFolder(dir, files)
	assert.Equal(t, models.KindFolder, c.Kind)
	assert.Equal(t, 36000, *c.DurationSeconds)
	assert.Equal(t, 2, c.FileCount, "companion files still count")
	assert.Equal(t, int64(1100), c.TotalSizeBytes)
	assert.Equal(t, files[1].Path, c.MetadataSource)
	assert.True(t, c.HasEmbeddedCover)
	assert.False(t, c.AmbiguousMultiPart)
	assert.NotContains(t, fx.calls, "bonus.mp3", "companions are only read when the container duration is unknown")
}

func TestFromFolderSinglePreferredFallsBackToSum(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "The Book")
	fx := newFakeExtractor()
	b := NewBuilder(fx, testConfig())

	files := []AudioFile{
		writeSized(t, filepath.Join(dir, "a.mp3"), 100),
		writeSized(t, filepath.Join(dir, "b.mp3"), 100),
		writeSized(t, filepath.Join(dir, "book.m4b"), 1000),
	}
	fx.set("a.mp3", metadata.TagInfo{DurationSeconds: secs(100)})
	fx.set("b.mp3", metadata.TagInfo{DurationSeconds: secs(200)})
	fx.set("book.m4b", metadata.TagInfo{Title: str("The Book")})

	c := b.FromFolder(dir, files)
	require.NotNil(t, c.DurationSeconds)
	assert.Equal(t, 300, *c.DurationSeconds)
	assert.Equal(t, "The Book", models.Deref(c.Title))
}

func TestFromFolderMultiplePreferredIsAmbiguous(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Saga - Book 3 - Omnibus")
	fx := newFakeExtractor()
	b := NewBuilder(fx, testConfig())

	files := []AudioFile{
		writeSized(t, filepath.Join(dir, "part1.m4b"), 10),
		writeSized(t, filepath.Join(dir, "part2.m4b"), 10),
		writeSized(t, filepath.Join(dir, "part3.m4b"), 10),
	}
	fx.set("part1.m4b", metadata.TagInfo{Author: str("First Author"), DurationSeconds: secs(10)})
	fx.set("part2.m4b", metadata.TagInfo{Author: str("Second Author"), DurationSeconds: secs(20)})
	fx.set("part3.m4b", metadata.TagInfo{DurationSeconds: secs(30)})

	c := b.FromFolder(dir, files)
	assert.True(t, c.AmbiguousMultiPart)
	assert.True(t, c.NeedsDecision())
	assert.Equal(t, models.DecisionUnset, c.UserDecision)
	assert.Equal(t, 3, c.PartCount)
	assert.Equal(t, []string{files[0].Path, files[1].Path, files[2].Path}, c.PartPaths)
	assert.Equal(t, 60, *c.DurationSeconds)
	assert.Equal(t, "First Author", models.Deref(c.Author), "preview comes from the first part")
	assert.Equal(t, "Saga", models.Deref(c.Series))
	assert.Equal(t, "Omnibus", models.Deref(c.Title))
	require.Len(t, c.Warnings, 1)
}

// The largest-file rule is a heuristic: the biggest file is assumed to be the
// main recording. SourceFirst switches it off.
func TestFromFolderNoPreferredLargestFileHeuristic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Plain Folder")
	fx := newFakeExtractor()

	files := []AudioFile{
		writeSized(t, filepath.Join(dir, "01.mp3"), 10),
		writeSized(t, filepath.Join(dir, "02.mp3"), 500),
		writeSized(t, filepath.Join(dir, "03.mp3"), 20),
	}
	fx.set("01.mp3", metadata.TagInfo{Title: str("Intro"), DurationSeconds: secs(5)})
	fx.set("02.mp3", metadata.TagInfo{Title: str("Main"), Narrator: str("Kate Reading"), DurationSeconds: secs(500)})
	fx.set("03.mp3", metadata.TagInfo{DurationSeconds: secs(20)})

	c := NewBuilder(fx, testConfig()).FromFolder(dir, files)
	assert.Equal(t, "Main", models.Deref(c.Title))
	assert.Equal(t, "Kate Reading", models.Deref(c.Narrator))
	assert.Equal(t, files[1].Path, c.MetadataSource)
	assert.Equal(t, 525, *c.DurationSeconds)
	assert.Equal(t, 3, c.FileCount)

	cfg := testConfig()
	cfg.SourcePolicy = SourceFirst
	c = NewBuilder(fx, cfg).FromFolder(dir, files)
	assert.Equal(t, "Intro", models.Deref(c.Title))
}

func TestFromFolderUnknownDurationsStayNil(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Standalone Title")
	fx := newFakeExtractor()
	files := []AudioFile{writeSized(t, filepath.Join(dir, "a.mp3"), 10)}

	c := NewBuilder(fx, testConfig()).FromFolder(dir, files)
	assert.Nil(t, c.DurationSeconds)
	assert.Equal(t, "Standalone Title", models.Deref(c.Title))
	assert.Nil(t, c.Series)
}
