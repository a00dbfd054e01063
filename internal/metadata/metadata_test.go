// file: internal/metadata/metadata_test.go
// version: 2.0.0
// guid: 1231a456-86e4-42b2-9902-7344dc991f07

package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// id3Frame encodes one ID3v2.3 frame
func id3Frame(id string, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(id)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(body)))
	buf.Write([]byte{0, 0})
	buf.Write(body)
	return buf.Bytes()
}

func textFrame(id, value string) []byte {
	return id3Frame(id, append([]byte{0}, value...))
}

func userTextFrame(desc, value string) []byte {
	body := []byte{0}
	body = append(body, desc...)
	body = append(body, 0)
	body = append(body, value...)
	return id3Frame("TXXX", body)
}

func pictureFrame(data []byte) []byte {
	body := []byte{0}
	body = append(body, "image/jpeg"...)
	body = append(body, 0, 3, 0)
	body = append(body, data...)
	return id3Frame("APIC", body)
}

// writeID3File writes a tag-only mp3 carrying the given frames
func writeID3File(t *testing.T, dir, name string, frames ...[]byte) string {
	t.Helper()
	var payload []byte
	for _, f := range frames {
		payload = append(payload, f...)
	}
	size := len(payload)
	header := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, append(header, payload...), 0o644))
	return path
}

func noDuration(string) (int, error) { return 0, errors.New("no duration") }

func TestExtractReadsTags(t *testing.T) {
	dir := t.TempDir()
	path := writeID3File(t, dir, "book.mp3",
		textFrame("TIT2", "The Final Empire"),
		textFrame("TPE1", "Brandon Sanderson"),
		userTextFrame("NARRATOR", "Michael Kramer"),
		userTextFrame("SERIES", "Mistborn"),
		userTextFrame("SERIES-PART", "1"),
		pictureFrame([]byte{0xff, 0xd8, 0xff, 0xe0}),
	)

	e := &TagExtractor{probeDuration: func(string) (int, error) { return 3600, nil }}
	info := e.Extract(path)

	require.NotNil(t, info.Title)
	assert.Equal(t, "The Final Empire", *info.Title)
	require.NotNil(t, info.Author)
	assert.Equal(t, "Brandon Sanderson", *info.Author)
	require.NotNil(t, info.Narrator)
	assert.Equal(t, "Michael Kramer", *info.Narrator)
	require.NotNil(t, info.Series)
	assert.Equal(t, "Mistborn", *info.Series)
	require.NotNil(t, info.SeriesPosition)
	assert.Equal(t, "1", *info.SeriesPosition)
	require.NotNil(t, info.DurationSeconds)
	assert.Equal(t, 3600, *info.DurationSeconds)
	assert.True(t, info.HasCover)

	data, err := e.ReadCover(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0}, data)
}

func TestExtractFallsBackToComposerForNarrator(t *testing.T) {
	dir := t.TempDir()
	path := writeID3File(t, dir, "book.mp3",
		textFrame("TIT2", "Title"),
		textFrame("TCOM", "Kate Reading"),
	)

	info := (&TagExtractor{probeDuration: noDuration}).Extract(path)
	require.NotNil(t, info.Narrator)
	assert.Equal(t, "Kate Reading", *info.Narrator)
	assert.Nil(t, info.Series)
	assert.Nil(t, info.DurationSeconds)
	assert.False(t, info.HasCover)
}

func TestExtractBlankTagsAreAbsent(t *testing.T) {
	dir := t.TempDir()
	path := writeID3File(t, dir, "book.mp3", textFrame("TIT2", "   "))

	info := (&TagExtractor{probeDuration: noDuration}).Extract(path)
	assert.Nil(t, info.Title)
	assert.Nil(t, info.Author)
}

func TestExtractIgnoresPodcastIdentifier(t *testing.T) {
	dir := t.TempDir()
	path := writeID3File(t, dir, "episode.mp3",
		textFrame("TIT2", "Episode 12"),
		textFrame("TGID", "urn:uuid:4f8c2a1e-podcast"),
	)

	info := (&TagExtractor{probeDuration: noDuration}).Extract(path)
	assert.Nil(t, info.Series)
	assert.Nil(t, info.SeriesPosition)
}

func TestExtractUnreadableFileNeverFails(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.mp3")
	require.NoError(t, os.WriteFile(junk, []byte("not audio at all"), 0o644))

	e := &TagExtractor{probeDuration: noDuration}
	assert.Equal(t, TagInfo{}, e.Extract(junk))
	assert.Equal(t, TagInfo{}, e.Extract(filepath.Join(dir, "missing.mp3")))

	_, err := e.ReadCover(junk)
	assert.Error(t, err)
}

func TestReadCoverWithoutPicture(t *testing.T) {
	dir := t.TempDir()
	path := writeID3File(t, dir, "book.mp3", textFrame("TIT2", "Title"))

	_, err := NewTagExtractor().ReadCover(path)
	assert.Error(t, err)
}
