// file: internal/mediainfo/mediainfo_test.go
// version: 2.0.0
// guid: 0a155b26-b1a0-46d2-bb8f-2a4563f3f979

package mediainfo

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestClassify(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		name string
		want Class
	}{
		{"book.m4b", ClassPreferred},
		{"BOOK.M4B", ClassPreferred},
		{"track01.mp3", ClassAudio},
		{"chapter.flac", ClassAudio},
		{"part.opus", ClassAudio},
		{"cover.jpg", ClassNone},
		{"notes.txt", ClassNone},
		{"noext", ClassNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.name); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewClassifierNormalizesAndIncludesPreferred(t *testing.T) {
	c := NewClassifier([]string{"MP3", " .ogg "}, []string{"m4b"})

	if !c.IsAudio("a.mp3") || !c.IsAudio("a.ogg") {
		t.Fatalf("expected configured audio extensions to be recognized")
	}
	if !c.IsPreferred("a.m4b") || !c.IsAudio("a.m4b") {
		t.Fatalf("preferred extensions must count as audio")
	}
	if c.IsAudio("a.flac") {
		t.Fatalf("flac was not configured")
	}
}

func TestProbeDurationMP4(t *testing.T) {
	dir := t.TempDir()
	path := createMinimalM4B(t, dir, 1000, 3_600_000)

	secs, err := ProbeDuration(path)
	if err != nil {
		t.Fatalf("ProbeDuration error: %v", err)
	}
	if secs != 3600 {
		t.Fatalf("expected 3600 seconds, got %d", secs)
	}
}

func TestProbeDurationGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.m4b")
	if err := os.WriteFile(path, []byte("not an mp4 at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ProbeDuration(path); err == nil {
		t.Fatalf("expected an error for a broken container")
	}
}

func TestProbeDurationMissingFile(t *testing.T) {
	if _, err := ProbeDuration(filepath.Join(t.TempDir(), "missing.m4b")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestProbeDurationNonMP4(t *testing.T) {
	dir := t.TempDir()
	path := createMinimalWAV(t, dir, 8000, 3)

	secs, err := ProbeDuration(path)
	if err != nil {
		t.Fatalf("ProbeDuration error: %v", err)
	}
	if secs != 3 {
		t.Fatalf("expected 3 seconds, got %d", secs)
	}
}

func TestProbeDurationUnreadableMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ProbeDuration(path); err == nil {
		t.Fatalf("expected an error for an mp3 without audio frames")
	}
}

// createMinimalWAV writes a silent 16-bit mono PCM file of the given length
func createMinimalWAV(t *testing.T, dir string, sampleRate, seconds uint32) string {
	t.Helper()
	path := filepath.Join(dir, "test.wav")

	const channels, bitsPerSample = 1, 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	dataSize := byteRate * seconds

	var buf bytes.Buffer
	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(make([]byte, dataSize))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("Failed to create test WAV: %v", err)
	}
	return path
}

// createMinimalM4B writes ftyp + moov/mvhd with the given timescale and duration
func createMinimalM4B(t *testing.T, dir string, timescale, duration uint32) string {
	t.Helper()
	path := filepath.Join(dir, "test.m4b")

	var buf bytes.Buffer

	// ftyp atom
	binary.Write(&buf, binary.BigEndian, uint32(20))
	buf.Write([]byte("ftyp"))
	buf.Write([]byte("M4B "))
	binary.Write(&buf, binary.BigEndian, uint32(0))
	buf.Write([]byte("M4B "))

	// moov atom
	binary.Write(&buf, binary.BigEndian, uint32(8+108))
	buf.Write([]byte("moov"))

	// mvhd atom, version 0
	binary.Write(&buf, binary.BigEndian, uint32(108))
	buf.Write([]byte("mvhd"))
	buf.Write([]byte{0, 0, 0, 0})                            // version + flags
	binary.Write(&buf, binary.BigEndian, uint32(0))          // creation time
	binary.Write(&buf, binary.BigEndian, uint32(0))          // modification time
	binary.Write(&buf, binary.BigEndian, timescale)          // timescale
	binary.Write(&buf, binary.BigEndian, duration)           // duration
	binary.Write(&buf, binary.BigEndian, uint32(0x00010000)) // rate 1.0
	binary.Write(&buf, binary.BigEndian, uint16(0x0100))     // volume 1.0
	buf.Write(make([]byte, 2+8))                             // reserved
	buf.Write(make([]byte, 36))                              // matrix
	buf.Write(make([]byte, 24))                              // pre-defined
	binary.Write(&buf, binary.BigEndian, uint32(2))          // next track id

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("Failed to create test M4B: %v", err)
	}
	return path
}
