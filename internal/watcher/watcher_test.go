// file: internal/watcher/watcher_test.go
// version: 2.0.0
// guid: c0b30341-4058-49a7-9b4d-641bd47afeb4

package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/mediainfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string, classifier *mediainfo.Classifier, debounce time.Duration) (*Watcher, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	w := New(classifier, func(string) { calls.Add(1) }, debounce)
	require.NoError(t, w.Start(dir))
	t.Cleanup(w.Stop)
	return w, &calls
}

func TestDebounceSingleEvent(t *testing.T) {
	dir := t.TempDir()
	w, calls := startWatcher(t, dir, nil, 100*time.Millisecond)

	stale, _ := w.Stale()
	assert.False(t, stale)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.mp3"), []byte("data"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	stale, when := w.Stale()
	assert.True(t, stale)
	assert.False(t, when.IsZero())

	w.MarkFresh()
	stale, _ = w.Stale()
	assert.False(t, stale)
}

func TestDebounceMultipleEvents(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir, nil, 200*time.Millisecond)

	for i := 0; i < 5; i++ {
		f := filepath.Join(dir, "test"+string(rune('a'+i))+".m4b")
		_ = os.WriteFile(f, []byte("data"), 0o644)
		time.Sleep(30 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "expected exactly one debounced callback")
}

func TestNonAudioFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	w, calls := startWatcher(t, dir, nil, 100*time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("img"), 0o644)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	stale, _ := w.Stale()
	assert.False(t, stale)
}

func TestConfiguredExtensions(t *testing.T) {
	dir := t.TempDir()
	classifier := mediainfo.NewClassifier([]string{".mka"}, nil)
	_, calls := startWatcher(t, dir, classifier, 100*time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "book.mp3"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load(), "mp3 is not configured")

	_ = os.WriteFile(filepath.Join(dir, "book.mka"), []byte("x"), 0o644)
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestRecursiveWatching(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "author", "book")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	_, calls := startWatcher(t, dir, nil, 100*time.Millisecond)

	_ = os.WriteFile(filepath.Join(subdir, "chapter1.flac"), []byte("audio"), 0o644)
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestDeleteTriggers(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "book.mp3")
	require.NoError(t, os.WriteFile(f, []byte("data"), 0o644))
	_, calls := startWatcher(t, dir, nil, 100*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.Remove(f))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestStartStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New(nil, nil, 100*time.Millisecond)
	require.NoError(t, w.Start(dir))
	require.NoError(t, w.Start(dir))
	w.Stop()
	w.Stop()
}
