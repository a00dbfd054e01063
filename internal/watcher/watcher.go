// file: internal/watcher/watcher.go
// version: 3.0.0
// guid: d472b194-8221-4c14-87b4-dd8417d8ea55

package watcher

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jdfalk/audiobook-catalog/internal/mediainfo"
)

// DefaultDebounce is the default debounce period.
const DefaultDebounce = 5 * time.Second

// Callback is invoked after the debounce period with the root directory.
type Callback func(rootDir string)

// Watcher monitors a library tree for audio file changes. Once events
// settle for the debounce period it marks the catalog stale and invokes
// the optional callback. The flag stays set until MarkFresh.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	classifier *mediainfo.Classifier
	rootDir    string
	debounce   time.Duration
	callback   Callback
	stop       chan struct{}
	stopped    chan struct{}

	mu         sync.Mutex
	timer      *time.Timer
	running    bool
	stale      bool
	lastChange time.Time
}

// New creates a Watcher. A nil classifier uses the default extension
// tables. Pass 0 for debounce to use DefaultDebounce.
func New(classifier *mediainfo.Classifier, callback Callback, debounce time.Duration) *Watcher {
	if classifier == nil {
		classifier = mediainfo.DefaultClassifier()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		classifier: classifier,
		debounce:   debounce,
		callback:   callback,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start begins watching rootDir recursively. It is safe to call only once.
func (w *Watcher) Start(rootDir string) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsWatcher = fsw
	w.rootDir = rootDir

	if err := w.addRecursive(rootDir); err != nil {
		fsw.Close()
		return err
	}

	log.Printf("[INFO] watcher: watching %s", rootDir)
	go w.eventLoop()
	return nil
}

// Stop shuts down the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stop)
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	<-w.stopped

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

// Stale reports whether audio changed since the last MarkFresh, and when
// the most recent settled change happened.
func (w *Watcher) Stale() (bool, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stale, w.lastChange
}

// MarkFresh clears the stale flag, typically after a commit
func (w *Watcher) MarkFresh() {
	w.mu.Lock()
	w.stale = false
	w.mu.Unlock()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if d.IsDir() {
			if watchErr := w.fsWatcher.Add(path); watchErr != nil {
				log.Printf("[WARN] watcher: cannot watch %s: %v", path, watchErr)
			}
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[ERROR] watcher: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
		}
	}

	relevant := event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0
	if !relevant || !w.classifier.IsAudio(event.Name) {
		return
	}

	log.Printf("[DEBUG] watcher: %s %s", event.Op, event.Name)
	w.scheduleSettle()
}

func (w *Watcher) scheduleSettle() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.stale = true
		w.lastChange = time.Now()
		w.mu.Unlock()

		log.Printf("[INFO] watcher: audio under %s changed, catalog is stale", w.rootDir)
		if w.callback != nil {
			w.callback(w.rootDir)
		}
	})
}
