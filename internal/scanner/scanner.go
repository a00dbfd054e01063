// file: internal/scanner/scanner.go
// version: 2.0.0
// guid: e0c8412d-cbac-4d29-8bc9-ab5222929f75

package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/metadata"
	"github.com/jdfalk/audiobook-catalog/internal/metrics"
	"github.com/jdfalk/audiobook-catalog/internal/models"
)

// ErrInvalidRoot is returned when the scan root is missing or not a directory
var ErrInvalidRoot = errors.New("invalid scan root")

// Options controls a single walk
type Options struct {
	Recursive bool
	// MaxDepth bounds descent below the root (depth 0). Negative means no limit.
	MaxDepth int
	// SplitRootFiles makes a root holding only preferred-format files yield
	// one single-file candidate per file instead of one ambiguous folder.
	SplitRootFiles bool
}

// DefaultOptions walks recursively down to depth 8
func DefaultOptions() Options {
	return Options{Recursive: true, MaxDepth: 8}
}

// Result is the outcome of a scan. Warnings never block a commit.
type Result struct {
	Root               string             `json:"root"`
	Candidates         []models.Candidate `json:"candidates"`
	ScannedDirectories int                `json:"scanned_directories"`
	Warnings           []string           `json:"warnings"`
}

func (r *Result) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[WARN] scanner: %s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// PendingDecisions counts candidates that still need a reviewer decision
func (r *Result) PendingDecisions() int {
	n := 0
	for i := range r.Candidates {
		if r.Candidates[i].NeedsDecision() {
			n++
		}
	}
	return n
}

// Scanner walks a library root and builds candidates
type Scanner struct {
	builder *Builder

	// OnDirectory, when set, is called before each directory is read
	OnDirectory func(path string, depth int)
}

// New returns a Scanner using extractor for tags
func New(extractor metadata.Extractor, cfg Config) *Scanner {
	return &Scanner{builder: NewBuilder(extractor, cfg)}
}

// Builder exposes the candidate builder, used by commit to expand parts
func (s *Scanner) Builder() *Builder {
	return s.builder
}

type dirEntry struct {
	path  string
	depth int
}

// Scan walks root depth-first in name order. Per-directory failures become
// warnings. When ctx is cancelled the accumulated result is returned along
// with the context error.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	start := time.Now()
	metrics.IncOperationStarted("scan")
	res := &Result{Root: root}
	defer func() {
		metrics.AddScannedDirectories(res.ScannedDirectories)
		metrics.AddScanWarnings(len(res.Warnings))
		for i := range res.Candidates {
			metrics.IncCandidates(string(res.Candidates[i].Kind))
		}
		metrics.ObserveOperationDuration("scan", time.Since(start))
	}()
	stack := []dirEntry{{path: root, depth: 0}}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			res.warn("scan interrupted: %v", ctx.Err())
			metrics.IncOperationFailed("scan")
			return res, ctx.Err()
		default:
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if opts.MaxDepth >= 0 && current.depth > opts.MaxDepth {
			res.warn("max depth %d reached at %s; not descending", opts.MaxDepth, current.path)
			continue
		}

		if s.OnDirectory != nil {
			s.OnDirectory(current.path, current.depth)
		}

		subdirs, files, err := s.readDir(current.path)
		if err != nil {
			res.warn("cannot read directory %s: %v", current.path, err)
			continue
		}
		res.ScannedDirectories++

		var audio, preferred []AudioFile
		classifier := s.builder.Classifier()
		for _, f := range files {
			if !classifier.IsAudio(f.Path) {
				continue
			}
			audio = append(audio, f)
			if classifier.IsPreferred(f.Path) {
				preferred = append(preferred, f)
			}
		}

		switch {
		case len(subdirs) > 0 && opts.Recursive:
			// Push in reverse so the stack pops in name order
			for i := len(subdirs) - 1; i >= 0; i-- {
				stack = append(stack, dirEntry{path: subdirs[i], depth: current.depth + 1})
			}
			s.addSingles(res, preferred)
			if loose := len(audio) - len(preferred); loose > 0 {
				res.warn("%d loose audio files in %s ignored because it has subdirectories", loose, current.path)
			}

		case opts.SplitRootFiles && current.depth == 0 && len(preferred) > 0 && len(preferred) == len(audio):
			s.addSingles(res, preferred)

		case len(audio) > 0:
			res.Candidates = append(res.Candidates, s.builder.FromFolder(current.path, audio))
		}
	}

	metrics.IncOperationCompleted("scan")
	log.Printf("[INFO] scanner: %s: %d candidates from %d directories (%d warnings)",
		root, len(res.Candidates), res.ScannedDirectories, len(res.Warnings))
	return res, nil
}

func (s *Scanner) addSingles(res *Result, files []AudioFile) {
	for _, f := range files {
		if c, ok := s.builder.FromFile(f); ok {
			res.Candidates = append(res.Candidates, c)
		}
	}
}

// readDir returns subdirectories and regular files of dir in name order.
// Symlinks are not followed.
func (s *Scanner) readDir(dir string) ([]string, []AudioFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var subdirs []string
	var files []AudioFile
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		switch {
		case entry.IsDir():
			subdirs = append(subdirs, path)
		case entry.Type().IsRegular():
			info, err := entry.Info()
			if err != nil {
				log.Printf("[WARN] scanner: cannot stat %s: %v", path, err)
				continue
			}
			files = append(files, AudioFile{Path: path, Size: info.Size()})
		}
	}
	return subdirs, files, nil
}
