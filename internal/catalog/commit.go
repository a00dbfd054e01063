// file: internal/catalog/commit.go
// version: 1.0.0
// guid: 0ecf6458-e6dd-444d-b8ad-19232ad585af

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/covers"
	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/metadata"
	"github.com/jdfalk/audiobook-catalog/internal/metrics"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/jdfalk/audiobook-catalog/internal/scanner"
)

// ErrPendingDecision marks a commit rejected because of undecided candidates
var ErrPendingDecision = errors.New("ambiguous candidates need a decision before commit")

// PendingDecisionError lists the candidates that blocked a commit
type PendingDecisionError struct {
	Paths []string
}

func (e *PendingDecisionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrPendingDecision, strings.Join(e.Paths, ", "))
}

func (e *PendingDecisionError) Unwrap() error {
	return ErrPendingDecision
}

// Action is what happened to one committed item
type Action string

const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	ActionError    Action = "error"
)

// ItemResult is the outcome for one committed path
type ItemResult struct {
	Path           string `json:"path"`
	Action         Action `json:"action"`
	RecordID       string `json:"record_id,omitempty"`
	CoverExtracted bool   `json:"cover_extracted,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Summary is the structured result of a commit
type Summary struct {
	Inserted        int          `json:"inserted"`
	Updated         int          `json:"updated"`
	Errors          int          `json:"errors"`
	Skipped         int          `json:"skipped"`
	CoversExtracted int          `json:"covers_extracted"`
	CoverErrors     int          `json:"cover_errors"`
	MissingCount    int          `json:"missing_count"`
	Items           []ItemResult `json:"items"`
}

// Options controls a commit
type Options struct {
	// FullRescan marks every record under Root that the batch does not
	// mention as missing from source.
	FullRescan bool
	Root       string
}

// PartBuilder builds single-file candidates for expanded multi-part folders
type PartBuilder interface {
	FromFile(file scanner.AudioFile) (models.Candidate, bool)
}

// Committer reconciles reviewed candidates into the record store
type Committer struct {
	store  database.Store
	parts  PartBuilder
	reader metadata.CoverReader
	writer covers.Writer
}

// NewCommitter wires a committer. reader and writer may be nil, which
// disables cover extraction.
func NewCommitter(store database.Store, parts PartBuilder, reader metadata.CoverReader, writer covers.Writer) *Committer {
	return &Committer{store: store, parts: parts, reader: reader, writer: writer}
}

// CheckPending returns a PendingDecisionError when any selected candidate
// is ambiguous and undecided.
func CheckPending(candidates []models.Candidate) error {
	var pending []string
	for i := range candidates {
		if candidates[i].Selected && candidates[i].NeedsDecision() {
			pending = append(pending, candidates[i].Path)
		}
	}
	if len(pending) > 0 {
		return &PendingDecisionError{Paths: pending}
	}
	return nil
}

// Commit writes the selected candidates. The whole batch is rejected with a
// PendingDecisionError before any write when a decision is missing. Per-item
// failures are reported in the summary. A cancelled ctx stops between items
// and returns the partial summary with the context error.
func (c *Committer) Commit(ctx context.Context, candidates []models.Candidate, opts Options) (*Summary, error) {
	if err := CheckPending(candidates); err != nil {
		return nil, err
	}

	start := time.Now()
	metrics.IncOperationStarted("commit")
	summary := &Summary{}
	present := make(map[string]bool)

	for i := range candidates {
		select {
		case <-ctx.Done():
			metrics.IncOperationFailed("commit")
			return summary, ctx.Err()
		default:
		}

		cand := candidates[i]
		if !cand.Selected {
			summary.Skipped++
			present[cand.Path] = true
			continue
		}

		if cand.AmbiguousMultiPart && cand.UserDecision == models.DecisionMultiple {
			for _, part := range c.expand(cand, summary) {
				present[part.Path] = true
				c.commitOne(part, summary)
			}
			continue
		}

		present[cand.Path] = true
		c.commitOne(cand, summary)
	}

	if opts.FullRescan {
		n, err := c.markMissing(present, opts.Root)
		if err != nil {
			metrics.IncOperationFailed("commit")
			return summary, fmt.Errorf("failed to mark missing records: %w", err)
		}
		summary.MissingCount = n
	}

	metrics.ObserveOperationDuration("commit", time.Since(start))
	metrics.IncOperationCompleted("commit")
	log.Printf("[INFO] catalog: commit inserted=%d updated=%d errors=%d skipped=%d covers=%d missing=%d",
		summary.Inserted, summary.Updated, summary.Errors, summary.Skipped,
		summary.CoversExtracted, summary.MissingCount)
	return summary, nil
}

// expand turns a multi-part folder into one single-file candidate per part.
// Parts keep their own tags and inherit author and series from the folder
// only when they have none.
func (c *Committer) expand(parent models.Candidate, summary *Summary) []models.Candidate {
	var parts []models.Candidate
	for _, path := range parent.PartPaths {
		info, err := os.Stat(path)
		if err != nil {
			c.recordError(summary, path, fmt.Errorf("cannot stat part: %w", err))
			continue
		}
		part, ok := c.parts.FromFile(scanner.AudioFile{Path: path, Size: info.Size()})
		if !ok {
			c.recordError(summary, path, fmt.Errorf("part is not an audio file"))
			continue
		}
		if part.Author == nil {
			part.Author = parent.Author
		}
		if part.Series == nil {
			part.Series = parent.Series
			part.SeriesPosition = parent.SeriesPosition
		}
		part.Selected = true
		parts = append(parts, part)
	}
	return parts
}

func (c *Committer) commitOne(cand models.Candidate, summary *Summary) {
	fields := cand.Descriptive
	existing, err := c.store.GetByPath(cand.Path)
	if err != nil {
		c.recordError(summary, cand.Path, fmt.Errorf("lookup failed: %w", err))
		return
	}
	if existing != nil {
		fields = MergeDescriptive(existing.Descriptive, fields, existing.Source == models.SourceManual)
	}

	res, err := c.store.Upsert(cand.Path, fields)
	if err != nil {
		c.recordError(summary, cand.Path, fmt.Errorf("upsert failed: %w", err))
		return
	}

	item := ItemResult{Path: cand.Path, RecordID: res.ID, Action: ActionUpdated}
	if res.WasInsert {
		item.Action = ActionInserted
		summary.Inserted++
	} else {
		summary.Updated++
	}
	metrics.IncCommitItem(string(item.Action))

	if fields.HasEmbeddedCover && cand.MetadataSource != "" && c.reader != nil && c.writer != nil {
		if err := c.extractCover(res.ID, cand.MetadataSource); err != nil {
			log.Printf("[WARN] catalog: cover extraction failed for %s: %v", cand.Path, err)
			summary.CoverErrors++
			metrics.IncCoverExtraction(false)
		} else {
			item.CoverExtracted = true
			summary.CoversExtracted++
			metrics.IncCoverExtraction(true)
		}
	}
	summary.Items = append(summary.Items, item)
}

func (c *Committer) extractCover(recordID, source string) error {
	data, err := c.reader.ReadCover(source)
	if err != nil {
		return err
	}
	rel, err := c.writer.WriteCover(recordID, data)
	if err != nil {
		return err
	}
	return c.store.SetCoverPath(recordID, rel)
}

func (c *Committer) recordError(summary *Summary, path string, err error) {
	log.Printf("[ERROR] catalog: %s: %v", path, err)
	summary.Errors++
	summary.Items = append(summary.Items, ItemResult{Path: path, Action: ActionError, Error: err.Error()})
	metrics.IncCommitItem(string(ActionError))
}

// markMissing flags records under root absent from present. Records outside
// root were not part of this scan and keep their flag.
func (c *Committer) markMissing(present map[string]bool, root string) (int, error) {
	outsideMissing := 0
	if root != "" {
		all, err := c.store.GetAll()
		if err != nil {
			return 0, err
		}
		for _, rec := range all {
			if underRoot(rec.Path, root) {
				continue
			}
			present[rec.Path] = !rec.MissingFromSource
			if rec.MissingFromSource {
				outsideMissing++
			}
		}
	}
	n, err := c.store.MarkMissing(present)
	if err != nil {
		return 0, err
	}
	return n - outsideMissing, nil
}

// underRoot reports whether path is root or lies below it
func underRoot(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
