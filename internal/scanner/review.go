// file: internal/scanner/review.go
// version: 1.1.0
// guid: cc0f79b6-3ae7-4172-bf75-94e5108f2618

package scanner

import (
	"fmt"
	"os"
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/fileops"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"gopkg.in/yaml.v3"
)

// reviewFile is the on-disk shape of a scan awaiting human review. Reviewers
// edit selected and user_decision, then hand the file to commit.
type reviewFile struct {
	Root               string             `yaml:"root"`
	GeneratedAt        time.Time          `yaml:"generated_at"`
	ScannedDirectories int                `yaml:"scanned_directories"`
	Warnings           []string           `yaml:"warnings,omitempty"`
	Candidates         []models.Candidate `yaml:"candidates"`
}

// WriteReview saves res as a YAML review file at path. The file is replaced
// atomically so an interrupted write leaves the previous review intact.
func WriteReview(path string, res *Result) error {
	doc := reviewFile{
		Root:               res.Root,
		GeneratedAt:        time.Now().UTC().Truncate(time.Second),
		ScannedDirectories: res.ScannedDirectories,
		Warnings:           res.Warnings,
		Candidates:         res.Candidates,
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode review file: %w", err)
	}
	if err := fileops.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write review file: %w", err)
	}
	return nil
}

// ReadReview loads a review file written by WriteReview, possibly edited
func ReadReview(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read review file: %w", err)
	}
	var doc reviewFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse review file %s: %w", path, err)
	}
	for i := range doc.Candidates {
		if doc.Candidates[i].UserDecision == "" {
			doc.Candidates[i].UserDecision = models.DecisionUnset
		}
	}
	return &Result{
		Root:               doc.Root,
		Candidates:         doc.Candidates,
		ScannedDirectories: doc.ScannedDirectories,
		Warnings:           doc.Warnings,
	}, nil
}
