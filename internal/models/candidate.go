// file: internal/models/candidate.go
// version: 1.0.0
// guid: 6cb67125-9890-4e84-a455-f51d4b40dca4

package models

import (
	"fmt"
	"strings"
)

// Decision is the reviewer's answer for an ambiguous multi-part folder
type Decision string

const (
	DecisionUnset    Decision = "unset"
	DecisionSingle   Decision = "single"
	DecisionMultiple Decision = "multiple"
)

// IsSet reports whether the reviewer made a terminal choice.
// The zero value counts as unset.
func (d Decision) IsSet() bool {
	return d == DecisionSingle || d == DecisionMultiple
}

// ParseDecision accepts the canonical names plus a few spellings reviewers
// tend to type into the review file.
func ParseDecision(s string) (Decision, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "unset", "undecided":
		return DecisionUnset, nil
	case "single", "single_book", "treat_as_single_book":
		return DecisionSingle, nil
	case "multiple", "multiple_books", "treat_as_multiple_books":
		return DecisionMultiple, nil
	}
	return DecisionUnset, fmt.Errorf("invalid decision %q (expected unset, single or multiple)", s)
}

// UnmarshalText lets review files use any accepted spelling
func (d *Decision) UnmarshalText(text []byte) error {
	parsed, err := ParseDecision(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Candidate is a transient book found by a scan, never persisted directly
type Candidate struct {
	Path        string `json:"path" yaml:"path"`
	Descriptive `yaml:",inline"`

	// MetadataSource is the file tags were read from; commit reads the
	// embedded cover from it.
	MetadataSource string `json:"metadata_source,omitempty" yaml:"metadata_source,omitempty"`

	AmbiguousMultiPart bool     `json:"ambiguous_multi_part" yaml:"ambiguous_multi_part"`
	PartPaths          []string `json:"part_paths,omitempty" yaml:"part_paths,omitempty"`
	PartCount          int      `json:"part_count,omitempty" yaml:"part_count,omitempty"`
	UserDecision       Decision `json:"user_decision" yaml:"user_decision"`

	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Selected bool     `json:"selected" yaml:"selected"`
}

// NeedsDecision reports whether this candidate would block a commit
func (c *Candidate) NeedsDecision() bool {
	return c.AmbiguousMultiPart && !c.UserDecision.IsSet()
}

// AddWarning appends an advisory message
func (c *Candidate) AddWarning(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}
