// file: internal/mediainfo/classify.go
// version: 1.0.0
// guid: ccc2625f-e74a-4cea-99e8-cf0fd40a99d2

package mediainfo

import (
	"path/filepath"
	"strings"
)

// Class is the result of classifying a file name by extension
type Class int

const (
	// ClassNone is not an audio file
	ClassNone Class = iota
	// ClassAudio is a generic audio file
	ClassAudio
	// ClassPreferred is the canonical single-file audiobook container
	ClassPreferred
)

// DefaultAudioExtensions are recognized audio containers
var DefaultAudioExtensions = []string{".mp3", ".m4a", ".m4b", ".flac", ".ogg", ".opus", ".wma", ".aac"}

// DefaultPreferredExtensions trigger the single-file / ambiguous logic
var DefaultPreferredExtensions = []string{".m4b"}

// Classifier maps file extensions to a Class
type Classifier struct {
	audio     map[string]bool
	preferred map[string]bool
}

// NewClassifier builds a classifier. Preferred extensions are always
// treated as audio too. Extensions may be given with or without the dot.
func NewClassifier(audio, preferred []string) *Classifier {
	c := &Classifier{
		audio:     make(map[string]bool),
		preferred: make(map[string]bool),
	}
	for _, ext := range audio {
		if n := normalizeExt(ext); n != "" {
			c.audio[n] = true
		}
	}
	for _, ext := range preferred {
		if n := normalizeExt(ext); n != "" {
			c.preferred[n] = true
			c.audio[n] = true
		}
	}
	return c
}

// DefaultClassifier uses the default extension tables
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultAudioExtensions, DefaultPreferredExtensions)
}

// Classify returns the class of name based on its extension
func (c *Classifier) Classify(name string) Class {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case c.preferred[ext]:
		return ClassPreferred
	case c.audio[ext]:
		return ClassAudio
	default:
		return ClassNone
	}
}

// IsAudio reports whether name is any recognized audio file
func (c *Classifier) IsAudio(name string) bool {
	return c.Classify(name) != ClassNone
}

// IsPreferred reports whether name is a preferred audiobook container
func (c *Classifier) IsPreferred(name string) bool {
	return c.Classify(name) == ClassPreferred
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
