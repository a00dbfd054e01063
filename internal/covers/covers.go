// file: internal/covers/covers.go
// version: 1.0.0
// guid: 400ca2c3-6725-4a4c-aeda-ce9e8d003d63

package covers

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jdfalk/audiobook-catalog/internal/fileops"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrCoverWrite wraps every failure to normalize or persist a cover
var ErrCoverWrite = errors.New("cover write failed")

// Writer stores a cover image for a record and returns its path relative to
// the cover root.
type Writer interface {
	WriteCover(recordID string, data []byte) (string, error)
}

// FileWriter writes normalized JPEG covers to <Dir>/covers/<id>.jpg
type FileWriter struct {
	Dir     string
	MaxEdge int
	Quality int
}

// NewFileWriter returns a writer rooted at dir with 800px / q85 defaults
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{Dir: dir, MaxEdge: 800, Quality: 85}
}

// RelativePath is where the cover of recordID lands, relative to Dir
func RelativePath(recordID string) string {
	return "covers/" + recordID + ".jpg"
}

func (w *FileWriter) WriteCover(recordID string, data []byte) (string, error) {
	if recordID == "" {
		return "", fmt.Errorf("%w: empty record id", ErrCoverWrite)
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: unexpected content type %s", ErrCoverWrite, mtype.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrCoverWrite, err)
	}
	img = w.downscale(img)

	var buf bytes.Buffer
	quality := w.Quality
	if quality <= 0 {
		quality = 85
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("%w: encode: %v", ErrCoverWrite, err)
	}

	rel := RelativePath(recordID)
	dest := filepath.Join(w.Dir, filepath.FromSlash(rel))
	if err := fileops.WriteFileAtomic(dest, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCoverWrite, err)
	}
	return rel, nil
}

// downscale fits img within MaxEdge on its longest side, keeping the aspect
func (w *FileWriter) downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if w.MaxEdge <= 0 || longest <= w.MaxEdge {
		return img
	}

	ratio := float64(w.MaxEdge) / float64(longest)
	newWidth := max(1, int(float64(width)*ratio))
	newHeight := max(1, int(float64(height)*ratio))
	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}
