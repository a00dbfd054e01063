// file: internal/mediainfo/mediainfo.go
// version: 2.0.0
// guid: 9f9464ed-6313-401a-8fed-bc7d9151002c

package mediainfo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gomp4 "github.com/abema/go-mp4"
)

// ErrDurationUnavailable is returned when no prober can read a duration
var ErrDurationUnavailable = errors.New("duration unavailable")

var mp4Family = map[string]bool{
	".m4b": true,
	".m4a": true,
	".mp4": true,
}

// ProbeDuration returns the playing time of an audio file in whole seconds.
// MP4-family containers are read from the movie header; everything else
// goes through taglib.
func ProbeDuration(filePath string) (int, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if mp4Family[ext] {
		return mp4Duration(filePath)
	}
	return durationWithTaglib(filePath)
}

func mp4Duration(filePath string) (int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	boxes, err := gomp4.ExtractBoxWithPayload(f, nil, gomp4.BoxPath{gomp4.BoxTypeMoov(), gomp4.BoxTypeMvhd()})
	if err != nil {
		return 0, fmt.Errorf("failed to read mvhd: %w", err)
	}
	if len(boxes) == 0 {
		return 0, ErrDurationUnavailable
	}

	mvhd, ok := boxes[0].Payload.(*gomp4.Mvhd)
	if !ok || mvhd.Timescale == 0 {
		return 0, ErrDurationUnavailable
	}

	var units uint64
	if mvhd.Version == 0 {
		units = uint64(mvhd.DurationV0)
	} else {
		units = mvhd.DurationV1
	}
	return int(units / uint64(mvhd.Timescale)), nil
}
