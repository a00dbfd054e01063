// file: internal/mediainfo/taglib_support.go
// version: 2.0.0
// guid: b1ee145c-d9cf-4daf-856a-851be7c006ba

package mediainfo

import (
	"fmt"
	"path/filepath"

	taglib "go.senan.xyz/taglib"
)

func durationWithTaglib(filePath string) (int, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return 0, err
	}
	props, err := taglib.ReadProperties(abs)
	if err != nil {
		return 0, fmt.Errorf("taglib read properties: %w", err)
	}
	if props.Length <= 0 {
		return 0, ErrDurationUnavailable
	}
	return int(props.Length.Seconds()), nil
}
