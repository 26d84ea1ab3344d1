package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

type OutputFormat string

const (
	FormatSame OutputFormat = "same"
	FormatMP4  OutputFormat = "mp4"
	FormatWebM OutputFormat = "webm"
	FormatMKV  OutputFormat = "mkv"
	FormatMOV  OutputFormat = "mov"
)

func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSame, FormatMP4, FormatWebM, FormatMKV, FormatMOV:
		return f, nil
	case "":
		return FormatSame, nil
	default:
		return "", fmt.Errorf("unsupported format: %s. Supported formats are: same, mp4, webm, mkv, mov", s)
	}
}

// Extension returns the file extension, without the dot, for segments cut
// from input.
func (f OutputFormat) Extension(input string) string {
	if f != FormatSame && f != "" {
		return string(f)
	}
	if ext := strings.TrimPrefix(filepath.Ext(input), "."); ext != "" {
		return ext
	}
	return string(FormatMP4)
}

// CodecArgs returns the codec flags for an output extension: mp4 and mov are
// re-encoded to h264/aac, everything else is stream copied.
func CodecArgs(ext string) []string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp4", "mov":
		return []string{"-c:v", "h264", "-c:a", "aac"}
	default:
		return []string{"-c", "copy"}
	}
}

// SegmentFileName builds "<stem>-<kind>-<index>.<ext>".
func SegmentFileName(input, kind string, index int, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if stem == "" {
		stem = "unknown"
	}
	return fmt.Sprintf("%s-%s-%d.%s", stem, kind, index, ext)
}
