package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{
		"same": FormatSame,
		"MP4":  FormatMP4,
		"webm": FormatWebM,
		" mkv": FormatMKV,
		"mov":  FormatMOV,
		"":     FormatSame,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("avi")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "mkv", FormatSame.Extension("/tmp/show.mkv"))
	assert.Equal(t, "mp4", FormatSame.Extension("/tmp/noext"))
	assert.Equal(t, "webm", FormatWebM.Extension("/tmp/show.mkv"))
}

func TestCodecArgs(t *testing.T) {
	assert.Equal(t, []string{"-c:v", "h264", "-c:a", "aac"}, CodecArgs(".mp4"))
	assert.Equal(t, []string{"-c:v", "h264", "-c:a", "aac"}, CodecArgs("MOV"))
	assert.Equal(t, []string{"-c", "copy"}, CodecArgs(".webm"))
	assert.Equal(t, []string{"-c", "copy"}, CodecArgs("mkv"))
}

func TestSegmentFileName(t *testing.T) {
	assert.Equal(t, "show-commercial-0.mp4", SegmentFileName("/videos/show.ts", "commercial", 0, "mp4"))
	assert.Equal(t, "news.1990-station_id-3.mkv", SegmentFileName("news.1990.mkv", "station_id", 3, "mkv"))
}

func TestParseFilters(t *testing.T) {
	names := parseFilters(filtersOutput)
	assert.True(t, names["blackdetect"])
	assert.True(t, names["select"])
	assert.True(t, names["showinfo"])
	assert.False(t, names["="])
}
