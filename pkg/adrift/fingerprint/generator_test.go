package fingerprint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/adrift/pkg/models"
)

type fakeTranscoder struct {
	frame    []byte
	audio    []byte
	frameErr error
	audioErr error
	calls    int
}

func (f *fakeTranscoder) ExtractFrame(ctx context.Context, video string, start, end float64) ([]byte, error) {
	f.calls++
	return f.frame, f.frameErr
}

func (f *fakeTranscoder) ExtractAudio(ctx context.Context, video string, start, end float64) ([]byte, error) {
	f.calls++
	return f.audio, f.audioErr
}

func TestGenerate(t *testing.T) {
	tc := &fakeTranscoder{frame: []byte{1, 2, 3}, audio: []byte{4, 5, 6, 7}}
	g := NewGenerator(tc)

	fp, err := g.Generate(context.Background(), "in.ts", 10.1, 40.05)
	require.NoError(t, err)
	assert.InDelta(t, 29.95, fp.Duration, 1e-9)
	assert.Equal(t, Digest([]byte{1, 2, 3}, NoVideoSentinel), fp.VideoHash)
	assert.Equal(t, Digest([]byte{4, 5, 6, 7}, NoAudioSentinel), fp.AudioHash)
	assert.Equal(t, 2, tc.calls)
}

func TestGenerateEmptyPayloadsAreStable(t *testing.T) {
	g := NewGenerator(&fakeTranscoder{})

	a, err := g.Generate(context.Background(), "in.ts", 0, 15)
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), "other.ts", 100, 115)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, Digest(nil, NoAudioSentinel), a.AudioHash)
	assert.Equal(t, Digest(nil, NoVideoSentinel), a.VideoHash)
}

func TestGenerateTranscoderFailure(t *testing.T) {
	boom := errors.New("exit status 1")

	_, err := NewGenerator(&fakeTranscoder{frameErr: boom}).Generate(context.Background(), "in.ts", 0, 15)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtract)
	assert.ErrorIs(t, err, boom)

	_, err = NewGenerator(&fakeTranscoder{audioErr: boom}).Generate(context.Background(), "in.ts", 0, 15)
	assert.ErrorIs(t, err, ErrExtract)
}

func TestGenerateRejectsEmptyWindow(t *testing.T) {
	tc := &fakeTranscoder{}
	_, err := NewGenerator(tc).Generate(context.Background(), "in.ts", 5, 5)
	assert.ErrorIs(t, err, ErrExtract)
	assert.Zero(t, tc.calls)
}

func TestCompareSymmetric(t *testing.T) {
	a := models.Fingerprint{Duration: 30, AudioHash: 0xff00, VideoHash: 0x0f0f}
	b := models.Fingerprint{Duration: 29.5, AudioHash: 0xf000, VideoHash: 0x0f00}
	assert.Equal(t, Compare(a, b), Compare(b, a))
	assert.Less(t, Compare(a, b), 1.0)
}
