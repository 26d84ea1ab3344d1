package fingerprint

import (
	"math/rand"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
)

func TestDigestEmptyPayloadUsesSentinel(t *testing.T) {
	assert.Equal(t, xxhash.Sum64String(NoVideoSentinel), Digest(nil, NoVideoSentinel))
	assert.Equal(t, xxhash.Sum64String(NoAudioSentinel), Digest([]byte{}, NoAudioSentinel))
	assert.NotEqual(t, Digest(nil, NoVideoSentinel), Digest(nil, NoAudioSentinel))
}

func TestDigestIsStable(t *testing.T) {
	payload := []byte{0, 16, 32, 48, 64, 80, 96, 112}
	assert.Equal(t, Digest(payload, NoVideoSentinel), Digest(append([]byte(nil), payload...), NoVideoSentinel))
	assert.NotEqual(t, Digest(payload, NoVideoSentinel), Digest(payload[1:], NoVideoSentinel))
}

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0.0, HammingDistance(42, 42))
	assert.Equal(t, 1.0, HammingDistance(0, ^uint64(0)))
	assert.Equal(t, 1.0/64, HammingDistance(0b1000, 0))
}

func TestSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(7, 9, 30, 7, 9, 30))
}

func TestSimilarityWeights(t *testing.T) {
	// all audio bits differ, video equal, same duration
	got := Similarity(0, 5, 30, ^uint64(0), 5, 30)
	assert.InDelta(t, 0.6, got, 1e-12)

	// only duration differs: 0.2 * 15/30
	got = Similarity(1, 1, 15, 1, 1, 30)
	assert.InDelta(t, 0.9, got, 1e-12)
}

func TestSimilarityZeroDurations(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(3, 3, 0, 3, 3, 0))
}

func TestSimilaritySymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		aA, vA, dA := rng.Uint64(), rng.Uint64(), rng.Float64()*90
		aB, vB, dB := rng.Uint64(), rng.Uint64(), rng.Float64()*90
		assert.Equal(t,
			Similarity(aA, vA, dA, aB, vB, dB),
			Similarity(aB, vB, dB, aA, vA, dA),
		)
	}
}
