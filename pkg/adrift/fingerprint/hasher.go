package fingerprint

import (
	"math"
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

// Sentinels hashed in place of an empty payload, so a window with no
// content still yields a stable digest.
const (
	NoVideoSentinel = "no video data"
	NoAudioSentinel = "no audio data"
)

// Similarity weights.
const (
	AudioWeight    = 0.4
	VideoWeight    = 0.4
	DurationWeight = 0.2
	HashBits       = 64
)

// Digest reduces a raw payload to a 64-bit xxhash. An empty payload is
// hashed from sentinel instead.
func Digest(payload []byte, sentinel string) uint64 {
	if len(payload) == 0 {
		return xxhash.Sum64String(sentinel)
	}
	return xxhash.Sum64(payload)
}

// HammingDistance returns the normalized bit distance between two digests in [0,1].
func HammingDistance(a, b uint64) float64 {
	return float64(bits.OnesCount64(a^b)) / HashBits
}

// Similarity scores two fingerprints in [0,1]; 1 means identical.
//
//	1 - (0.4*audio_dist + 0.4*video_dist + 0.2*|dA-dB|/max(dA,dB))
//
// Every term is symmetric, so Similarity(a, b) == Similarity(b, a).
func Similarity(audioA, videoA uint64, durA float64, audioB, videoB uint64, durB float64) float64 {
	audioDist := HammingDistance(audioA, audioB)
	videoDist := HammingDistance(videoA, videoB)

	var durDiff float64
	if longest := math.Max(durA, durB); longest > 0 {
		durDiff = math.Abs(durA-durB) / longest
	}

	return 1.0 - (AudioWeight*audioDist + VideoWeight*videoDist + DurationWeight*durDiff)
}
