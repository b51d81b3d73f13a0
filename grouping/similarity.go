package grouping

import (
	"encoding/hex"
	"math/bits"
)

// HashSimilarity returns the normalized bit agreement of two hex-encoded
// hashes in [0,1], where 1.0 means identical. Hashes of mismatched length
// are compared over their common prefix.
func HashSimilarity(hexA, hexB string) float64 {
	a, errA := hex.DecodeString(hexA)
	b, errB := hex.DecodeString(hexB)
	if errA != nil || errB != nil {
		return 0
	}

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	distance := 0
	for i := 0; i < n; i++ {
		distance += bits.OnesCount8(a[i] ^ b[i])
	}

	totalBits := n * 8
	return 1.0 - float64(distance)/float64(totalBits)
}

// CosineSimilarity returns the cosine of the angle between two embedding
// vectors. Vectors are L2-normalized at extraction time, so this is a plain
// dot product; a zero result is returned for mismatched or empty inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
