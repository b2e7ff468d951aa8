package search

import "math"

// maxSquaredDistance is the largest squared L2 distance between two unit
// vectors (diametrically opposed: |u-v|² = 4). Similarity maps that range
// onto [0, 1].
const maxSquaredDistance = 4.0

// Similarity converts a squared L2 distance between normalized embeddings
// to a similarity score in [0, 1]. Distances beyond the unit-vector range
// clamp to 0 rather than going negative.
func Similarity(distance float64) float64 {
	return math.Max(0, 1-distance/maxSquaredDistance)
}

// Round4 rounds to four decimal places, the precision reported by the API.
func Round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
