package downsample

import (
	"fmt"
	"math"
)

// LTTB reduces (x, y) to at most threshold points with the
// Largest-Triangle-Three-Buckets algorithm.
//
// References:
//   - Steinarsson, S. (2013). "Downsampling Time Series for Visual
//     Representation". MSc thesis, University of Iceland
//
// The first and last points are always kept. Each interior bucket contributes
// the point forming the largest triangle with the previously selected point
// and the average of the next bucket, which preserves peaks and troughs.
// Inputs at or below threshold are returned unchanged.
func LTTB(x, y []float64, threshold int) ([]float64, []float64, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("length mismatch: x has %d points, y has %d", len(x), len(y))
	}

	n := len(x)
	if threshold >= n || threshold <= 0 {
		return x, y, nil
	}
	if threshold < 3 {
		return []float64{x[0], x[n-1]}[:threshold], []float64{y[0], y[n-1]}[:threshold], nil
	}

	sampledX := make([]float64, 0, threshold)
	sampledY := make([]float64, 0, threshold)
	sampledX = append(sampledX, x[0])
	sampledY = append(sampledY, y[0])

	bucketSize := float64(n-2) / float64(threshold-2)
	a := 0

	for i := 0; i < threshold-2; i++ {
		// average of the next bucket is the third triangle vertex
		avgStart := int(math.Floor(float64(i+1)*bucketSize)) + 1
		avgEnd := min(int(math.Floor(float64(i+2)*bucketSize))+1, n)

		var avgX, avgY float64
		if count := avgEnd - avgStart; count > 0 {
			for j := avgStart; j < avgEnd; j++ {
				avgX += x[j]
				avgY += y[j]
			}
			avgX /= float64(count)
			avgY /= float64(count)
		}

		rangeStart := int(math.Floor(float64(i)*bucketSize)) + 1
		rangeEnd := int(math.Floor(float64(i+1)*bucketSize)) + 1

		pointAX := x[a]
		pointAY := y[a]

		maxArea := -1.0
		next := rangeStart
		for j := rangeStart; j < rangeEnd; j++ {
			area := math.Abs((pointAX-avgX)*(y[j]-pointAY)-(pointAX-x[j])*(avgY-pointAY)) * 0.5
			if area > maxArea {
				maxArea = area
				next = j
			}
		}

		sampledX = append(sampledX, x[next])
		sampledY = append(sampledY, y[next])
		a = next
	}

	sampledX = append(sampledX, x[n-1])
	sampledY = append(sampledY, y[n-1])

	return sampledX, sampledY, nil
}

// Index returns 0..n-1 as float64, the x axis for coefficient plots
func Index(n int) []float64 {
	idx := make([]float64, n)
	for i := range idx {
		idx[i] = float64(i)
	}
	return idx
}

// Stride keeps every k-th sample, k = ceil(len/limit), so that at most
// limit samples remain. Inputs at or below limit are returned unchanged.
func Stride(values []float64, limit int) []float64 {
	if limit <= 0 || len(values) <= limit {
		return values
	}

	step := (len(values) + limit - 1) / limit
	out := make([]float64, 0, limit)
	for i := 0; i < len(values); i += step {
		out = append(out, values[i])
	}
	return out
}

// Truncate returns at most limit leading samples
func Truncate(values []float64, limit int) []float64 {
	if limit <= 0 || len(values) <= limit {
		return values
	}
	return values[:limit]
}
