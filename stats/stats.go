/*
NAME
  stats.go

DESCRIPTION
  stats.go implements the Pixel Statistics component (C3): exact median
  and quartiles of a per-pixel time-axis sample, computed in-place by
  quickselect so no full sort is needed.

  Modeled on cmd/rv/probe.go's use of gonum.org/v1/gonum/stat for summary
  statistics; the quickselect itself follows the same reuse-the-scratch-
  buffer, no-per-call-allocation discipline as filter/basic.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package stats computes exact median/quartile statistics over a
// per-pixel sample drawn from the time axis (spec.md §4.3).
package stats

import "gonum.org/v1/gonum/floats"

// Summary holds the three order statistics C4 needs per pixel per
// channel: the median and the lower/upper quartiles (for IQR).
type Summary struct {
	Median float64
	Q1     float64
	Q3     float64
}

// Compute returns the median, Q1 and Q3 of samples. samples is permuted
// in place by the selection algorithm; callers that need the original
// order must copy first. Compute panics if samples is empty.
func Compute(samples []float64) Summary {
	if len(samples) == 0 {
		panic("stats: Compute called with no samples")
	}
	n := len(samples)
	return Summary{
		Median: median(samples, n),
		Q1:     quantileSelect(samples, n/4),
		Q3:     quantileSelect(samples, (3*n)/4),
	}
}

// Mean returns the arithmetic mean of samples. The "average"
// outlier-pick and background policies do not call it; they sum
// outlier.Sample channels directly.
func Mean(samples []float64) float64 {
	return floats.Sum(samples) / float64(len(samples))
}

// Subsample returns the m frame indices, out of n, that Compute should
// be restricted to (spec.md §4.3's sampling sub-feature): an evenly
// strided selection, stride = n/m, so the subsample stays spread across
// the full time axis rather than clustering at one end. It returns nil
// when m is non-positive or m >= n, meaning "use every sample".
func Subsample(n, m int) []int {
	if m <= 0 || m >= n {
		return nil
	}
	stride := n / m
	idx := make([]int, 0, m)
	for i := 0; i < n && len(idx) < m; i += stride {
		idx = append(idx, i)
	}
	return idx
}

// median returns the exact median of samples (length n), using the
// lower of the two middle order statistics when n is even (documented
// Open Question decision, see DESIGN.md).
func median(samples []float64, n int) float64 {
	if n%2 == 1 {
		return quickselect(samples, n/2)
	}
	return quickselect(samples, n/2-1)
}

// quantileSelect returns the k-th order statistic (0-indexed) used as a
// quartile approximation; exact for the sample sizes this package
// expects (spec.md's slice-bounded per-pixel sample counts).
func quantileSelect(samples []float64, k int) float64 {
	if k >= len(samples) {
		k = len(samples) - 1
	}
	return quickselect(samples, k)
}

// quickselect returns the k-th smallest value (0-indexed) of samples in
// O(n) expected time, reordering samples in place (Lomuto partition
// scheme, median-of-three pivot).
func quickselect(samples []float64, k int) float64 {
	lo, hi := 0, len(samples)-1
	for lo < hi {
		p := partition(samples, lo, hi)
		switch {
		case k == p:
			return samples[k]
		case k < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
	return samples[lo]
}

func partition(a []float64, lo, hi int) int {
	mid := lo + (hi-lo)/2
	medianOfThree(a, lo, mid, hi)
	pivot := a[mid]
	a[mid], a[hi-1] = a[hi-1], a[mid]

	i := lo
	for j := lo; j < hi-1; j++ {
		if a[j] < pivot {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi-1] = a[hi-1], a[i]
	return i
}

// medianOfThree orders a[lo], a[mid], a[hi] so a[mid] holds a
// reasonable pivot, reducing quickselect's worst case on sorted or
// reverse-sorted input.
func medianOfThree(a []float64, lo, mid, hi int) {
	if a[mid] < a[lo] {
		a[mid], a[lo] = a[lo], a[mid]
	}
	if a[hi] < a[lo] {
		a[hi], a[lo] = a[lo], a[hi]
	}
	if a[hi] < a[mid] {
		a[hi], a[mid] = a[mid], a[hi]
	}
}
