/*
NAME
  background.go

DESCRIPTION
  background.go implements the Background Selector (C5): picks a
  replacement pixel color for the non-outlier portion of a time-axis
  sample.

  Grounded on filter/knn.go's background-model idiom (a background
  estimate maintained alongside foreground detection), generalized from
  KNN's running statistical model to spec.md §4.5's four static
  selection policies over a fully-loaded per-pixel sample.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package background implements the Background Selector (C5): choosing
// a replacement pixel color from the background-classified portion of
// a pixel's time-axis sample.
package background

import (
	"math/rand"

	"github.com/ausocean/chronophoto/config"
	"github.com/ausocean/chronophoto/outlier"
	"github.com/ausocean/chronophoto/stats"
)

// Pick returns the background color for one pixel. backgrounds holds
// the samples C4 classified as background, in ascending frame order;
// all holds every sample (outliers included), needed by the median
// policy and the no-background-samples fallback. x, y locate the
// pixel and width is the image width; together they seed the random
// policy deterministically (DESIGN.md: seed = y*width + x) so reruns
// over the same image are reproducible.
func Pick(backgrounds, all []outlier.Sample, x, y, width int, policy int) outlier.Sample {
	if len(backgrounds) == 0 {
		return medianOf(all)
	}
	switch policy {
	case config.BackgroundFirst:
		return backgrounds[0]
	case config.BackgroundRandom:
		seed := int64(y)*int64(width) + int64(x)
		r := rand.New(rand.NewSource(seed))
		return backgrounds[r.Intn(len(backgrounds))]
	case config.BackgroundAverage:
		return average(backgrounds)
	case config.BackgroundMedian:
		return medianOf(all)
	default:
		return medianOf(all)
	}
}

func average(samples []outlier.Sample) outlier.Sample {
	var out outlier.Sample
	n := float64(len(samples))
	for _, s := range samples {
		out.R += s.R
		out.G += s.G
		out.B += s.B
		out.A += s.A
	}
	out.R /= n
	out.G /= n
	out.B /= n
	out.A /= n
	return out
}

func medianOf(samples []outlier.Sample) outlier.Sample {
	r := make([]float64, len(samples))
	g := make([]float64, len(samples))
	b := make([]float64, len(samples))
	a := make([]float64, len(samples))
	for i, s := range samples {
		r[i], g[i], b[i], a[i] = s.R, s.G, s.B, s.A
	}
	return outlier.Sample{
		R: stats.Compute(r).Median,
		G: stats.Compute(g).Median,
		B: stats.Compute(b).Median,
		A: stats.Compute(a).Median,
	}
}
