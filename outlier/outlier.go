/*
NAME
  outlier.go

DESCRIPTION
  outlier.go implements the Outlier Selector (C4): classifies each
  time-axis sample at a pixel as background or outlier by weighted
  distance to the per-channel median, then reduces the outlier set to a
  single composite (color, alpha) pair according to the configured pick
  policy.

  Grounded on filter/basic.go's per-pixel RGB difference-to-background
  arithmetic, generalized from a fixed absolute threshold against a
  single background frame to a weighted per-channel distance against
  the running per-pixel median/IQR (spec.md §4.4).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package outlier implements the Outlier Selector (C4): per-sample
// classification against a pixel's median/IQR statistics, and
// reduction of the resulting outlier set to one composite sample.
package outlier

import (
	"math"

	"github.com/ausocean/chronophoto/config"
	"github.com/ausocean/chronophoto/stats"
)

// eps guards the hi == lo degenerate threshold band from a divide by
// zero (spec.md §4.4's "max(hi - lo, ε)").
const eps = 1e-9

// Sample is one time-axis observation at a pixel: up to 4 channel
// values (normalized to [0, 1]) plus the frame index it came from.
type Sample struct {
	Frame      int
	R, G, B, A float64
}

// Weights scales each channel's contribution to the distance formula.
type Weights struct {
	R, G, B, A float64
}

func (w Weights) sum() float64 { return w.R + w.G + w.B + w.A }

// PixelStats holds the independently computed per-channel statistics
// for one pixel's time-axis sample (C3's output, channel by channel).
type PixelStats struct {
	R, G, B, A stats.Summary
}

// Median returns the per-channel median vector.
func (p PixelStats) Median() Sample {
	return Sample{R: p.R.Median, G: p.G.Median, B: p.B.Median, A: p.A.Median}
}

// iqrMag is the weighted-RMS interquartile range used to scale
// relative thresholds: sqrt(Σ w_c·IQR_c²) / sqrt(Σ w_c).
func (p PixelStats) iqrMag(w Weights) float64 {
	sum := w.sum()
	if sum == 0 {
		return 0
	}
	iqrR := p.R.Q3 - p.R.Q1
	iqrG := p.G.Q3 - p.G.Q1
	iqrB := p.B.Q3 - p.B.Q1
	iqrA := p.A.Q3 - p.A.Q1
	return math.Sqrt(w.R*iqrR*iqrR+w.G*iqrG*iqrG+w.B*iqrB*iqrB+w.A*iqrA*iqrA) / math.Sqrt(sum)
}

// Distance computes the weighted, weight-normalized Euclidean distance
// between s and the reference vector (spec.md §4.4).
func Distance(s, ref Sample, w Weights) float64 {
	sum := w.sum()
	if sum == 0 {
		return 0
	}
	dr := s.R - ref.R
	dg := s.G - ref.G
	db := s.B - ref.B
	da := s.A - ref.A
	return math.Sqrt(w.R*dr*dr+w.G*dg*dg+w.B*db*db+w.A*da*da) / math.Sqrt(sum)
}

// Candidate is an outlier sample together with its blend factor.
type Candidate struct {
	Sample Sample
	Alpha  float64
}

// Classify scores s against the pixel's statistics. ok is false when s
// is background (d < effective lo); otherwise c is the outlier
// candidate with its blend alpha. Thresholds are interpreted per
// config.ThresholdAbs/ThresholdRel (spec.md §4.4): for Rel, lo and hi
// are scaled by the pixel's IQR magnitude before comparison. An N=1
// sample (IQR == 0) under ThresholdRel is always classified as
// background, since a relative threshold is ill-defined with no
// spread.
func Classify(s Sample, ps PixelStats, w Weights, kind int, lo, hi float64, hasHi bool) (c Candidate, ok bool) {
	d := Distance(s, ps.Median(), w)

	effLo, effHi := lo, hi
	if kind == config.ThresholdRel {
		mag := ps.iqrMag(w)
		if mag == 0 {
			return Candidate{}, false
		}
		effLo *= mag
		effHi *= mag
	}

	if d < effLo {
		return Candidate{}, false
	}
	alpha := 1.0
	if hasHi {
		alpha = clamp((d-effLo)/math.Max(effHi-effLo, eps), 0, 1)
	}
	return Candidate{Sample: s, Alpha: alpha}, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Pick reduces a non-empty, frame-ascending-ordered outlier candidate
// set to a single (color, alpha) composite according to policy
// (spec.md §4.4's six pick policies).
func Pick(candidates []Candidate, median Sample, w Weights, policy int) Candidate {
	switch policy {
	case config.PickFirst:
		return candidates[0]
	case config.PickLast:
		return candidates[len(candidates)-1]
	case config.PickForward:
		return compositeOver(candidates, median, false)
	case config.PickBackward:
		return compositeOver(candidates, median, true)
	case config.PickAverage:
		return average(candidates)
	case config.PickExtreme:
		return extreme(candidates, median, w)
	default:
		return extreme(candidates, median, w)
	}
}

func average(candidates []Candidate) Candidate {
	var out Candidate
	n := float64(len(candidates))
	maxAlpha := 0.0
	for _, c := range candidates {
		out.Sample.R += c.Sample.R
		out.Sample.G += c.Sample.G
		out.Sample.B += c.Sample.B
		out.Sample.A += c.Sample.A
		if c.Alpha > maxAlpha {
			maxAlpha = c.Alpha
		}
	}
	out.Sample.R /= n
	out.Sample.G /= n
	out.Sample.B /= n
	out.Sample.A /= n
	out.Sample.Frame = candidates[len(candidates)-1].Sample.Frame
	out.Alpha = maxAlpha
	return out
}

func extreme(candidates []Candidate, median Sample, w Weights) Candidate {
	best := candidates[0]
	bestD := Distance(best.Sample, median, w)
	for _, c := range candidates[1:] {
		d := Distance(c.Sample, median, w)
		if d > bestD {
			best, bestD = c, d
		}
	}
	return best
}

// compositeOver alpha-composites candidates over the running
// background median in order (forward: increasing frame index,
// premultiplied "over"; backward: decreasing). The returned alpha is
// the composite opacity accumulated across the whole traversal.
func compositeOver(candidates []Candidate, background Sample, reverse bool) Candidate {
	r, g, b, a := background.R, background.G, background.B, background.A
	accumAlpha := 0.0

	apply := func(c Candidate) {
		r = c.Sample.R*c.Alpha + r*(1-c.Alpha)
		g = c.Sample.G*c.Alpha + g*(1-c.Alpha)
		b = c.Sample.B*c.Alpha + b*(1-c.Alpha)
		a = c.Sample.A*c.Alpha + a*(1-c.Alpha)
		accumAlpha = c.Alpha + accumAlpha*(1-c.Alpha)
	}

	if reverse {
		for i := len(candidates) - 1; i >= 0; i-- {
			apply(candidates[i])
		}
	} else {
		for _, c := range candidates {
			apply(c)
		}
	}

	last := candidates[len(candidates)-1]
	if reverse {
		last = candidates[0]
	}
	return Candidate{Sample: Sample{Frame: last.Sample.Frame, R: r, G: g, B: b, A: a}, Alpha: accumAlpha}
}
