/*
NAME
  process.go

DESCRIPTION
  process.go implements the Slice Processor (C6): drives C3 (stats),
  C4 (outlier) and C5 (background) across every pixel of one loaded
  slice and writes the composited output pixels plus the blend-mask
  buffer.

  Grounded on filter/basic.go's goroutine-per-row scan with reused
  background/foreground buffers: the per-pixel loop here reuses its
  statistics and sample buffers across every pixel of the slice.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package process implements the Slice Processor (C6): per-pixel
// statistics, classification, pick and background selection over one
// loaded time-axis slice, emitting composited output pixels.
package process

import (
	"github.com/ausocean/chronophoto/background"
	"github.com/ausocean/chronophoto/config"
	"github.com/ausocean/chronophoto/outlier"
	"github.com/ausocean/chronophoto/stats"
)

// Slice is one decoded slab of pixel data: N frames over |S| pixels,
// each pixel with up to 4 channels, laid out frame-major
// (Pix[t*pixelCount*channels + p*channels + c]). PixelStart is this
// slice's offset into the flat, row-major W*H pixel grid of the full
// image (spec.md §4.2's row/pixel/count policies all reduce to a
// contiguous run in this flat space).
type Slice struct {
	Frames     int
	PixelCount int
	Channels   int
	PixelStart int
	Pix        []byte
}

// Output receives one slice's composited result: the slice's output
// pixel bytes and a single-channel alpha mask, pre-sized to
// PixelCount*Channels and PixelCount respectively by the caller.
type Output struct {
	Pix   []byte
	Alpha []byte
}

// weights builds an outlier.Weights from the configured per-channel
// weights, zeroing alpha when the slice carries only 3 channels.
func weights(c *config.Config, channels int) outlier.Weights {
	w := outlier.Weights{R: c.WeightR, G: c.WeightG, B: c.WeightB, A: c.WeightA}
	if channels < 4 {
		w.A = 0
	}
	return w
}

// Run processes every pixel of s and writes the result into out.
// Scratch buffers (r, g, b, a, samples etc.) are allocated once per
// call and reused across every pixel in the slice. background.Pick
// still allocates per pixel for the median policy, the no-background
// fallback, and the random policy's per-pixel RNG.
func Run(c *config.Config, s Slice, imageWidth int, out Output) {
	w := weights(c, s.Channels)

	r := make([]float64, s.Frames)
	g := make([]float64, s.Frames)
	b := make([]float64, s.Frames)
	a := make([]float64, s.Frames)
	samples := make([]outlier.Sample, s.Frames)
	candidates := make([]outlier.Candidate, 0, s.Frames)
	backgrounds := make([]outlier.Sample, 0, s.Frames)

	// Sampling (spec.md §4.3): when configured, C3's statistics are
	// computed over an evenly strided subset of the N frames rather
	// than all of them. Classification in the loop below still walks
	// every sample in V against that subsample's stats. The rs/gs/bs/as
	// scratch buffers are sized once and reused per pixel like r/g/b/a.
	sampleIdx := stats.Subsample(s.Frames, c.Sample)
	var rs, gs, bs, as []float64
	if sampleIdx != nil {
		rs = make([]float64, len(sampleIdx))
		gs = make([]float64, len(sampleIdx))
		bs = make([]float64, len(sampleIdx))
		as = make([]float64, len(sampleIdx))
	}

	for p := 0; p < s.PixelCount; p++ {
		idx := s.PixelStart + p
		x := idx % imageWidth
		y := idx / imageWidth

		loadPixel(s, p, r, g, b, a, samples)

		rStat, gStat, bStat, aStat := r, g, b, a
		if sampleIdx != nil {
			for i, t := range sampleIdx {
				rs[i], gs[i], bs[i], as[i] = r[t], g[t], b[t], a[t]
			}
			rStat, gStat, bStat, aStat = rs, gs, bs, as
		}

		// stats.Compute permutes its argument in place; that is fine
		// here since loadPixel (or the rs/gs/bs/as copy above)
		// overwrites the stat buffers fully on the next pixel, so no
		// extra copy is needed to keep this allocation-free across the
		// slice.
		ps := outlier.PixelStats{
			R: stats.Compute(rStat),
			G: stats.Compute(gStat),
			B: stats.Compute(bStat),
		}
		if s.Channels == 4 {
			ps.A = stats.Compute(aStat)
		}

		candidates = candidates[:0]
		backgrounds = backgrounds[:0]
		for _, sm := range samples {
			cand, ok := outlier.Classify(sm, ps, w, c.ThresholdKind, c.ThresholdLo, c.ThresholdHi, c.HasThresholdHi)
			if ok {
				candidates = append(candidates, cand)
			} else {
				backgrounds = append(backgrounds, sm)
			}
		}

		bg := background.Pick(backgrounds, samples, x, y, imageWidth, c.Background)

		var fg outlier.Candidate
		alpha := 0.0
		if len(candidates) > 0 {
			fg = outlier.Pick(candidates, ps.Median(), w, c.Outlier)
			alpha = fg.Alpha
		}

		blend(out, p, s.Channels, fg.Sample, bg, alpha)
	}
}

// loadPixel extracts pixel p's time vector from s into the four
// per-channel scratch slices plus the combined outlier.Sample slice,
// normalizing 8-bit channel values to [0, 1] (spec.md §4.4).
func loadPixel(s Slice, p int, r, g, b, a []float64, out []outlier.Sample) {
	stride := s.PixelCount * s.Channels
	for t := 0; t < s.Frames; t++ {
		base := t*stride + p*s.Channels
		rv := float64(s.Pix[base]) / 255
		gv := float64(s.Pix[base+1]) / 255
		bv := float64(s.Pix[base+2]) / 255
		var av float64
		if s.Channels == 4 {
			av = float64(s.Pix[base+3]) / 255
		}
		r[t], g[t], b[t], a[t] = rv, gv, bv, av
		out[t] = outlier.Sample{Frame: t, R: rv, G: gv, B: bv, A: av}
	}
}

// blend composites foreground over background with the given alpha
// and writes the clamped 8-bit result into out at pixel p, recording
// alpha (scaled to [0, 255]) in the blend mask (spec.md §4.6).
func blend(out Output, p, channels int, fg, bg outlier.Sample, alpha float64) {
	base := p * channels
	out.Pix[base] = to8(alpha*fg.R + (1-alpha)*bg.R)
	out.Pix[base+1] = to8(alpha*fg.G + (1-alpha)*bg.G)
	out.Pix[base+2] = to8(alpha*fg.B + (1-alpha)*bg.B)
	if channels == 4 {
		out.Pix[base+3] = to8(alpha*fg.A + (1-alpha)*bg.A)
	}
	out.Alpha[p] = to8(alpha)
}

func to8(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
