/*
NAME
  shake.go

DESCRIPTION
  shake.go implements the Shake Compensator (C8): per-frame anchor
  template matching via sum-of-squared-differences, yielding a logical
  (dx, dy) translation per frame that downstream slicing reads through a
  cropped view.

  Grounded on filter/diff.go's AbsDiff+Mean motion-scoring idiom,
  translated from a single gocv.AbsDiff call into a pure-Go SSD window
  scan (no cgo/gocv: shake compensation runs ahead of C2's slicing and
  must not require a GPU or image library), and on revid/pipeline.go's
  own-thread-count-per-stage precedent for giving C8 an independent
  worker pool from C7's.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package shake implements the Shake Compensator (C8): per-frame anchor
// template matching against frame 0 to derive a per-frame translation
// offset, read downstream through a cropped view.
package shake

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ausocean/chronophoto/config"
	"github.com/ausocean/chronophoto/frame"
	"github.com/pkg/errors"
)

// ErrAnchorOutOfBounds is the AnchorOutOfBounds error kind (spec.md
// §7): a configured anchor's template-plus-search reach would leave the
// reference frame.
var ErrAnchorOutOfBounds = errors.New("shake: anchor template/search window leaves frame bounds")

// Offset is the logical translation of frame t relative to frame 0.
type Offset struct {
	DX, DY int
}

// template is one anchor's (2r+1)² grayscale luminance patch lifted
// from frame 0.
type template struct {
	anchor config.Anchor
	pix    []float64 // Row-major, side = 2*anchorRadius+1.
	side   int
}

// Extract builds the anchor templates from frame 0, used as the match
// reference for every subsequent frame. It returns ErrAnchorOutOfBounds
// if any anchor's combined template-plus-search reach (anchorRadius +
// searchRadius in every direction) would leave the frame, rather than
// silently clamping to the edge.
func Extract(ref frame.Frame, anchors []config.Anchor, anchorRadius, searchRadius int) ([]template, error) {
	reach := anchorRadius + searchRadius
	out := make([]template, len(anchors))
	side := 2*anchorRadius + 1
	for i, a := range anchors {
		if a.X-reach < 0 || a.X+reach >= ref.Width || a.Y-reach < 0 || a.Y+reach >= ref.Height {
			return nil, errors.Wrapf(ErrAnchorOutOfBounds,
				"anchor (%d,%d) with radius %d+%d in a %dx%d frame", a.X, a.Y, anchorRadius, searchRadius, ref.Width, ref.Height)
		}
		out[i] = template{
			anchor: a,
			side:   side,
			pix:    patch(ref, a.X, a.Y, anchorRadius),
		}
	}
	return out, nil
}

// patch extracts a (2r+1)² luminance window centered at (cx, cy),
// clamped to the frame bounds at the edges (out-of-bounds samples
// repeat the nearest in-bounds pixel).
func patch(f frame.Frame, cx, cy, r int) []float64 {
	side := 2*r + 1
	out := make([]float64, side*side)
	i := 0
	for dy := -r; dy <= r; dy++ {
		y := clampInt(cy+dy, 0, f.Height-1)
		for dx := -r; dx <= r; dx++ {
			x := clampInt(cx+dx, 0, f.Width-1)
			out[i] = luminance(f, x, y)
			i++
		}
	}
	return out
}

func luminance(f frame.Frame, x, y int) float64 {
	base := (y*f.Width + x) * f.Channels
	r := float64(f.Pix[base])
	g := float64(f.Pix[base+1])
	b := float64(f.Pix[base+2])
	return 0.299*r + 0.587*g + 0.114*b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MatchFrame finds the (dx, dy) in [-searchRadius, searchRadius]²
// minimizing the sum of each anchor's SSD between its frame-0 template
// and the corresponding window in f, shifted by (dx, dy).
func MatchFrame(f frame.Frame, templates []template, searchRadius int) Offset {
	best := Offset{}
	bestSSD := -1.0

	for dy := -searchRadius; dy <= searchRadius; dy++ {
		for dx := -searchRadius; dx <= searchRadius; dx++ {
			sum := 0.0
			for _, tmpl := range templates {
				sum += ssd(f, tmpl, dx, dy)
			}
			if bestSSD < 0 || sum < bestSSD {
				bestSSD = sum
				best = Offset{DX: dx, DY: dy}
			}
		}
	}
	return best
}

// ssd computes the sum-of-squared-differences between tmpl and the
// window in f centered at tmpl.anchor shifted by (dx, dy).
func ssd(f frame.Frame, tmpl template, dx, dy int) float64 {
	r := (tmpl.side - 1) / 2
	sum := 0.0
	i := 0
	for wy := -r; wy <= r; wy++ {
		y := clampInt(tmpl.anchor.Y+dy+wy, 0, f.Height-1)
		for wx := -r; wx <= r; wx++ {
			x := clampInt(tmpl.anchor.X+dx+wx, 0, f.Width-1)
			d := luminance(f, x, y) - tmpl.pix[i]
			sum += d * d
			i++
		}
	}
	return sum
}

// Run computes per-frame offsets for frames[1:] against frames[0],
// using its own bounded worker pool (independent of C7's, spec.md
// §4.8). frames[0]'s offset is always the zero offset.
func Run(ctx context.Context, c *config.Config, frames []frame.Frame) ([]Offset, error) {
	offsets := make([]Offset, len(frames))
	if len(frames) == 0 {
		return offsets, nil
	}

	templates, err := Extract(frames[0], c.ShakeAnchors, c.ShakeAnchorRadius, c.ShakeSearchRadius)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.ResolvedThreads())

	for t := 1; t < len(frames); t++ {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			offsets[t] = MatchFrame(frames[t], templates, c.ShakeSearchRadius)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return offsets, nil
}

// CropBounds returns the effective output rectangle after removing the
// maximum absolute offset margin on every side (spec.md §4.8): output
// size = (W - 2*maxOX, H - 2*maxOY).
func CropBounds(width, height int, offsets []Offset) (maxOX, maxOY, outW, outH int) {
	for _, o := range offsets {
		if abs(o.DX) > maxOX {
			maxOX = abs(o.DX)
		}
		if abs(o.DY) > maxOY {
			maxOY = abs(o.DY)
		}
	}
	outW = width - 2*maxOX
	outH = height - 2*maxOY
	return
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Crop returns the pixel index in the original frame corresponding to
// (x', y') in the shake-compensated output frame for frame t's offset,
// per spec.md §4.8's (x'+max_ox+o_x^t, y'+max_oy+o_y^t) mapping.
func Crop(xp, yp, maxOX, maxOY int, o Offset) (x, y int) {
	return xp + maxOX + o.DX, yp + maxOY + o.DY
}
