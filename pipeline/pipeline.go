/*
NAME
  pipeline.go

DESCRIPTION
  pipeline.go implements the Pipeline Orchestrator (C7): optionally runs
  shake compensation (C8), partitions the (possibly cropped) image into
  slices (C2), schedules a bounded worker pool to decode and process
  each slice (C3-C6) concurrently, and assembles the results into one
  output image buffer (spec.md §5's "shake -> slice-write ->
  slice-process -> encode" phase order).

  Grounded on revid/revid.go's Logger-threaded lifecycle (Debug/Info
  around each phase) and revid/pipeline.go's config-driven setup, with
  the worker pool itself built on golang.org/x/sync/errgroup in the
  style of five82/reel's phase-based chunk processing: first error
  cancels the group's context, every goroutine checks ctx.Err() between
  (not within) slices.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pipeline implements the Pipeline Orchestrator (C7): end-to-end
// coordination of slicing, parallel slice processing, and output
// assembly.
package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ausocean/chronophoto/config"
	"github.com/ausocean/chronophoto/frame"
	"github.com/ausocean/chronophoto/process"
	"github.com/ausocean/chronophoto/shake"
	"github.com/ausocean/chronophoto/sliceio"
	"github.com/ausocean/chronophoto/transpose"
	"github.com/pkg/errors"
)

// Result is the final composited image plus its blend mask, ready for
// a frame.Sink.
type Result struct {
	Width, Height, Channels int
	Pix                     []byte
	Alpha                   []byte
}

// Run executes the full pipeline: shake compensation (C8, optional),
// slice (C2), process each slice concurrently (C3-C6), assemble
// (spec.md §4.7), and unconditionally clean up the temp directory.
func Run(ctx context.Context, c *config.Config, src frame.Source) (Result, error) {
	base := c.TempDir
	if !filepath.IsAbs(base) {
		base = filepath.Join(os.TempDir(), base)
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return Result{}, errors.Wrap(err, "pipeline: could not create temp directory")
	}
	dir, err := os.MkdirTemp(base, "run-")
	if err != nil {
		return Result{}, errors.Wrap(err, "pipeline: could not create temp directory")
	}
	defer func() {
		c.Logger.Debug("removing temp directory", "dir", dir)
		if rerr := os.RemoveAll(dir); rerr != nil {
			c.Logger.Error("could not remove temp directory", "error", rerr.Error())
		}
	}()

	if c.ShakeEnabled {
		c.Logger.Debug("running shake compensation")
		shaken, serr := shakeCompensate(ctx, c, src)
		if serr != nil {
			return Result{}, errors.Wrap(serr, "pipeline: shake compensation failed")
		}
		src = shaken
		c.Logger.Info("shake compensation complete")
	}

	buildPlan := func(width, height int) ([]transpose.Plan, error) {
		return transpose.BuildPlan(width, height, c.SliceKind, c.SliceValue)
	}

	c.Logger.Debug("transposing frames to slice files")
	paths, plans, width, height, channels, frames, err := transpose.Write(src, buildPlan, dir, c)
	if err != nil {
		return Result{}, errors.Wrap(err, "pipeline: slice write failed")
	}
	c.Logger.Info("slices written", "count", len(paths), "frames", frames)

	out := Result{
		Width: width, Height: height, Channels: channels,
		Pix:   make([]byte, width*height*channels),
		Alpha: make([]byte, width*height),
	}

	c.Logger.Debug("processing slices", "threads", c.ResolvedThreads())
	if err := processAll(ctx, c, paths, plans, frames, channels, width, out); err != nil {
		return Result{}, errors.Wrap(err, "pipeline: slice processing failed")
	}
	c.Logger.Info("slices processed")

	return out, nil
}

// processAll runs process.Run over every slice file with up to
// c.ResolvedThreads() slices in flight at once, assembling results
// directly into out's disjoint pixel regions (no locking needed: each
// worker only ever writes the byte range belonging to its own slice).
func processAll(ctx context.Context, c *config.Config, paths []string, plans []transpose.Plan, frames, channels, width int, out Result) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.ResolvedThreads())

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return processOne(c, path, plans[i], frames, channels, width, out)
		})
	}
	return g.Wait()
}

func processOne(c *config.Config, path string, p transpose.Plan, frames, channels, width int, out Result) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "pipeline: could not open slice %s", path)
	}
	defer f.Close()

	dec, err := sliceio.NewDecoder(f, c.CompressionCodec)
	if err != nil {
		return errors.Wrapf(err, "pipeline: could not decode slice %s", path)
	}
	block, err := sliceio.ReadAll(dec)
	if err != nil {
		return errors.Wrapf(err, "pipeline: could not read slice %s", path)
	}

	s := process.Slice{
		Frames:     frames,
		PixelCount: p.PixelCount,
		Channels:   channels,
		PixelStart: p.PixelStart,
		Pix:        block,
	}

	pixStart := p.PixelStart * channels
	pixEnd := pixStart + p.PixelCount*channels
	alphaStart := p.PixelStart
	alphaEnd := alphaStart + p.PixelCount

	process.Run(c, s, width, process.Output{
		Pix:   out.Pix[pixStart:pixEnd],
		Alpha: out.Alpha[alphaStart:alphaEnd],
	})
	return nil
}

// shakeCompensate reads every frame of src into memory, computes each
// frame's translation offset against frame 0 (C8), and returns a new
// in-memory frame.Source yielding the cropped frames (spec.md §3's
// (W-2*max_ox, H-2*max_oy) output geometry and §4.8's crop mapping).
// Shake compensation needs every frame's offset before any frame can be
// cropped, so it cannot stream the way transpose.Write does; the
// collaborator is expected to bound the run's frame count accordingly.
func shakeCompensate(ctx context.Context, c *config.Config, src frame.Source) (frame.Source, error) {
	frames, err := readAllFrames(src)
	if err != nil {
		return nil, errors.Wrap(err, "could not read frames")
	}

	offsets, err := shake.Run(ctx, c, frames)
	if err != nil {
		return nil, errors.Wrap(err, "anchor matching failed")
	}

	maxOX, maxOY, outW, outH := shake.CropBounds(frames[0].Width, frames[0].Height, offsets)
	cropped := cropFrames(frames, offsets, maxOX, maxOY, outW, outH)
	return &frameSliceSource{frames: cropped}, nil
}

// readAllFrames drains src, checking every frame against the first
// frame's dimensions (mirroring transpose.Write's own consistency
// check), since shake compensation needs every frame in memory at once
// before it can compute offsets.
func readAllFrames(src frame.Source) ([]frame.Frame, error) {
	var frames []frame.Frame
	for {
		f, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(frames) > 0 {
			first := frames[0]
			if f.Width != first.Width || f.Height != first.Height || f.Channels != first.Channels {
				return nil, &frame.InconsistentFrame{
					Index: f.Index,
					WantW: first.Width, WantH: first.Height, WantC: first.Channels,
					GotW: f.Width, GotH: f.Height, GotC: f.Channels,
				}
			}
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// cropFrames returns one cropped copy of each input frame, reading
// pixel (xp, yp) of the output from shake.Crop's corresponding source
// coordinate in that frame's original, uncropped pixels.
func cropFrames(frames []frame.Frame, offsets []shake.Offset, maxOX, maxOY, outW, outH int) []frame.Frame {
	out := make([]frame.Frame, len(frames))
	for t, f := range frames {
		ch := f.Channels
		pix := make([]byte, outW*outH*ch)
		for yp := 0; yp < outH; yp++ {
			for xp := 0; xp < outW; xp++ {
				x, y := shake.Crop(xp, yp, maxOX, maxOY, offsets[t])
				srcBase := (y*f.Width + x) * ch
				dstBase := (yp*outW + xp) * ch
				copy(pix[dstBase:dstBase+ch], f.Pix[srcBase:srcBase+ch])
			}
		}
		out[t] = frame.Frame{Index: f.Index, Width: outW, Height: outH, Channels: ch, Pix: pix}
	}
	return out
}

// frameSliceSource replays a fully materialized frame slice as a
// frame.Source, used to feed C2 the shake-cropped frames.
type frameSliceSource struct {
	frames []frame.Frame
	i      int
}

func (s *frameSliceSource) Next() (frame.Frame, error) {
	if s.i >= len(s.frames) {
		return frame.Frame{}, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}
