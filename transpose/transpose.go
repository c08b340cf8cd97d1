/*
NAME
  transpose.go

DESCRIPTION
  transpose.go implements the Slice Writer (C2): partitions the image
  into K slices per the configured policy, then makes one pass over the
  frame source, appending each frame's contribution to every slice's
  open encoder.

  Grounded on revid/pipeline.go's setupPipeline dispatch-by-config
  idiom (one switch picks the behavior once, not per frame) and
  device/file/file.go's sequential-read-until-EOF frame loop.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package transpose implements the Slice Writer (C2): transposing a
// frame-major video stream into W*H/|S| disk-backed time-axis slices.
package transpose

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ausocean/chronophoto/config"
	"github.com/ausocean/chronophoto/frame"
	"github.com/ausocean/chronophoto/sliceio"
	"github.com/pkg/errors"
)

// Plan describes one slice: its offset and length in the image's flat,
// row-major pixel grid.
type Plan struct {
	PixelStart int
	PixelCount int
}

// BuildPlan partitions a width*height image into slices per the
// configured slicing policy (spec.md §4.2). For SliceRows, each plan
// covers value consecutive rows (the last one shorter if height does
// not divide evenly). For SlicePixels, each plan covers value
// consecutive pixels. For SliceCount, the pixel run length is derived
// so the slice count approximates value: |S| = ceil(W*H/value).
func BuildPlan(width, height, kind, value int) ([]Plan, error) {
	if value <= 0 {
		return nil, errors.Errorf("transpose: slice value must be positive, got %d", value)
	}
	total := width * height

	var run int
	switch kind {
	case config.SliceRows:
		run = value * width
	case config.SlicePixels:
		run = value
	case config.SliceCount:
		run = (total + value - 1) / value
	default:
		return nil, errors.Errorf("transpose: unknown slice kind %d", kind)
	}
	if run <= 0 {
		return nil, errors.New("transpose: computed slice run length is not positive")
	}

	var plans []Plan
	for start := 0; start < total; start += run {
		count := run
		if start+count > total {
			count = total - start
		}
		plans = append(plans, Plan{PixelStart: start, PixelCount: count})
	}
	return plans, nil
}

// SlicePaths returns the temp-file path transpose uses for slice i,
// under dir.
func SlicePaths(dir string, n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("slice-%06d.chpt", i))
	}
	return paths
}

// Write makes one pass over src, appending each frame's pixels
// belonging to each plan to that slice's encoder. The slice plan
// itself is built from the first frame's dimensions via buildPlan
// (spec.md §4.2's policy applied once the image geometry is known).
// Exactly one encoder per slice is open at a time; no slice is
// materialized fully in memory. On any error, partially written slice
// files are removed before returning.
func Write(src frame.Source, buildPlan func(width, height int) ([]Plan, error), dir string, c *config.Config) (paths []string, plans []Plan, width, height, channels, frames int, err error) {
	first, err := src.Next()
	if err != nil {
		return nil, nil, 0, 0, 0, 0, errors.Wrap(err, "transpose: could not read first frame")
	}
	width, height, channels = first.Width, first.Height, first.Channels

	plans, err = buildPlan(width, height)
	if err != nil {
		return nil, nil, 0, 0, 0, 0, errors.Wrap(err, "transpose: could not build slice plan")
	}

	paths = SlicePaths(dir, len(plans))
	encoders := make([]*sliceio.Encoder, len(plans))
	files := make([]*os.File, len(plans))

	cleanup := func() {
		for i, f := range files {
			if f == nil {
				continue
			}
			if encoders[i] != nil {
				encoders[i].Close()
			}
			f.Close()
			os.Remove(paths[i])
		}
	}

	for i, p := range plans {
		f, ferr := os.Create(paths[i])
		if ferr != nil {
			cleanup()
			return nil, nil, 0, 0, 0, 0, errors.Wrapf(ferr, "transpose: could not create slice file %d", i)
		}
		files[i] = f

		// SliceWidth/SliceHeight describe the slice's rectangular extent
		// in the on-disk header (spec.md §6): for row-based slices that
		// is a full image width times the row count; for the flat
		// pixel/count policies it is a single PixelCount-long row.
		// Frames is left zero: the header is written before the source
		// has been read to the end, so the frame count is not known yet.
		sliceWidth, sliceHeight := uint32(p.PixelCount), uint32(1)
		if c.SliceKind == config.SliceRows {
			sliceWidth = uint32(width)
			sliceHeight = uint32(p.PixelCount / width)
		}
		h := sliceio.Header{
			Width: uint32(width), Height: uint32(height),
			Channels: uint8(channels),
			OriginX:  uint32(p.PixelStart % width), OriginY: uint32(p.PixelStart / width),
			SliceWidth: sliceWidth, SliceHeight: sliceHeight,
		}
		enc, eerr := sliceio.NewEncoder(f, h, c.CompressionCodec, c.CompressionLevel)
		if eerr != nil {
			cleanup()
			return nil, nil, 0, 0, 0, 0, errors.Wrapf(eerr, "transpose: could not create encoder for slice %d", i)
		}
		encoders[i] = enc
	}

	cur := first
	for {
		if cur.Width != width || cur.Height != height || cur.Channels != channels {
			cleanup()
			return nil, nil, 0, 0, 0, 0, &frame.InconsistentFrame{
				Index: cur.Index,
				WantW: width, WantH: height, WantC: channels,
				GotW: cur.Width, GotH: cur.Height, GotC: cur.Channels,
			}
		}

		if werr := writeFrame(encoders, plans, cur, channels); werr != nil {
			cleanup()
			return nil, nil, 0, 0, 0, 0, errors.Wrap(werr, "transpose: could not write frame")
		}
		frames++

		cur, err = src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			cleanup()
			return nil, nil, 0, 0, 0, 0, errors.Wrap(err, "transpose: could not read frame")
		}
	}

	for i, enc := range encoders {
		if cerr := enc.Close(); cerr != nil {
			cleanup()
			return nil, nil, 0, 0, 0, 0, errors.Wrapf(cerr, "transpose: could not close slice %d", i)
		}
		files[i].Close()
	}

	return paths, plans, width, height, channels, frames, nil
}

// writeFrame appends f's pixels belonging to each plan to that plan's
// encoder.
func writeFrame(encoders []*sliceio.Encoder, plans []Plan, f frame.Frame, channels int) error {
	for i, p := range plans {
		start := p.PixelStart * channels
		end := start + p.PixelCount*channels
		if _, err := encoders[i].Write(f.Pix[start:end]); err != nil {
			return err
		}
	}
	return nil
}
