/*
NAME
  frame.go

DESCRIPTION
  frame.go defines the external frame source and output sink interfaces
  (spec.md §6). Image codec read/write, container demuxing and filesystem
  globbing are collaborator concerns; this package only describes the
  shape the core pipeline consumes and produces.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame provides the Frame type and the frame source/output sink
// interfaces that decouple the chronophoto core from image codecs,
// container formats, and filesystem access.
package frame

import "fmt"

// Frame is one decoded input sample: W×H pixels in a fixed channel layout
// (3 = RGB, 4 = RGBA), 8 bits per channel, laid out row-major.
type Frame struct {
	Index    int // Monotonically increasing frame index t.
	Width    int
	Height   int
	Channels int
	Pix      []byte // len(Pix) == Width*Height*Channels.
}

// InconsistentFrame is returned by the core (transpose.Write, and the
// pipeline's shake pre-pass) when a frame yielded by a Source has
// dimensions or a channel count that differ from the first frame's.
type InconsistentFrame struct {
	Index               int
	WantW, WantH, WantC int
	GotW, GotH, GotC    int
}

func (e *InconsistentFrame) Error() string {
	return fmt.Sprintf(
		"frame %d: inconsistent dimensions: want %dx%dx%d, got %dx%dx%d",
		e.Index, e.WantW, e.WantH, e.WantC, e.GotW, e.GotH, e.GotC,
	)
}

// Source is a pull-based, finite, in-order iterator over decoded frames.
// The core consumes a Source exactly once, calling Next until it returns
// io.EOF, and does not retain a Frame past its slice-write use. Source
// implementations (image decode + glob, a video container demuxer, etc.)
// are the collaborator's responsibility; the core only requires uniform
// (Width, Height, Channels) across all yielded frames.
type Source interface {
	// Next returns the next frame in order, or io.EOF once exhausted.
	Next() (Frame, error)
}

// Sink is the output collaborator: it owns file-format choice for both
// the composited image and the optional blend mask.
type Sink interface {
	// WriteImage writes the final W×H image with the given channel
	// count. It is only called once, after the pipeline has succeeded.
	WriteImage(w, h, channels int, pix []byte) error

	// WriteMask writes the single-channel blend mask (values 0..255).
	// It is only called if WriteImage succeeded, and only if the
	// collaborator requested a mask.
	WriteMask(w, h int, alpha []byte) error
}
