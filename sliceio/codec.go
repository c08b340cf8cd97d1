/*
NAME
  codec.go

DESCRIPTION
  codec.go implements the slice file framing described in spec.md §3/§6:
  a fixed binary header followed by a pixel block, the whole stream
  wrapped in one of gzip/zlib/deflate's standard container formats.

  Modeled on container/mts/psi/helpers.go's manual binary.BigEndian
  header framing and container/mts/mpegts.go's sentinel-error-plus-
  errors.Wrap error handling, translated from MPEG-TS PSI framing to the
  chrono-photograph slice header.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sliceio implements the Slice Codec (C1): encoding and decoding
// of one spatial slab of pixel data over the time axis into a compressed
// stream.
package sliceio

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/ausocean/chronophoto/config"
	"github.com/pkg/errors"
)

// Magic identifies a chronophoto slice header ("CHPT").
const Magic uint32 = 0x43504854

// Version is the only header version this package writes or accepts.
const Version uint16 = 1

// bufSize bounds the Encoder's internal write buffer so it holds no more
// than one buffer's worth of the stream at once, beyond the compressor's
// own internal state. Decoder reads straight from the decompressor.
const bufSize = 32 * 1024

// Sentinel errors, in the style of container/mts/mpegts.go's ErrInvalidLen
// etc.
var (
	ErrCorruptSlice       = errors.New("sliceio: corrupt slice header")
	ErrUnsupportedVersion = errors.New("sliceio: unsupported slice header version")
)

// Header is the fixed slice file header (spec.md §6).
type Header struct {
	Width, Height           uint32
	Channels                uint8
	OriginX, OriginY        uint32
	SliceWidth, SliceHeight uint32
	Frames                  uint32
}

// wireHeader is the exact on-disk layout, magic and version included.
type wireHeader struct {
	Magic                   uint32
	Version                 uint16
	Width, Height           uint32
	Channels                uint8
	OriginX, OriginY        uint32
	SliceWidth, SliceHeight uint32
	Frames                  uint32
}

func toWire(h Header) wireHeader {
	return wireHeader{
		Magic:       Magic,
		Version:     Version,
		Width:       h.Width,
		Height:      h.Height,
		Channels:    h.Channels,
		OriginX:     h.OriginX,
		OriginY:     h.OriginY,
		SliceWidth:  h.SliceWidth,
		SliceHeight: h.SliceHeight,
		Frames:      h.Frames,
	}
}

func fromWire(w wireHeader) Header {
	return Header{
		Width:       w.Width,
		Height:      w.Height,
		Channels:    w.Channels,
		OriginX:     w.OriginX,
		OriginY:     w.OriginY,
		SliceWidth:  w.SliceWidth,
		SliceHeight: w.SliceHeight,
		Frames:      w.Frames,
	}
}

// newCompressWriter wraps dst with the chosen compressor at the given
// level (0..9), mapped onto each package's own level constants.
func newCompressWriter(dst io.Writer, codec, level int) (io.WriteCloser, error) {
	switch codec {
	case config.CompressionGzip:
		return gzip.NewWriterLevel(dst, level)
	case config.CompressionZlib:
		return zlib.NewWriterLevel(dst, level)
	case config.CompressionDeflate:
		return flate.NewWriter(dst, level)
	default:
		return nil, errors.Errorf("sliceio: unknown compression codec %d", codec)
	}
}

// newDecompressReader wraps src with the chosen decompressor.
func newDecompressReader(src io.Reader, codec int) (io.ReadCloser, error) {
	switch codec {
	case config.CompressionGzip:
		return gzip.NewReader(src)
	case config.CompressionZlib:
		rc, err := zlib.NewReader(src)
		return rc, err
	case config.CompressionDeflate:
		return flate.NewReader(src), nil
	default:
		return nil, errors.Errorf("sliceio: unknown compression codec %d", codec)
	}
}

// Encoder streams a slice file: the header, then any number of pixel
// blocks written via Write, all compressed into dst.
type Encoder struct {
	comp io.WriteCloser
	buf  *bufio.Writer
}

// NewEncoder writes h immediately and returns an Encoder ready to accept
// pixel bytes via Write. Exactly one Encoder is open per slice at a time
// (spec.md §4.2); the caller is responsible for calling Close exactly
// once when all N frame-blocks have been written.
func NewEncoder(dst io.Writer, h Header, codec, level int) (*Encoder, error) {
	comp, err := newCompressWriter(dst, codec, level)
	if err != nil {
		return nil, errors.Wrap(err, "could not create compressor")
	}
	buf := bufio.NewWriterSize(comp, bufSize)
	if err := binary.Write(buf, binary.BigEndian, toWire(h)); err != nil {
		return nil, errors.Wrap(err, "could not write slice header")
	}
	return &Encoder{comp: comp, buf: buf}, nil
}

// Write appends pixel bytes to the stream.
func (e *Encoder) Write(p []byte) (int, error) {
	n, err := e.buf.Write(p)
	if err != nil {
		return n, errors.Wrap(err, "sliceio: write failed")
	}
	return n, nil
}

// Close flushes and closes the underlying compressor, completing the
// gzip/zlib/deflate member.
func (e *Encoder) Close() error {
	if err := e.buf.Flush(); err != nil {
		return errors.Wrap(err, "sliceio: flush failed")
	}
	if err := e.comp.Close(); err != nil {
		return errors.Wrap(err, "sliceio: close failed")
	}
	return nil
}

// Decoder reads a slice file written by Encoder: the header (available
// immediately after NewDecoder returns) followed by the pixel block via
// Read.
type Decoder struct {
	decomp io.ReadCloser
	Header Header
}

// NewDecoder reads and validates the header from src, decompressing with
// the given codec (the codec is a pipeline-wide setting, not stored in
// the header, so it must be supplied by the caller).
func NewDecoder(src io.Reader, codec int) (*Decoder, error) {
	decomp, err := newDecompressReader(src, codec)
	if err != nil {
		return nil, errors.Wrap(err, "sliceio: could not create decompressor")
	}

	var wh wireHeader
	if err := binary.Read(decomp, binary.BigEndian, &wh); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(ErrCorruptSlice, "truncated header")
		}
		return nil, errors.Wrap(err, "sliceio: could not read slice header")
	}
	if wh.Magic != Magic {
		return nil, ErrCorruptSlice
	}
	if wh.Version != Version {
		return nil, ErrUnsupportedVersion
	}

	return &Decoder{decomp: decomp, Header: fromWire(wh)}, nil
}

// Read reads decoded pixel bytes.
func (d *Decoder) Read(p []byte) (int, error) {
	n, err := d.decomp.Read(p)
	if err != nil && err != io.EOF {
		return n, errors.Wrap(err, "sliceio: read failed")
	}
	return n, err
}

// Close closes the underlying decompressor.
func (d *Decoder) Close() error {
	return d.decomp.Close()
}

// ReadAll reads and returns the full decoded pixel block following the
// header. It is a convenience for C6, which loads one slice file's
// entire N×|S| pixel matrix into memory per worker.
func ReadAll(d *Decoder) ([]byte, error) {
	block, err := io.ReadAll(d.decomp)
	if err != nil {
		return nil, errors.Wrap(err, "sliceio: could not read pixel block")
	}
	return block, nil
}
