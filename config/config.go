/*
NAME
  config.go

DESCRIPTION
  config.go defines the Config struct controlling a chronophoto pipeline
  run: slicing policy, outlier/background selection policy, compression,
  and shake compensation.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for the chronophoto
// time-axis outlier pipeline.
package config

import (
	"runtime"

	"github.com/ausocean/utils/logging"
)

// Mode selects the compositing algorithm. Only ModeOutlier is implemented
// by this core; ModeLighter and ModeDarker are trivial min/max reductions
// left to the collaborator per spec.
const (
	ModeOutlier = iota
	ModeLighter
	ModeDarker
)

// Threshold kinds (§4.4).
const (
	ThresholdAbs = iota
	ThresholdRel
)

// Outlier pick policies (§4.4).
const (
	PickExtreme = iota
	PickAverage
	PickFirst
	PickLast
	PickForward
	PickBackward
)

// Background selection policies (§4.5).
const (
	BackgroundRandom = iota
	BackgroundFirst
	BackgroundAverage
	BackgroundMedian
)

// Slice policy kinds (§4.2).
const (
	SliceRows = iota
	SlicePixels
	SliceCount
)

// Compression codecs (§4.1/§6).
const (
	CompressionGzip = iota
	CompressionZlib
	CompressionDeflate
)

// Anchor describes a single shake-compensation anchor point (§4.8).
type Anchor struct {
	X, Y int
}

// Config provides parameters relevant to one chronophoto run. Default
// values for these fields are defined as consts in variables.go and are
// applied by Validate.
type Config struct {
	// Logger holds an implementation of the Logger interface. This must be
	// set for pipeline.Run to work correctly.
	Logger logging.Logger

	// LogLevel is the logging verbosity level (logging.Debug .. logging.Fatal).
	LogLevel int8

	// Mode selects the compositing algorithm. Only ModeOutlier is handled
	// by this module.
	Mode int

	// ThresholdKind is ThresholdAbs or ThresholdRel.
	ThresholdKind int
	ThresholdLo   float64
	ThresholdHi   float64
	// HasThresholdHi records whether a hi threshold was configured; if
	// false, any outlier candidate blends at full opacity (α = 1).
	HasThresholdHi bool

	// Outlier is the pick-one policy amongst outlier candidates.
	Outlier int

	// Background is the replacement-color policy when no outlier is
	// selected, or for samples classified as background.
	Background int

	// WeightR, WeightG, WeightB and WeightA are the per-channel weights
	// used in the distance computation of §4.4. A zero weight excludes
	// the channel from the distance metric entirely.
	WeightR, WeightG, WeightB, WeightA float64

	// Sample is the number of frames to sub-sample per pixel when
	// computing statistics; 0 means use all N frames.
	Sample int

	// SliceKind is SliceRows, SlicePixels or SliceCount, and SliceValue is
	// its associated n/k parameter (§4.2).
	SliceKind  int
	SliceValue int

	// CompressionCodec is CompressionGzip, CompressionZlib or
	// CompressionDeflate, and CompressionLevel is 0..9.
	CompressionCodec int
	CompressionLevel int

	// TempDir is the directory under which slice files are created; a
	// relative path is taken relative to the OS temp directory.
	TempDir string

	// Threads is the worker pool size; 0 defaults to the detected CPU
	// count.
	Threads int

	// ShakeEnabled turns on the shake compensator (C8).
	ShakeEnabled bool

	// ShakeAnchorRadius (r_anchor) and ShakeSearchRadius (r_search)
	// control the template/search window sizes.
	ShakeAnchorRadius int
	ShakeSearchRadius int

	// ShakeAnchors lists the anchor points used for shake compensation.
	// Required (non-empty) when ShakeEnabled is true.
	ShakeAnchors []Anchor
}

// Validate checks config fields for validity, defaulting any unset or
// nonsensical field that has a sensible default (logging the substitution),
// and returning a non-nil error for fields that spec.md §7 requires to be
// fatal ConfigErrors: a malformed threshold/policy selector, negative
// weights, or shake enabled with no anchors.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			if err := v.Validate(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their
// corresponding string values, parses them, and sets the corresponding
// Config fields.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

// LogInvalidField logs that a field was bad or unset and has been
// defaulted to def.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

// ResolvedThreads returns c.Threads, or runtime.NumCPU() if c.Threads <= 0.
func (c *Config) ResolvedThreads() int {
	if c.Threads <= 0 {
		return runtime.NumCPU()
	}
	return c.Threads
}
