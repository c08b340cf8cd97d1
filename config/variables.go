/*
NAME
  variables.go

DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, a
  function for updating the variable in the Config struct from a string,
  and a validation function to check (and where possible, default) the
  corresponding field value in the Config. Validate functions that detect
  a spec.md §7 ConfigError return a non-nil error instead of defaulting.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"
)

// Config map keys, used by Update and as the canonical parameter names in
// logged warnings.
const (
	KeyMode              = "mode"
	KeyThresholdKind     = "ThresholdKind"
	KeyThresholdLo       = "ThresholdLo"
	KeyThresholdHi       = "ThresholdHi"
	KeyOutlier           = "outlier"
	KeyBackground        = "background"
	KeyWeightR           = "WeightR"
	KeyWeightG           = "WeightG"
	KeyWeightB           = "WeightB"
	KeyWeightA           = "WeightA"
	KeySample            = "sample"
	KeySliceKind         = "SliceKind"
	KeySliceValue        = "SliceValue"
	KeyCompressionCodec  = "CompressionCodec"
	KeyCompressionLevel  = "CompressionLevel"
	KeyTempDir           = "temp-dir"
	KeyThreads           = "threads"
	KeyShakeEnabled      = "ShakeEnabled"
	KeyShakeAnchorRadius = "ShakeAnchorRadius"
	KeyShakeSearchRadius = "ShakeSearchRadius"
	KeyLogging           = "logging"
)

// ConfigError is returned by Validate for a malformed configuration that
// spec.md §7 requires to be fatal before any IO takes place.
type ConfigError struct{ msg string }

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// Default variable values (spec.md §6 "Default" column).
const (
	defaultThresholdKind    = ThresholdAbs
	defaultThresholdLo      = 0.05
	defaultThresholdHi      = 0.2
	defaultOutlier          = PickExtreme
	defaultBackground       = BackgroundRandom
	defaultWeight           = 1.0
	defaultSliceKind        = SliceRows
	defaultSliceValue       = 4
	defaultCompressionCodec = CompressionGzip
	defaultCompressionLevel = 6
	defaultTempDir          = "chrono-photo"
)

// Variables describes the variables that can be used for chronophoto
// control: a name, a function for updating this variable in a Config, and
// a function for validating/defaulting the value of the variable.
var Variables = []struct {
	Name     string
	Update   func(*Config, string)
	Validate func(*Config) error
}{
	{
		Name: KeyMode,
		Update: func(c *Config, v string) {
			switch strings.ToLower(v) {
			case "outlier":
				c.Mode = ModeOutlier
			case "lighter":
				c.Mode = ModeLighter
			case "darker":
				c.Mode = ModeDarker
			default:
				c.Logger.Warning("invalid mode param", "value", v)
			}
		},
	},
	{
		Name: KeyThresholdKind,
		Update: func(c *Config, v string) {
			switch strings.ToLower(v) {
			case "abs":
				c.ThresholdKind = ThresholdAbs
			case "rel":
				c.ThresholdKind = ThresholdRel
			default:
				c.Logger.Warning("invalid threshold kind param", "value", v)
			}
		},
		Validate: func(c *Config) error {
			if c.ThresholdKind != ThresholdAbs && c.ThresholdKind != ThresholdRel {
				return configErrorf("invalid threshold kind: %d", c.ThresholdKind)
			}
			return nil
		},
	},
	{
		Name:   KeyThresholdLo,
		Update: func(c *Config, v string) { c.ThresholdLo = parseFloat(KeyThresholdLo, v, c) },
		Validate: func(c *Config) error {
			if c.ThresholdLo == 0 {
				c.ThresholdLo = defaultThresholdLo
			}
			if c.ThresholdLo < 0 {
				return configErrorf("ThresholdLo must be non-negative, got %g", c.ThresholdLo)
			}
			return nil
		},
	},
	{
		Name: KeyThresholdHi,
		Update: func(c *Config, v string) {
			c.ThresholdHi = parseFloat(KeyThresholdHi, v, c)
			c.HasThresholdHi = true
		},
		Validate: func(c *Config) error {
			if !c.HasThresholdHi {
				return nil
			}
			if c.ThresholdHi <= c.ThresholdLo {
				return configErrorf("ThresholdHi (%g) must exceed ThresholdLo (%g)", c.ThresholdHi, c.ThresholdLo)
			}
			return nil
		},
	},
	{
		Name: KeyOutlier,
		Update: func(c *Config, v string) {
			p, ok := pickPolicies[strings.ToLower(v)]
			if !ok {
				c.Logger.Warning("invalid outlier pick policy", "value", v)
				return
			}
			c.Outlier = p
		},
	},
	{
		Name: KeyBackground,
		Update: func(c *Config, v string) {
			p, ok := backgroundPolicies[strings.ToLower(v)]
			if !ok {
				c.Logger.Warning("invalid background policy", "value", v)
				return
			}
			c.Background = p
		},
	},
	{
		Name:   KeyWeightR,
		Update: func(c *Config, v string) { c.WeightR = parseFloat(KeyWeightR, v, c) },
		Validate: func(c *Config) error { return validateWeight(KeyWeightR, &c.WeightR) },
	},
	{
		Name:   KeyWeightG,
		Update: func(c *Config, v string) { c.WeightG = parseFloat(KeyWeightG, v, c) },
		Validate: func(c *Config) error { return validateWeight(KeyWeightG, &c.WeightG) },
	},
	{
		Name:   KeyWeightB,
		Update: func(c *Config, v string) { c.WeightB = parseFloat(KeyWeightB, v, c) },
		Validate: func(c *Config) error { return validateWeight(KeyWeightB, &c.WeightB) },
	},
	{
		Name:   KeyWeightA,
		Update: func(c *Config, v string) { c.WeightA = parseFloat(KeyWeightA, v, c) },
		Validate: func(c *Config) error { return validateWeight(KeyWeightA, &c.WeightA) },
	},
	{
		Name:   KeySample,
		Update: func(c *Config, v string) { c.Sample = int(parseUint(KeySample, v, c)) },
		Validate: func(c *Config) error {
			if c.Sample < 0 {
				return configErrorf("Sample must be non-negative, got %d", c.Sample)
			}
			return nil
		},
	},
	{
		Name: KeySliceKind,
		Update: func(c *Config, v string) {
			switch strings.ToLower(v) {
			case "rows":
				c.SliceKind = SliceRows
			case "pixels":
				c.SliceKind = SlicePixels
			case "count":
				c.SliceKind = SliceCount
			default:
				c.Logger.Warning("invalid slice kind param", "value", v)
			}
		},
	},
	{
		Name:   KeySliceValue,
		Update: func(c *Config, v string) { c.SliceValue = int(parseUint(KeySliceValue, v, c)) },
		Validate: func(c *Config) error {
			if c.SliceValue <= 0 {
				c.LogInvalidField(KeySliceValue, defaultSliceValue)
				c.SliceValue = defaultSliceValue
			}
			return nil
		},
	},
	{
		Name: KeyCompressionCodec,
		Update: func(c *Config, v string) {
			switch strings.ToLower(v) {
			case "gzip":
				c.CompressionCodec = CompressionGzip
			case "zlib":
				c.CompressionCodec = CompressionZlib
			case "deflate":
				c.CompressionCodec = CompressionDeflate
			default:
				c.Logger.Warning("invalid compression codec param", "value", v)
			}
		},
	},
	{
		Name:   KeyCompressionLevel,
		Update: func(c *Config, v string) { c.CompressionLevel = int(parseUint(KeyCompressionLevel, v, c)) },
		Validate: func(c *Config) error {
			if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
				c.LogInvalidField(KeyCompressionLevel, defaultCompressionLevel)
				c.CompressionLevel = defaultCompressionLevel
			}
			return nil
		},
	},
	{
		Name:   KeyTempDir,
		Update: func(c *Config, v string) { c.TempDir = v },
		Validate: func(c *Config) error {
			if c.TempDir == "" {
				c.LogInvalidField(KeyTempDir, defaultTempDir)
				c.TempDir = defaultTempDir
			}
			return nil
		},
	},
	{
		Name:   KeyThreads,
		Update: func(c *Config, v string) { c.Threads = int(parseUint(KeyThreads, v, c)) },
		Validate: func(c *Config) error {
			if c.Threads < 0 {
				return configErrorf("Threads must be non-negative, got %d", c.Threads)
			}
			return nil
		},
	},
	{
		Name:   KeyShakeEnabled,
		Update: func(c *Config, v string) { c.ShakeEnabled = parseBool(KeyShakeEnabled, v, c) },
		Validate: func(c *Config) error {
			if !c.ShakeEnabled {
				return nil
			}
			if len(c.ShakeAnchors) == 0 {
				return configErrorf("shake compensation enabled but no anchors configured")
			}
			if c.ShakeAnchorRadius <= 0 {
				return configErrorf("shake compensation enabled but ShakeAnchorRadius is non-positive: %d", c.ShakeAnchorRadius)
			}
			if c.ShakeSearchRadius < 0 {
				return configErrorf("ShakeSearchRadius must be non-negative, got %d", c.ShakeSearchRadius)
			}
			return nil
		},
	},
}

var pickPolicies = map[string]int{
	"extreme":  PickExtreme,
	"average":  PickAverage,
	"first":    PickFirst,
	"last":     PickLast,
	"forward":  PickForward,
	"backward": PickBackward,
}

var backgroundPolicies = map[string]int{
	"random":  BackgroundRandom,
	"first":   BackgroundFirst,
	"average": BackgroundAverage,
	"median":  BackgroundMedian,
}

func validateWeight(name string, w *float64) error {
	if *w < 0 {
		return configErrorf("%s must be non-negative, got %g", name, *w)
	}
	return nil
}

func parseFloat(n, v string, c *Config) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected float for param %s", n), "value", v)
	}
	return f
}

func parseUint(n, v string, c *Config) uint {
	u, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(u)
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expected bool for param %s", n), "value", v)
	}
	return
}

// NewDefault returns a Config with every field set to spec.md §6's default
// value and the given logger attached. Callers typically start from
// NewDefault, apply Update with collaborator-provided overrides, then call
// Validate.
func NewDefault(logger logging.Logger) Config {
	return Config{
		Logger:           logger,
		Mode:             ModeOutlier,
		ThresholdKind:    defaultThresholdKind,
		ThresholdLo:      defaultThresholdLo,
		ThresholdHi:      defaultThresholdHi,
		HasThresholdHi:   true,
		Outlier:          defaultOutlier,
		Background:       defaultBackground,
		WeightR:          defaultWeight,
		WeightG:          defaultWeight,
		WeightB:          defaultWeight,
		WeightA:          defaultWeight,
		SliceKind:        defaultSliceKind,
		SliceValue:       defaultSliceValue,
		CompressionCodec: defaultCompressionCodec,
		CompressionLevel: defaultCompressionLevel,
		TempDir:          defaultTempDir,
	}
}
