/*
DESCRIPTION
  config_test.go provides testing for the Config struct methods (Validate
  and Update).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

func TestValidateDefaultsAreStable(t *testing.T) {
	dl := &dumbLogger{}
	want := NewDefault(dl)

	got := NewDefault(dl)
	if err := got.Validate(); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	if !cmp.Equal(got, want) {
		t.Errorf("configs not equal\nwant: %+v\ngot: %+v", want, got)
	}
}

func TestValidateDefaultsZeroValue(t *testing.T) {
	dl := &dumbLogger{}
	got := Config{Logger: dl}
	if err := got.Validate(); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	if got.SliceValue != defaultSliceValue {
		t.Errorf("SliceValue = %d, want %d", got.SliceValue, defaultSliceValue)
	}
	if got.CompressionLevel != defaultCompressionLevel {
		t.Errorf("CompressionLevel = %d, want %d", got.CompressionLevel, defaultCompressionLevel)
	}
	if got.TempDir != defaultTempDir {
		t.Errorf("TempDir = %q, want %q", got.TempDir, defaultTempDir)
	}
}

func TestValidateZeroWeightsAllowed(t *testing.T) {
	dl := &dumbLogger{}
	c := NewDefault(dl)
	c.WeightA = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("zero alpha weight should be valid, got error: %v", err)
	}
	if c.WeightA != 0 {
		t.Errorf("WeightA was clobbered to %g, want 0", c.WeightA)
	}
}

func TestValidateNegativeWeightIsFatal(t *testing.T) {
	dl := &dumbLogger{}
	c := NewDefault(dl)
	c.WeightR = -1
	if err := c.Validate(); err == nil {
		t.Fatal("expected ConfigError for negative weight, got nil")
	}
}

func TestValidateShakeRequiresAnchors(t *testing.T) {
	dl := &dumbLogger{}
	c := NewDefault(dl)
	c.ShakeEnabled = true
	c.ShakeAnchorRadius = 8
	if err := c.Validate(); err == nil {
		t.Fatal("expected ConfigError for shake enabled with no anchors, got nil")
	}

	c.ShakeAnchors = []Anchor{{X: 10, Y: 10}}
	if err := c.Validate(); err != nil {
		t.Fatalf("did not expect error with anchors configured: %v", err)
	}
}

func TestValidateThresholdHiMustExceedLo(t *testing.T) {
	dl := &dumbLogger{}
	c := NewDefault(dl)
	c.ThresholdLo = 0.3
	c.ThresholdHi = 0.2
	c.HasThresholdHi = true
	if err := c.Validate(); err == nil {
		t.Fatal("expected ConfigError for ThresholdHi <= ThresholdLo, got nil")
	}
}

func TestUpdate(t *testing.T) {
	updateMap := map[string]string{
		KeyMode:             "outlier",
		KeyThresholdKind:    "rel",
		KeyThresholdLo:      "0.1",
		KeyThresholdHi:      "0.3",
		KeyOutlier:          "forward",
		KeyBackground:       "median",
		KeyWeightR:          "1",
		KeyWeightG:          "1",
		KeyWeightB:          "1",
		KeyWeightA:          "0",
		KeySample:           "50",
		KeySliceKind:        "pixels",
		KeySliceValue:       "2000",
		KeyCompressionCodec: "zlib",
		KeyCompressionLevel: "9",
		KeyTempDir:          "/tmp/chrono",
		KeyThreads:          "4",
		KeyShakeEnabled:     "true",
	}

	dl := &dumbLogger{}
	want := Config{
		Logger:           dl,
		Mode:             ModeOutlier,
		ThresholdKind:    ThresholdRel,
		ThresholdLo:      0.1,
		ThresholdHi:      0.3,
		HasThresholdHi:   true,
		Outlier:          PickForward,
		Background:       BackgroundMedian,
		WeightR:          1,
		WeightG:          1,
		WeightB:          1,
		WeightA:          0,
		Sample:           50,
		SliceKind:        SlicePixels,
		SliceValue:       2000,
		CompressionCodec: CompressionZlib,
		CompressionLevel: 9,
		TempDir:          "/tmp/chrono",
		Threads:          4,
		ShakeEnabled:     true,
	}

	got := Config{Logger: dl}
	got.Update(updateMap)
	if !cmp.Equal(want, got) {
		t.Errorf("configs not equal\nwant: %+v\ngot: %+v", want, got)
	}
}
