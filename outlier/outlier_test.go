package outlier

import (
	"math"
	"testing"

	"github.com/ausocean/chronophoto/config"
	"github.com/ausocean/chronophoto/stats"
)

func unitWeights() Weights { return Weights{R: 1, G: 1, B: 1, A: 0} }

func constStats(v float64) PixelStats {
	s := stats.Summary{Median: v, Q1: v, Q3: v}
	return PixelStats{R: s, G: s, B: s, A: s}
}

func TestClassifyAllEqualIsBackground(t *testing.T) {
	ps := constStats(0.5)
	s := Sample{R: 0.5, G: 0.5, B: 0.5}
	_, ok := Classify(s, ps, unitWeights(), config.ThresholdAbs, 0.05, 0.2, true)
	if ok {
		t.Fatal("identical sample should classify as background")
	}
}

func TestClassifyAbsOutlierNoHi(t *testing.T) {
	ps := constStats(0.5)
	s := Sample{R: 0.9, G: 0.5, B: 0.5}
	c, ok := Classify(s, ps, unitWeights(), config.ThresholdAbs, 0.05, 0, false)
	if !ok {
		t.Fatal("expected an outlier classification")
	}
	if c.Alpha != 1 {
		t.Errorf("Alpha = %v, want 1 (hi omitted)", c.Alpha)
	}
}

func TestClassifyRelZeroSpreadIsBackground(t *testing.T) {
	ps := constStats(0.5) // IQR == 0 for every channel.
	s := Sample{R: 0.9, G: 0.5, B: 0.5}
	_, ok := Classify(s, ps, unitWeights(), config.ThresholdRel, 0.05, 0.2, true)
	if ok {
		t.Fatal("N=1/zero-spread sample should be background under rel threshold")
	}
}

func TestClassifyAlphaBand(t *testing.T) {
	ps := constStats(0.0)
	// d = 0.15 with lo=0.1, hi=0.3 -> alpha = (0.15-0.1)/(0.3-0.1) = 0.25.
	s := Sample{R: 0.15}
	c, ok := Classify(s, ps, Weights{R: 1}, config.ThresholdAbs, 0.1, 0.3, true)
	if !ok {
		t.Fatal("expected outlier classification")
	}
	if math.Abs(c.Alpha-0.25) > 1e-9 {
		t.Errorf("Alpha = %v, want 0.25", c.Alpha)
	}
}

func TestPickFirstLast(t *testing.T) {
	cands := []Candidate{
		{Sample: Sample{Frame: 1, R: 0.1}, Alpha: 1},
		{Sample: Sample{Frame: 2, R: 0.2}, Alpha: 1},
		{Sample: Sample{Frame: 3, R: 0.3}, Alpha: 1},
	}
	if got := Pick(cands, Sample{}, unitWeights(), config.PickFirst); got.Sample.Frame != 1 {
		t.Errorf("PickFirst frame = %d, want 1", got.Sample.Frame)
	}
	if got := Pick(cands, Sample{}, unitWeights(), config.PickLast); got.Sample.Frame != 3 {
		t.Errorf("PickLast frame = %d, want 3", got.Sample.Frame)
	}
}

func TestPickExtreme(t *testing.T) {
	median := Sample{R: 0, G: 0, B: 0}
	cands := []Candidate{
		{Sample: Sample{Frame: 1, R: 0.1}, Alpha: 1},
		{Sample: Sample{Frame: 2, R: 0.9}, Alpha: 1},
		{Sample: Sample{Frame: 3, R: 0.3}, Alpha: 1},
	}
	got := Pick(cands, median, unitWeights(), config.PickExtreme)
	if got.Sample.Frame != 2 {
		t.Errorf("PickExtreme frame = %d, want 2 (max distance from median)", got.Sample.Frame)
	}
}

func TestPickAverage(t *testing.T) {
	cands := []Candidate{
		{Sample: Sample{Frame: 1, R: 0.2}, Alpha: 0.5},
		{Sample: Sample{Frame: 2, R: 0.6}, Alpha: 1.0},
	}
	got := Pick(cands, Sample{}, unitWeights(), config.PickAverage)
	if math.Abs(got.Sample.R-0.4) > 1e-9 {
		t.Errorf("average R = %v, want 0.4", got.Sample.R)
	}
	if got.Alpha != 1.0 {
		t.Errorf("average Alpha = %v, want max alpha 1.0", got.Alpha)
	}
}

func TestPickForwardFullyOpaqueConvergesToLast(t *testing.T) {
	background := Sample{R: 0}
	cands := []Candidate{
		{Sample: Sample{Frame: 1, R: 0.2}, Alpha: 1},
		{Sample: Sample{Frame: 2, R: 0.8}, Alpha: 1},
	}
	got := Pick(cands, background, unitWeights(), config.PickForward)
	if math.Abs(got.Sample.R-0.8) > 1e-9 {
		t.Errorf("forward composite with opaque layers R = %v, want 0.8 (last wins)", got.Sample.R)
	}
	if math.Abs(got.Alpha-1) > 1e-9 {
		t.Errorf("composite alpha = %v, want 1", got.Alpha)
	}
}

func TestPickBackwardFullyOpaqueConvergesToFirst(t *testing.T) {
	background := Sample{R: 0}
	cands := []Candidate{
		{Sample: Sample{Frame: 1, R: 0.2}, Alpha: 1},
		{Sample: Sample{Frame: 2, R: 0.8}, Alpha: 1},
	}
	got := Pick(cands, background, unitWeights(), config.PickBackward)
	if math.Abs(got.Sample.R-0.2) > 1e-9 {
		t.Errorf("backward composite with opaque layers R = %v, want 0.2 (first wins)", got.Sample.R)
	}
}
