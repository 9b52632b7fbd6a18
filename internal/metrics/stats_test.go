package metrics

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		expect float64
	}{
		{"empty", nil, 0},
		{"single", []float64{85.5}, 85.5},
		{"multiple", []float64{80, 90, 100}, 90.0},
		{"all_same", []float64{70, 70, 70}, 70.0},
		{"full_range", []float64{0, 50, 100}, 50.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mean(tt.input)
			if !approxEqual(got, tt.expect) {
				t.Errorf("Mean(%v) = %f, want %f", tt.input, got, tt.expect)
			}
		})
	}
}

func TestVariance(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		expect float64
	}{
		{"empty", nil, 0},
		{"single", []float64{85.5}, 0},
		{"uniform", []float64{90, 90, 90}, 0},
		{"two_scores", []float64{75, 85}, 25.0},
		{"wide_spread", []float64{50, 100}, 625.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Variance(tt.input)
			if !approxEqual(got, tt.expect) {
				t.Errorf("Variance(%v) = %f, want %f", tt.input, got, tt.expect)
			}
		})
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		expect float64
	}{
		{"empty", nil, 0},
		{"single", []float64{85.5}, 0},
		{"two_scores", []float64{75, 85}, 5.0},
		{"wide_spread", []float64{50, 100}, 25.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StdDev(tt.input)
			if !approxEqual(got, tt.expect) {
				t.Errorf("StdDev(%v) = %f, want %f", tt.input, got, tt.expect)
			}
		})
	}
}

func TestConfidenceInterval95(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		wantLo float64
		wantHi float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{85.5}, 85.5, 85.5},
		{"five_equal", []float64{90, 90, 90, 90, 90}, 90, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := ConfidenceInterval95(tt.input)
			if !approxEqual(lo, tt.wantLo) || !approxEqual(hi, tt.wantHi) {
				t.Errorf("ConfidenceInterval95(%v) = (%f, %f), want (%f, %f)",
					tt.input, lo, hi, tt.wantLo, tt.wantHi)
			}
		})
	}
}

func TestConfidenceInterval95_TwoValues(t *testing.T) {
	// mean=85, sampleSD=sqrt(50), margin=1.96*sqrt(50)/sqrt(2)=1.96*5=9.8
	lo, hi := ConfidenceInterval95([]float64{80, 90})
	wantLo := 85.0 - 9.8
	wantHi := 85.0 + 9.8
	if !approxEqual(lo, wantLo) || !approxEqual(hi, wantHi) {
		t.Errorf("got (%f, %f), want (%f, %f)", lo, hi, wantLo, wantHi)
	}
}

func TestIsFlaky(t *testing.T) {
	tests := []struct {
		name     string
		passRate float64
		want     bool
	}{
		{"all_pass", 1.0, false},
		{"all_fail", 0.0, false},
		{"half", 0.5, true},
		{"mostly_pass", 0.9, true},
		{"mostly_fail", 0.1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsFlaky(tt.passRate)
			if got != tt.want {
				t.Errorf("IsFlaky(%f) = %v, want %v", tt.passRate, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{80, 90, 100})

	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if !approxEqual(s.Mean, 90.0) {
		t.Errorf("Mean = %f, want 90", s.Mean)
	}
	if !approxEqual(s.StdDev, math.Sqrt(200.0/3.0)) {
		t.Errorf("StdDev = %f, want %f", s.StdDev, math.Sqrt(200.0/3.0))
	}
	if s.Min != 80 || s.Max != 100 {
		t.Errorf("Min/Max = %f/%f, want 80/100", s.Min, s.Max)
	}
	if s.Lo95 >= s.Mean || s.Hi95 <= s.Mean {
		t.Errorf("CI (%f, %f) should straddle the mean %f", s.Lo95, s.Hi95, s.Mean)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s != (ScoreSummary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero value", s)
	}
}
