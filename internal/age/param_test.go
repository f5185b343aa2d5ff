package age

import (
	"math"
	"testing"
)

func TestNewTimeGridIsIncreasingAndBounded(t *testing.T) {
	time, prior := NewTimeGrid(16, 1e-8, 40)
	if len(time) != 16 || len(prior) != 16 {
		t.Fatalf("expected length 16, got %d/%d", len(time), len(prior))
	}
	if time[0] != 1e-8 {
		t.Errorf("time[0] = %v, want 1e-8", time[0])
	}
	if d := time[15] - 40; d < -1e-9 || d > 1e-9 {
		t.Errorf("time[last] = %v, want 40", time[15])
	}
	for i := 1; i < len(time); i++ {
		if time[i] <= time[i-1] {
			t.Fatalf("time grid not strictly increasing at %d: %v <= %v", i, time[i], time[i-1])
		}
	}
	// prior stored in log-space; check its exponentials sum to 1
	expSum := 0.0
	for _, p := range prior {
		expSum += math.Exp(p)
	}
	if d := expSum - 1; d < -1e-9 || d > 1e-9 {
		t.Errorf("exp(logPrior) should sum to 1, got %v", expSum)
	}
}

func TestNewParamAppliesDefaults(t *testing.T) {
	p := NewParam(50, 1000, 10000, 1e-8)
	if p.Nh != 100 {
		t.Errorf("Nh = %d, want 100", p.Nh)
	}
	if p.Theta != 4*10000*1e-8 {
		t.Errorf("Theta = %v, want %v", p.Theta, 4*10000*1e-8)
	}
	if p.LimitSharers != DefaultLimitSharers || p.OutgroupSize != DefaultOutgroupSize {
		t.Errorf("expected default caps, got LimitSharers=%d OutgroupSize=%d", p.LimitSharers, p.OutgroupSize)
	}
	if len(p.Time) != DefaultNT {
		t.Errorf("Time length = %d, want %d", len(p.Time), DefaultNT)
	}
}

func TestAtGlobalBoundary(t *testing.T) {
	p := &Param{FirstBoundary: 0, LastBoundary: 9}
	if !p.AtGlobalBoundary(0) || !p.AtGlobalBoundary(9) {
		t.Error("expected endpoints to be global boundaries")
	}
	if p.AtGlobalBoundary(5) {
		t.Error("interior marker incorrectly flagged as global boundary")
	}
}
