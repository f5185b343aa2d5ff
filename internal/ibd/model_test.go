package ibd

import (
	"math"
	"testing"
)

func TestExpectedAgeBounds(t *testing.T) {
	m := NewModel(10000, 100, nil)
	if got := m.ExpectedAge(0); got != decimalErr {
		t.Errorf("ExpectedAge(0) = %v, want %v", got, decimalErr)
	}
	if got := m.ExpectedAge(1); got != decimalErr {
		t.Errorf("ExpectedAge(1) = %v, want %v", got, decimalErr)
	}
	if got := m.ExpectedAge(100); got != 2 {
		t.Errorf("ExpectedAge(Nh) = %v, want 2", got)
	}
	if got := m.ExpectedAge(50); got <= 0 {
		t.Errorf("ExpectedAge(50) = %v, want > 0", got)
	}
}

func TestTransitionProbabilitiesBounded(t *testing.T) {
	m := NewModel(10000, 20, []float64{0.1, 0.5, 1.0})
	trans, err := m.Transition(10)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if len(trans) != 3 {
		t.Fatalf("expected 3 interval matrices, got %d", len(trans))
	}
	for i, T := range trans {
		if T[NonState][NonState] != 1 || T[NonState][IBDState] != 0 {
			t.Errorf("interval %d: NON row not absorbing: %v", i, T[NonState])
		}
		p := T[IBDState][IBDState]
		if p < 0 || p > 1 {
			t.Errorf("interval %d: IBD->IBD probability %v out of [0,1]", i, p)
		}
		if math.Abs(T[IBDState][NonState]+T[IBDState][IBDState]-1) > 1e-9 {
			t.Errorf("interval %d: IBD row does not sum to 1: %v", i, T[IBDState])
		}
	}
}

func TestTransitionCachesPerFk(t *testing.T) {
	m := NewModel(10000, 20, []float64{0.2})
	a, err := m.Transition(5)
	if err != nil {
		t.Fatalf("Transition(5): %v", err)
	}
	b, err := m.Transition(5)
	if err != nil {
		t.Fatalf("Transition(5) again: %v", err)
	}
	if &a[0] != &b[0] {
		t.Error("expected cached transition table to be the same backing array")
	}
}

func TestNormalizeRowSumsToOne(t *testing.T) {
	row := normalizeRow([2]float64{0, 1})
	if math.Abs(row[0]+row[1]-1) > 1e-12 {
		t.Errorf("row does not sum to 1: %v", row)
	}
	if row[0] <= 0 {
		t.Errorf("zero entry was not bumped off zero: %v", row[0])
	}
}

func TestGenerateExpectedPinsEndpoints(t *testing.T) {
	m := NewModel(10000, 20, []float64{0.1, 0.1, 0.1})
	m.GenerateExpected(4, []float64{0.1, 0.2, 0.3, 0.4}, 1e-4)
	if m.InitsCon[0][IBDState] != 0.5 {
		t.Errorf("first marker InitsCon IBD = %v, want 0.5", m.InitsCon[0][IBDState])
	}
	if m.InitsCon[3][IBDState] != 0.5 {
		t.Errorf("last marker InitsCon IBD = %v, want 0.5", m.InitsCon[3][IBDState])
	}
	if m.InitsCon[1][IBDState] <= m.InitsCon[1][NonState] {
		t.Errorf("interior marker should favour IBD: %v", m.InitsCon[1])
	}
}
