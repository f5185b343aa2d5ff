package ibd

import (
	"strings"
	"testing"
)

func TestLoadInitialInterpolatesAndPinsEndpoints(t *testing.T) {
	file := "Frequency CON_NON CON_IBD DIS_NON DIS_IBD\n" +
		"0.5 0.5 0.5 0.9 0.1\n"
	con, dis, err := LoadInitial(strings.NewReader(file), 10)
	if err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	if con[0] != (([2]float64{1, 0})) {
		t.Errorf("con[0] = %v, want [1 0]", con[0])
	}
	if con[10] != (([2]float64{0, 1})) {
		t.Errorf("con[10] = %v, want [0 1]", con[10])
	}
	if dis[0] != (([2]float64{1, 0})) {
		t.Errorf("dis[0] = %v, want [1 0]", dis[0])
	}
	// every integer count 1..9 should have been filled by interpolation
	for k := 1; k < 10; k++ {
		if _, ok := con[k]; !ok {
			t.Errorf("con missing interpolated entry for k=%d", k)
		}
		sum := con[k][0] + con[k][1]
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("con[%d] does not sum to 1: %v", k, con[k])
		}
	}
}

func TestLoadInitialRejectsDuplicateFrequency(t *testing.T) {
	file := "0.5 0.5 0.5 0.9 0.1\n0.5 0.4 0.6 0.8 0.2\n"
	if _, _, err := LoadInitial(strings.NewReader(file), 10); err == nil {
		t.Fatal("expected error for duplicate frequency row")
	}
}

func TestLoadInitialRejectsBadRowSum(t *testing.T) {
	file := "0.5 0.9 0.9 0.9 0.1\n"
	if _, _, err := LoadInitial(strings.NewReader(file), 10); err == nil {
		t.Fatal("expected error for row probabilities not summing to 1")
	}
}

func TestLoadInitialRejectsWrongFieldCount(t *testing.T) {
	file := "0.5 0.5 0.5\n"
	if _, _, err := LoadInitial(strings.NewReader(file), 10); err == nil {
		t.Fatal("expected error for wrong field count")
	}
}

func TestLoadEmissionInterpolatesAndPinsEndpoints(t *testing.T) {
	file := "Frequency NON_00 NON_01 NON_11 IBD_00 IBD_01 IBD_11\n" +
		"0.5 0.8 0.19 0.01 0.01 0.98 0.01\n"
	emiss, err := LoadEmission(strings.NewReader(file), 10)
	if err != nil {
		t.Fatalf("LoadEmission: %v", err)
	}
	if emiss[0][NonState][Obs00] != 1 {
		t.Errorf("emiss[0][NON][Obs00] = %v, want 1", emiss[0][NonState][Obs00])
	}
	if emiss[10][IBDState][Obs11] != 1 {
		t.Errorf("emiss[10][IBD][Obs11] = %v, want 1", emiss[10][IBDState][Obs11])
	}
	for k := 1; k < 10; k++ {
		row, ok := emiss[k]
		if !ok {
			t.Fatalf("emiss missing interpolated entry for k=%d", k)
		}
		if row[NonState][ObsMissing] != 1 || row[IBDState][ObsMissing] != 1 {
			t.Errorf("emiss[%d] missing-observation slot not 1: %v", k, row)
		}
	}
}

func TestDistFromCumulativeRejectsNegativeDelta(t *testing.T) {
	if _, err := DistFromCumulative([]float64{0, 1, 0.5}); err == nil {
		t.Fatal("expected error for decreasing cumulative distance")
	}
}

func TestDistFromCumulativeProducesPositiveDeltas(t *testing.T) {
	out, err := DistFromCumulative([]float64{0, 0.2, 0.5, 1.0})
	if err != nil {
		t.Fatalf("DistFromCumulative: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(out))
	}
	for i, d := range out {
		if d <= 0 {
			t.Errorf("interval %d: delta %v not positive", i, d)
		}
	}
}

func TestFillInitialAndEmissionProjectByCarrierCount(t *testing.T) {
	con := map[int][2]float64{3: {0.1, 0.9}}
	dis := map[int][2]float64{3: {0.7, 0.3}}
	m := &Model{}
	m.FillInitial(con, dis, func(marker int) int { return 3 }, 4)
	for i := 0; i < 4; i++ {
		if m.InitsCon[i] != con[3] {
			t.Errorf("InitsCon[%d] = %v, want %v", i, m.InitsCon[i], con[3])
		}
	}

	emiss := map[int][2][4]float64{3: {{0.25, 0.25, 0.25, 1}, {0.1, 0.1, 0.8, 1}}}
	m.FillEmission(emiss, func(marker int) int { return 3 }, 4)
	for i := 0; i < 4; i++ {
		if m.Emiss[i] != emiss[3] {
			t.Errorf("Emiss[%d] = %v, want %v", i, m.Emiss[i], emiss[3])
		}
	}
}
