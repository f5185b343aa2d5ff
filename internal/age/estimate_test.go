package age

import (
	"math"
	"testing"
)

func peakedCCF(p *Param, peakIdx int, share bool) *CCF {
	d := make([]float64, len(p.Time))
	for i := range d {
		dist := math.Abs(float64(i - peakIdx))
		d[i] = math.Exp(-dist * dist / 4)
	}
	return &CCF{D: d, Q25: p.Time[1], Q50: p.Time[peakIdx], Q75: p.Time[len(p.Time)-2], Good: true, Pass: true}
}

func TestEstimateIncludeRejectsOutOfRangeQuantiles(t *testing.T) {
	p := NewParam(10, 100, 10000, 1e-8)
	e := NewEstimate(p)
	bad := &CCF{D: make([]float64, len(p.Time)), Good: true, Pass: true, Q25: p.Time[0], Q50: p.Time[0], Q75: p.Time[0]}
	if e.Include(bad, true) {
		t.Fatal("expected Include to reject a CCF whose quantiles sit outside the grid range")
	}
	if bad.Good {
		t.Error("expected rejected CCF to be marked not-Good")
	}
}

func TestEstimateIncludeRejectsNotGoodOrNotPass(t *testing.T) {
	p := NewParam(10, 100, 10000, 1e-8)
	e := NewEstimate(p)
	notGood := &CCF{Good: false, Pass: true}
	if e.Include(notGood, true) {
		t.Fatal("expected Include to reject a not-Good CCF")
	}
	notPass := &CCF{Good: true, Pass: false}
	if e.Include(notPass, true) {
		t.Fatal("expected Include to reject a not-Pass CCF")
	}
}

func TestEstimateProducesNormalizedPosterior(t *testing.T) {
	p := NewParam(10, 100, 10000, 1e-8)
	mid := len(p.Time) / 2
	e := NewEstimate(p)
	con := peakedCCF(p, mid, true)
	dis := peakedCCF(p, mid+5, false)
	if !e.Include(con, true) {
		t.Fatal("expected concordant CCF to be included")
	}
	if !e.Include(dis, false) {
		t.Fatal("expected discordant CCF to be included")
	}
	cle := e.Estimate()
	if !cle.Good {
		t.Fatal("expected CLE.Good = true")
	}
	if cle.NCon != 1 || cle.NDis != 1 {
		t.Errorf("NCon=%d NDis=%d, want 1/1", cle.NCon, cle.NDis)
	}
	maxPeak := 0.0
	for _, v := range cle.Seq {
		if v > maxPeak {
			maxPeak = v
		}
	}
	if math.Abs(maxPeak-1) > 1e-9 {
		t.Errorf("expected posterior peak normalised to 1, got %v", maxPeak)
	}
	if cle.Mode <= 0 {
		t.Errorf("Mode = %v, want > 0", cle.Mode)
	}
}

func TestEstimateReturnsNotGoodWithoutBothClasses(t *testing.T) {
	p := NewParam(10, 100, 10000, 1e-8)
	e := NewEstimate(p)
	con := peakedCCF(p, len(p.Time)/2, true)
	e.Include(con, true)
	cle := e.Estimate()
	if cle.Good {
		t.Error("expected CLE.Good = false when only one class contributed")
	}
}

func TestFilterFailsApproximatelyHalfOfExtremePairs(t *testing.T) {
	p := NewParam(10, 100, 10000, 1e-8)
	var candidates []FilterCandidate
	// 4 concordant pairs with late (large) Q50: all above any reasonable t*
	for i := 0; i < 4; i++ {
		candidates = append(candidates, FilterCandidate{CCF: &CCF{Pass: true}, Q50: p.Time[len(p.Time)-1-i], Share: true})
	}
	// 4 discordant pairs with early (small) Q50
	for i := 0; i < 4; i++ {
		candidates = append(candidates, FilterCandidate{CCF: &CCF{Pass: true}, Q50: p.Time[i], Share: false})
	}
	Filter(p, candidates)

	failedCon, failedDis := 0, 0
	for _, c := range candidates {
		if !c.CCF.Pass {
			if c.Share {
				failedCon++
			} else {
				failedDis++
			}
		}
	}
	if failedCon == 0 && failedDis == 0 {
		t.Error("expected Filter to fail at least some extreme pairs")
	}
}

func TestFilterNoopWithOnlyOneClass(t *testing.T) {
	p := NewParam(10, 100, 10000, 1e-8)
	candidates := []FilterCandidate{
		{CCF: &CCF{Pass: true}, Q50: p.Time[0], Share: true},
	}
	Filter(p, candidates)
	if !candidates[0].CCF.Pass {
		t.Error("Filter should not touch pairs when the opposing class is empty")
	}
}

func TestInterpolateCrossingLinear(t *testing.T) {
	cumsum := []float64{0, 0.5, 1}
	time := []float64{0, 10, 20}
	got := interpolateCrossing(cumsum, time, 0.25)
	if math.Abs(got-5) > 1e-9 {
		t.Errorf("interpolateCrossing = %v, want 5", got)
	}
}
