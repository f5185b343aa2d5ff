package ibd

import "testing"

func TestDetectSegDiffCountsMismatches(t *testing.T) {
	a := []int{1, 0, 1, 1, 0, 1}
	b := []int{1, 1, 1, 0, 0, 0}
	seg := Segment{Lhs: 0, Focal: 2, Rhs: 5}
	sd := DetectSegDiff(a, b, seg)
	if sd.Left != 1 {
		t.Errorf("Left = %d, want 1", sd.Left)
	}
	if sd.Right != 2 {
		t.Errorf("Right = %d, want 2", sd.Right)
	}
}

func TestDetectSegDiffSkipsMissing(t *testing.T) {
	a := []int{2, 1}
	b := []int{0, 1}
	seg := Segment{Lhs: 0, Focal: 1, Rhs: 1}
	sd := DetectSegDiff(a, b, seg)
	if sd.Left != 0 {
		t.Errorf("Left = %d, want 0 (missing site skipped)", sd.Left)
	}
}

func TestApproxSegDiffDropsHighFreqMismatches(t *testing.T) {
	a := []int{1, 0, 1}
	b := []int{0, 0, 1}
	seg := Segment{Lhs: 0, Focal: 2, Rhs: 2}
	altCount := func(i int) int { return 50 } // above fk: must not count
	sd := ApproxSegDiff(a, b, seg, altCount, 4)
	if sd.Left != 0 {
		t.Errorf("Left = %d, want 0 (mismatch above fk threshold dropped)", sd.Left)
	}

	altCountLow := func(i int) int { return 2 } // at/below fk: counts
	sd2 := ApproxSegDiff(a, b, seg, altCountLow, 4)
	if sd2.Left != 1 {
		t.Errorf("Left = %d, want 1", sd2.Left)
	}
}
