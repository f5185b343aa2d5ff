package ibd

import (
	"testing"

	"golang.org/x/exp/rand"
)

func TestSelectPartitionsByFocalValue(t *testing.T) {
	haps := map[Gamete][]int{
		{Sample: 0, Chr: 0}: {0, 1, 1, 1, 0},
		{Sample: 1, Chr: 0}: {0, 1, 1, 1, 0},
		{Sample: 2, Chr: 0}: {1, 1, 0, 0, 0},
		{Sample: 3, Chr: 0}: {0, 0, 0, 0, 1},
	}
	rng := rand.New(rand.NewSource(1))
	con, dis := Select(haps, 2, SelectorOptions{NearestRange: 2, LimitSharers: 10, OutgroupSize: 10}, rng)

	if len(con) != 1 {
		t.Fatalf("expected 1 concordant pair (2 in-gametes), got %d", len(con))
	}
	if len(dis) != 4 {
		t.Fatalf("expected 4 discordant pairs (2 in x 2 out), got %d", len(dis))
	}
	for _, p := range dis {
		if haps[p.In][2] != 1 || haps[p.Out][2] != 0 {
			t.Errorf("discordant pair %+v does not bracket focal values", p)
		}
	}
}

func TestSelectCapsRespected(t *testing.T) {
	haps := map[Gamete][]int{}
	for s := 0; s < 8; s++ {
		v := make([]int, 5)
		v[2] = 1
		haps[Gamete{Sample: s, Chr: 0}] = v
	}
	rng := rand.New(rand.NewSource(1))
	con, _ := Select(haps, 2, SelectorOptions{NearestRange: 2, LimitSharers: 3, OutgroupSize: 3}, rng)
	if len(con) != 3 {
		t.Fatalf("expected LimitSharers to cap concordant pairs at 3, got %d", len(con))
	}
}

func TestDiversifyPrefersDistinctOutGametes(t *testing.T) {
	same := Gamete{Sample: 99, Chr: 0}
	other := Gamete{Sample: 100, Chr: 0}
	sorted := []DiscordantPair{
		{In: Gamete{Sample: 1}, Out: same, Hamming: 0},
		{In: Gamete{Sample: 2}, Out: same, Hamming: 1},
		{In: Gamete{Sample: 3}, Out: other, Hamming: 2},
	}
	out := diversify(sorted, 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 diversified pairs, got %d", len(out))
	}
	if out[0].Out != same || out[1].Out != other {
		t.Errorf("expected distinct Out gametes in order, got %+v", out)
	}
}

func TestHammingIgnoresMissing(t *testing.T) {
	a := []int{0, 1, 2, 1}
	b := []int{0, 0, 2, 1}
	if d := hamming(a, b); d != 1 {
		t.Errorf("hamming = %d, want 1", d)
	}
}
