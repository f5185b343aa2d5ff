package gen

import (
	"bytes"
	"testing"

	"golang.org/x/exp/rand"
)

func buildTestGrid(t *testing.T, nSamples, nMarkers int) *Grid {
	t.Helper()
	samples := make([]Sample, nSamples)
	markers := make([]Marker, nMarkers)
	vectors := make([][]Genotype, nSamples)
	for s := 0; s < nSamples; s++ {
		samples[s] = Sample{ID: s, Label: "s", Phased: true}
		vectors[s] = make([]Genotype, nMarkers)
		for m := 0; m < nMarkers; m++ {
			vectors[s][m] = MakeGenotype(H0, H1, true)
		}
	}
	for m := 0; m < nMarkers; m++ {
		markers[m] = Marker{ID: m, HapCount: [3]uint32{uint32(nSamples), uint32(nSamples), 0}}
	}

	var buf bytes.Buffer
	if err := WriteAll(&buf, samples, markers, vectors, true); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	g, err := Load(bytes.NewReader(buf.Bytes()), rng)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return g
}

func TestGridReadRoundTrip(t *testing.T) {
	g := buildTestGrid(t, 3, 5)
	for s := 0; s < 3; s++ {
		v, err := g.Read(s)
		if err != nil {
			t.Fatalf("Read(%d): %v", s, err)
		}
		if len(v) != 5 {
			t.Fatalf("Read(%d): length %d, want 5", s, len(v))
		}
	}
}

func TestGridCacheEvictsOnlyUnreferenced(t *testing.T) {
	g := buildTestGrid(t, 4, 2)
	g.Cache(1)

	v0, err := g.Get(0)
	if err != nil {
		t.Fatalf("Get(0): %v", err)
	}
	if v0 == nil {
		t.Fatal("Get(0) returned nil vector")
	}
	// sample 0 is still referenced; fetching more samples must not evict it
	for s := 1; s < 4; s++ {
		if _, err := g.Get(s); err != nil {
			t.Fatalf("Get(%d): %v", s, err)
		}
		g.Release(s)
	}
	if _, ok := g.cache[0]; !ok {
		t.Fatal("referenced entry was evicted")
	}
	g.Release(0)
}

func TestGridOutOfRangeSample(t *testing.T) {
	g := buildTestGrid(t, 2, 2)
	if _, err := g.Read(99); err == nil {
		t.Fatal("expected error for out-of-range sample id")
	}
}
