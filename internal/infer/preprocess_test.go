package infer

import (
	"strings"
	"testing"

	"github.com/popgen-tools/geva/internal/gen"
)

func TestReadTabularParsesHeaderAndGenotypes(t *testing.T) {
	in := "CHROM POS ALLELE GENDIST s1 s2 s3\n" +
		"1 1000 A 0.0 0|0 0|1 1|1\n" +
		"1 2000 C 0.01 1/1 ./. 0/1\n"
	samples, records, err := ReadTabular(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadTabular: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Position != 1000 || records[0].Allele != "A" {
		t.Errorf("record 0 = %+v", records[0])
	}
	h0, h1 := records[0].Genotypes[2].Haplotypes()
	if h0 != gen.H1 || h1 != gen.H1 {
		t.Errorf("record 0 sample 2 genotype = (%v,%v), want (1,1)", h0, h1)
	}
	h0, h1 = records[1].Genotypes[1].Haplotypes()
	if h0 != gen.HX || h1 != gen.HX {
		t.Errorf("record 1 sample 1 (missing) = (%v,%v), want (.,.)", h0, h1)
	}
}

func TestReadTabularRejectsShortHeader(t *testing.T) {
	if _, _, err := ReadTabular(strings.NewReader("CHROM POS\n")); err == nil {
		t.Fatal("expected error for a header with too few columns")
	}
}

func TestReadTabularRejectsRowFieldMismatch(t *testing.T) {
	in := "CHROM POS ALLELE GENDIST s1 s2\n1 1000 A 0.0 0|0\n"
	if _, _, err := ReadTabular(strings.NewReader(in)); err == nil {
		t.Fatal("expected error for a row with the wrong field count")
	}
}

func TestParseGenotypeTokenRejectsMalformedSymbol(t *testing.T) {
	if _, err := parseGenotypeToken("0|2"); err == nil {
		t.Fatal("expected error for an unrecognised haplotype symbol")
	}
}

func TestBuildSamplesAndMarkersAccumulatesGenDist(t *testing.T) {
	records := []VariantRecord{
		{Position: 100, GenDist: 0.1, Genotypes: []gen.Genotype{gen.MakeGenotype(gen.H0, gen.H0, true), gen.MakeGenotype(gen.H1, gen.H1, true)}},
		{Position: 200, GenDist: 0.2, Genotypes: []gen.Genotype{gen.MakeGenotype(gen.H0, gen.H1, true), gen.MakeGenotype(gen.H1, gen.H1, true)}},
	}
	samples, markers, vectors := BuildSamplesAndMarkers([]string{"a", "b"}, records)
	if len(samples) != 2 || len(markers) != 2 {
		t.Fatalf("unexpected sizes: samples=%d markers=%d", len(samples), len(markers))
	}
	if markers[0].GenDist != 0.1 {
		t.Errorf("markers[0].GenDist = %v, want 0.1", markers[0].GenDist)
	}
	if markers[1].GenDist != 0.30000000000000004 && markers[1].GenDist < 0.29999 {
		t.Errorf("markers[1].GenDist = %v, want ~0.3 (cumulative)", markers[1].GenDist)
	}
	if markers[0].HapCount[0] != 2 || markers[0].HapCount[1] != 2 {
		t.Errorf("markers[0].HapCount = %v, want carrier count derived from both samples' haplotypes", markers[0].HapCount)
	}
	if len(vectors) != 2 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors shape: %d x %d", len(vectors), len(vectors[0]))
	}
}
