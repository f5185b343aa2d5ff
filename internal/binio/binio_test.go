package binio

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	mustWrite(t, w.Checkpoint())
	mustWrite(t, w.Uint16(42))
	mustWrite(t, w.Uint32(123456))
	mustWrite(t, w.Uint64(9999999999))
	mustWrite(t, w.Float64(3.14159))
	mustWrite(t, w.Bool(true))
	mustWrite(t, w.String("hello"))
	mustWrite(t, w.Checkpoint())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if err := r.Match(); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if v, err := r.Uint16(); err != nil || v != 42 {
		t.Fatalf("Uint16 = %d, %v", v, err)
	}
	if v, err := r.Uint32(); err != nil || v != 123456 {
		t.Fatalf("Uint32 = %d, %v", v, err)
	}
	if v, err := r.Uint64(); err != nil || v != 9999999999 {
		t.Fatalf("Uint64 = %d, %v", v, err)
	}
	if v, err := r.Float64(); err != nil || v != 3.14159 {
		t.Fatalf("Float64 = %v, %v", v, err)
	}
	if v, err := r.Bool(); err != nil || v != true {
		t.Fatalf("Bool = %v, %v", v, err)
	}
	if v, err := r.String(); err != nil || v != "hello" {
		t.Fatalf("String = %q, %v", v, err)
	}
	if err := r.Match(); err != nil {
		t.Fatalf("trailing Match: %v", err)
	}
}

func TestMatchFailsOnCorruptCheckpoint(t *testing.T) {
	buf := bytes.NewReader([]byte{0, 0, 0, 0})
	r := NewReader(buf)
	if err := r.Match(); err == nil {
		t.Fatal("expected checkpoint mismatch error")
	}
}

func TestJumpAndHere(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	mustWrite(t, w.Uint32(1))
	mustWrite(t, w.Uint32(2))
	mustWrite(t, w.Uint32(3))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if err := r.Jump(4); err != nil {
		t.Fatalf("Jump: %v", err)
	}
	off, err := r.Here()
	if err != nil || off != 4 {
		t.Fatalf("Here = %d, %v", off, err)
	}
	v, err := r.Uint32()
	if err != nil || v != 2 {
		t.Fatalf("Uint32 after jump = %d, %v", v, err)
	}
}

func mustWrite(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
}
