// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

// Package binio implements the checkpoint-framed little-endian binary
// codec used by the genotype grid file: every section of the file is
// bracketed by a fixed 4-byte checkpoint literal, validated on read.
package binio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Checkpoint is the fixed 4-byte literal bracketing every section of the
// grid file. A mismatch on read is fatal.
var Checkpoint = [4]byte{0x25, 0x50, 0x4b, 0x41}

// Writer sequentially writes little-endian fields to an underlying stream,
// tracking byte offset so a caller can build a file-position index (the
// "walkabout" pass the grid reader needs for random access).
type Writer struct {
	w   io.Writer
	off int64
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 { return w.off }

func (w *Writer) Checkpoint() error {
	n, err := w.w.Write(Checkpoint[:])
	w.off += int64(n)
	return err
}

func (w *Writer) Bytes(b []byte) error {
	n, err := w.w.Write(b)
	w.off += int64(n)
	return err
}

func (w *Writer) Uint16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return w.Bytes(b[:])
}

func (w *Writer) Uint32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.Bytes(b[:])
}

func (w *Writer) Uint64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.Bytes(b[:])
}

func (w *Writer) Float64(v float64) error {
	return w.Uint64(math.Float64bits(v))
}

func (w *Writer) Bool(v bool) error {
	if v {
		return w.Bytes([]byte{1})
	}
	return w.Bytes([]byte{0})
}

// String writes a length-prefixed string: a uint32 byte length followed by
// the raw bytes (no trailing NUL), matching the grid file's
// "label_length + label bytes" framing.
func (w *Writer) String(s string) error {
	if err := w.Uint32(uint32(len(s))); err != nil {
		return err
	}
	return w.Bytes([]byte(s))
}

// Reader sequentially (or randomly, via Seek) reads little-endian fields
// and validates checkpoint literals.
type Reader struct {
	r   io.ReadSeeker
	off int64
}

func NewReader(r io.ReadSeeker) *Reader { return &Reader{r: r} }

func (r *Reader) Here() (int64, error) {
	off, err := r.r.Seek(0, io.SeekCurrent)
	return off, err
}

func (r *Reader) Jump(off int64) error {
	_, err := r.r.Seek(off, io.SeekStart)
	return err
}

func (r *Reader) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	nr, err := io.ReadFull(r.r, b)
	r.off += int64(nr)
	return b, err
}

func (r *Reader) Skip(n int64) error {
	_, err := r.r.Seek(n, io.SeekCurrent)
	return err
}

// Match reads len(Checkpoint) bytes and fails if they don't equal the
// checkpoint literal. Mismatch is always a fatal, unrecoverable error: it
// means the file is corrupt or the read cursor is misaligned.
func (r *Reader) Match() error {
	b, err := r.Bytes(len(Checkpoint))
	if err != nil {
		return err
	}
	for i := range Checkpoint {
		if b[i] != Checkpoint[i] {
			return fmt.Errorf("binio: checkpoint mismatch at offset %d: got %x want %x", r.off, b, Checkpoint)
		}
	}
	return nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (r *Reader) Bool() (bool, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// String reads a length-prefixed string written by Writer.String.
func (r *Reader) String() (string, error) {
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
