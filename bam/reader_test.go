// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bytes"
	"io"
	"testing"

	"github.com/kortschak/utter"

	"github.com/biogo/bamio/sam"
)

func testHeader(t *testing.T) *sam.Header {
	t.Helper()
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	if err != nil {
		t.Fatalf("sam.NewReference failed: %v", err)
	}
	h, err := sam.NewHeader(nil, []*sam.Reference{ref})
	if err != nil {
		t.Fatalf("sam.NewHeader failed: %v", err)
	}
	return h
}

// TestRoundTripUnmapped writes a single unmapped record through Writer and
// reads it back through Reader, checking that the -1 sentinel fields (Pos,
// Ref, MateRef) survive the binary round trip. This exercises the
// signed-position fix: naively zero-extending the wire value would return
// 4294967295 instead of -1 on a 64-bit platform.
func TestRoundTripUnmapped(t *testing.T) {
	h := testHeader(t)
	rec, err := sam.NewRecord("r1", nil, nil, -1, -1, 0, 0, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("sam.NewRecord failed: %v", err)
	}
	rec.Flags = sam.Unmapped

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, 1)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Pos != -1 {
		t.Errorf("Pos = %d, want -1", got.Pos)
	}
	if got.MatePos != -1 {
		t.Errorf("MatePos = %d, want -1", got.MatePos)
	}
	if got.Ref != nil {
		t.Errorf("Ref = %v, want nil", got.Ref)
	}
	if got.MateRef != nil {
		t.Errorf("MateRef = %v, want nil", got.MateRef)
	}
	if got.Name != "r1" {
		t.Errorf("Name = %q, want %q", got.Name, "r1")
	}
	if t.Failed() {
		t.Log(utter.Sdump(got))
	}

	if _, err := r.Read(); err != io.EOF {
		t.Errorf("second Read error = %v, want io.EOF", err)
	}
}

// TestRoundTripMapped exercises a mapped record carrying an aux tag, a
// cigar string and quality scores, checking that all variable-length
// fields and the mapped position survive the round trip.
func TestRoundTripMapped(t *testing.T) {
	h := testHeader(t)
	ref := h.Refs()[0]

	aux, err := sam.NewAux(sam.NewTag("NM"), 5)
	if err != nil {
		t.Fatalf("sam.NewAux failed: %v", err)
	}
	co := []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 10)}
	seq := []byte("ACGTACGTAC")
	qual := bytes.Repeat([]byte{30}, len(seq))

	rec, err := sam.NewRecord("r2", ref, ref, 99, 99, 10, 60, co, seq, qual, []sam.Aux{aux})
	if err != nil {
		t.Fatalf("sam.NewRecord failed: %v", err)
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 0)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, 0)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Pos != 99 {
		t.Errorf("Pos = %d, want 99", got.Pos)
	}
	if got.Ref == nil || got.Ref.Name() != "chr1" {
		t.Errorf("Ref = %v, want chr1", got.Ref)
	}
	if len(got.AuxFields) != 1 || got.AuxFields[0].Tag() != sam.NewTag("NM") {
		t.Fatalf("AuxFields = %v, want one NM tag", got.AuxFields)
	}
	if got.AuxFields[0].Type() != 'c' {
		t.Errorf("NM aux type = %c, want c (narrowest signed type)", got.AuxFields[0].Type())
	}
	if !bytes.Equal(got.Seq.Expand(), seq) {
		t.Errorf("Seq = %s, want %s", got.Seq.Expand(), seq)
	}
	if !bytes.Equal(got.Qual, qual) {
		t.Errorf("Qual = %v, want %v", got.Qual, qual)
	}
}

// TestReaderOmit checks that Omit(AllVariableLengthData) suppresses
// sequence, quality and aux data while leaving the fixed fields intact.
func TestReaderOmit(t *testing.T) {
	h := testHeader(t)
	ref := h.Refs()[0]
	seq := []byte("ACGT")
	rec, err := sam.NewRecord("r3", ref, nil, 0, -1, 0, 0, nil, seq, seq, nil)
	if err != nil {
		t.Fatalf("sam.NewRecord failed: %v", err)
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, 1)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	r.Omit(AllVariableLengthData)

	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Seq.Seq != nil {
		t.Errorf("Seq.Seq = %v, want nil", got.Seq.Seq)
	}
	if got.Qual != nil {
		t.Errorf("Qual = %v, want nil", got.Qual)
	}
	if got.Name != "r3" {
		t.Errorf("Name = %q, want r3", got.Name)
	}
}

// TestIterator exercises the Iterator wrapper over two records.
func TestIterator(t *testing.T) {
	h := testHeader(t)
	ref := h.Refs()[0]

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		rec, err := sam.NewRecord("r", ref, nil, i, -1, 0, 0, nil, nil, nil, nil)
		if err != nil {
			t.Fatalf("sam.NewRecord failed: %v", err)
		}
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, 1)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	it := NewIterator(r)
	var n int
	for it.Next() {
		n++
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	if n != 2 {
		t.Errorf("iterated %d records, want 2", n)
	}
}
