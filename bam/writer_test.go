// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bytes"
	"testing"

	"github.com/biogo/bamio/sam"
)

// TestWriterRejectsMismatchedQuality checks that Write refuses a record
// whose quality length does not match its sequence length, rather than
// silently emitting an inconsistent wire record.
func TestWriterRejectsMismatchedQuality(t *testing.T) {
	h := testHeader(t)
	rec := &sam.Record{
		Name: "r1",
		Pos:  -1,
		Seq:  sam.NewSeq([]byte("ACGT")),
		Qual: []byte("!!!"),
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(rec); err == nil {
		t.Error("Write of mismatched sequence/quality lengths succeeded, want error")
	}
}

// TestWriterRejectsLongName checks that Write refuses a read name beyond
// the 254-byte wire limit (the nLen byte field holds name length plus one
// null terminator, so 254 is the largest representable name length).
func TestWriterRejectsLongName(t *testing.T) {
	h := testHeader(t)
	rec := &sam.Record{
		Name: string(bytes.Repeat([]byte{'a'}, 255)),
		Pos:  -1,
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(rec); err == nil {
		t.Error("Write of an over-long name succeeded, want error")
	}
}

// TestNewWriterLevelWritesValidHeader checks that the header written by
// NewWriterLevel can be read back by a fresh Reader.
func TestNewWriterLevelWritesValidHeader(t *testing.T) {
	h := testHeader(t)

	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, h, -1, 2)
	if err != nil {
		t.Fatalf("NewWriterLevel failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, 2)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	if got, want := len(r.Header().Refs()), 1; got != want {
		t.Errorf("len(Refs()) = %d, want %d", got, want)
	}
	if got, want := r.Header().Refs()[0].Name(), "chr1"; got != want {
		t.Errorf("Refs()[0].Name() = %q, want %q", got, want)
	}
}
