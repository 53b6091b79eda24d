// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bamio

import (
	"bytes"
	"io"
	"testing"

	"github.com/biogo/bamio/bgzf"
	"github.com/biogo/bamio/sam"
)

func newTestHeader(t *testing.T) *sam.Header {
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

// TestDiscoverBAM checks that Discover recognizes a BGZF-wrapped BAM
// stream from its leading gzip magic bytes and dispatches to the BAM
// codec.
func TestDiscoverBAM(t *testing.T) {
	h := newTestHeader(t)

	var buf bytes.Buffer
	w, err := NewBAMWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewBAMWriter failed: %v", err)
	}
	rec, err := sam.NewRecord("r1", nil, nil, -1, -1, 0, 0, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("sam.NewRecord failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := Discover(&buf, 1)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	defer r.Close()
	if r.Format() != BAMFormat {
		t.Errorf("Format() = %v, want %v", r.Format(), BAMFormat)
	}
	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Name != "r1" {
		t.Errorf("Name = %q, want r1", got.Name)
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("Warnings() = %v, want none", r.Warnings())
	}
}

// TestDiscoverSAM checks that Discover falls back to the SAM text codec
// for a stream lacking the gzip magic prefix.
func TestDiscoverSAM(t *testing.T) {
	h := newTestHeader(t)

	var buf bytes.Buffer
	w, err := NewSAMWriter(&buf, h, sam.FlagDecimal)
	if err != nil {
		t.Fatalf("NewSAMWriter failed: %v", err)
	}
	rec, err := sam.NewRecord("r1", nil, nil, -1, -1, 0, 0, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("sam.NewRecord failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := Discover(bytes.NewReader(buf.Bytes()), 1)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	defer r.Close()
	if r.Format() != SAMFormat {
		t.Errorf("Format() = %v, want %v", r.Format(), SAMFormat)
	}
	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Name != "r1" {
		t.Errorf("Name = %q, want r1", got.Name)
	}
	if _, err := r.Read(); err != io.EOF {
		t.Errorf("second Read error = %v, want io.EOF", err)
	}
}

// TestDiscoverRawBAM checks that Discover recognizes a bare BAM byte
// stream carrying no BGZF framing, by inflating a BGZF-wrapped stream
// down to its raw bytes and feeding those to Discover directly.
func TestDiscoverRawBAM(t *testing.T) {
	h := newTestHeader(t)

	var wrapped bytes.Buffer
	w, err := NewBAMWriter(&wrapped, h, 1)
	if err != nil {
		t.Fatalf("NewBAMWriter failed: %v", err)
	}
	ref := h.Refs()[0]
	rec, err := sam.NewRecord("r1", ref, nil, 5, -1, 0, 30, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("sam.NewRecord failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	bg, err := bgzf.NewReader(&wrapped, 1)
	if err != nil {
		t.Fatalf("bgzf.NewReader failed: %v", err)
	}
	raw, err := io.ReadAll(bg)
	if err != nil {
		t.Fatalf("reading inflated BAM bytes failed: %v", err)
	}
	if err := bg.Close(); err != nil {
		t.Fatalf("bgzf Close failed: %v", err)
	}
	if !bytes.HasPrefix(raw, sam.BAMMagic[:]) {
		t.Fatalf("inflated stream missing BAM magic: % x", raw[:4])
	}

	r, err := Discover(bytes.NewReader(raw), 1)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	defer r.Close()
	if r.Format() != BAMFormat {
		t.Errorf("Format() = %v, want %v", r.Format(), BAMFormat)
	}
	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Name != "r1" || got.Pos != 5 {
		t.Errorf("Read() = %+v, want Name r1 Pos 5", got)
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("Warnings() = %v, want none for a raw stream", r.Warnings())
	}
}

// TestNewBGZFWriterRoundTrip checks that a stream written with an explicit
// compression level round-trips through Discover.
func TestNewBGZFWriterRoundTrip(t *testing.T) {
	h := newTestHeader(t)

	var buf bytes.Buffer
	w, err := NewBGZFWriter(&buf, h, 1, 0)
	if err != nil {
		t.Fatalf("NewBGZFWriter failed: %v", err)
	}
	ref := h.Refs()[0]
	rec, err := sam.NewRecord("r1", ref, nil, 5, -1, 0, 30, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("sam.NewRecord failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := Discover(&buf, 0)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	defer r.Close()
	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Pos != 5 {
		t.Errorf("Pos = %d, want 5", got.Pos)
	}
}
