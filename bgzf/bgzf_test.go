// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"
)

func TestEmptyBlockLiteral(t *testing.T) {
	meta, cdata, consumed, err := DecodeBlock(EmptyBlock)
	if err != nil {
		t.Fatalf("DecodeBlock(EmptyBlock): %v", err)
	}
	if consumed != len(EmptyBlock) {
		t.Fatalf("consumed = %d, want %d", consumed, len(EmptyBlock))
	}
	if meta.ISize != 0 {
		t.Fatalf("ISize = %d, want 0", meta.ISize)
	}
	data, err := inflate(cdata, meta.ISize)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("decoded payload length = %d, want 0", len(data))
	}
}

func TestFeedOnlyEmptyBlock(t *testing.T) {
	r, err := NewReader(bytes.NewReader(EmptyBlock), 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d bytes, want 0", len(got))
	}
	if w := r.Warnings(); len(w) != 0 {
		t.Fatalf("unexpected warnings: %v", w)
	}
}

func TestRoundTripSingleBlock(t *testing.T) {
	for _, workers := range []int{1, 4} {
		payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 37)

		var buf bytes.Buffer
		w, err := NewWriterLevel(&buf, 6, workers)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}

		if !bytes.HasSuffix(buf.Bytes(), EmptyBlock) {
			t.Fatalf("workers=%d: stream does not end with EmptyBlock sentinel", workers)
		}

		r, err := NewReader(bytes.NewReader(buf.Bytes()), workers)
		if err != nil {
			t.Fatal(err)
		}
		got, err := ioutil.ReadAll(r)
		if err != nil {
			t.Fatalf("workers=%d: ReadAll: %v", workers, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("workers=%d: round trip mismatch: got %d bytes, want %d", workers, len(got), len(payload))
		}
		if w := r.Warnings(); len(w) != 0 {
			t.Fatalf("workers=%d: unexpected warnings: %v", workers, w)
		}
	}
}

func TestRoundTripMultiBlock(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF, 0x01}, MaxDataSize) // several full blocks worth.

	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, 6, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()), 3)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestMissingSentinelWarns(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, 6, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("no trailing sentinel here")); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	// Deliberately do not call Close, so the stream lacks EmptyBlock.

	r, err := NewReader(bytes.NewReader(buf.Bytes()), 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "no trailing sentinel here" {
		t.Fatalf("got %q", got)
	}
	if w := r.Warnings(); len(w) != 1 {
		t.Fatalf("warnings = %v, want exactly one", w)
	}
}

func TestSmallReadsAcrossBlocks(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), MaxDataSize/4)

	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, 6, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()), 1)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	small := make([]byte, 3) // deliberately smaller than a block, to exercise boundary-spanning reads.
	for {
		n, err := r.Read(small)
		out.Write(small[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Fatalf("boundary-spanning read mismatch: got %d bytes, want %d", out.Len(), len(payload))
	}
}
