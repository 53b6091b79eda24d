// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bamio discovers and reads SAM, BGZF-wrapped BAM and raw
// (unframed) BAM alignment streams behind a single Reader type, and
// provides matching Writer constructors for SAM and BGZF-wrapped BAM,
// the two forms written on disk.
//
// http://samtools.github.io/hts-specs/SAMv1.pdf
package bamio

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/biogo/bamio/bam"
	"github.com/biogo/bamio/sam"
)

// Format identifies the wire format of an alignment stream as determined
// by Discover.
type Format int

const (
	// UnknownFormat is returned when Discover cannot classify a stream.
	UnknownFormat Format = iota
	// SAMFormat is plain-text SAM.
	SAMFormat
	// BAMFormat is BAM, the binary encoding shared by BGZF-wrapped and
	// raw (unframed) streams. Discover reports this Format for both; the
	// underlying bam.Reader is the same in either case.
	BAMFormat
)

func (f Format) String() string {
	switch f {
	case SAMFormat:
		return "SAM"
	case BAMFormat:
		return "BAM"
	default:
		return "unknown"
	}
}

// gzipMagic is the two-byte leading signature of every BGZF block.
var gzipMagic = [2]byte{0x1f, 0x8b}

// Discover peeks at the beginning of r to determine whether it holds a
// BGZF-compressed BAM stream, a raw (unwrapped) BAM stream, or
// plain-text SAM, and returns a Reader wrapping the appropriate codec.
// r is not required to be seekable; the peeked bytes are buffered and
// replayed to the underlying codec, so none of them are consumed by the
// detection itself.
//
// rd sets the BGZF inflation concurrency used when the stream is
// BGZF-wrapped BAM; it is ignored for raw BAM and SAM. See bam.NewReader
// for its meaning.
func Discover(r io.Reader, rd int) (*Reader, error) {
	br := bufio.NewReader(r)
	lead, err := br.Peek(len(sam.BAMMagic))
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "bamio: discovering format")
	}
	if len(lead) >= 2 && lead[0] == gzipMagic[0] && lead[1] == gzipMagic[1] {
		bamr, err := bam.NewReader(br, rd)
		if err != nil {
			return nil, errors.Wrap(err, "bamio: opening BAM stream")
		}
		return &Reader{format: BAMFormat, bam: bamr}, nil
	}
	if len(lead) == len(sam.BAMMagic) && bytes.Equal(lead, sam.BAMMagic[:]) {
		bamr, err := bam.NewRawReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "bamio: opening raw BAM stream")
		}
		return &Reader{format: BAMFormat, bam: bamr}, nil
	}
	samr, err := sam.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(err, "bamio: opening SAM stream")
	}
	return &Reader{format: SAMFormat, sam: samr}, nil
}

// Reader is a format-agnostic alignment stream reader. It is returned by
// Discover and dispatches Header, Read and Close to whichever of sam.Reader
// or bam.Reader was selected during discovery.
type Reader struct {
	format Format

	sam *sam.Reader
	bam *bam.Reader
}

// Format reports which wire format this Reader was opened as.
func (r *Reader) Format() Format { return r.format }

// Header returns the SAM header shared by both wire formats.
func (r *Reader) Header() *sam.Header {
	if r.bam != nil {
		return r.bam.Header()
	}
	return r.sam.Header()
}

// Read returns the next sam.Record in the stream.
func (r *Reader) Read() (*sam.Record, error) {
	if r.bam != nil {
		return r.bam.Read()
	}
	return r.sam.Read()
}

// Warnings returns the non-fatal diagnostics accumulated while reading a
// BAM stream, such as a missing BGZF end-of-file marker. It is always
// empty for SAM streams, which carry no such ambient diagnostics.
func (r *Reader) Warnings() []error {
	if r.bam != nil {
		return r.bam.Warnings()
	}
	return nil
}

// Close releases resources held by the underlying codec. It is a no-op
// for SAM streams, which hold nothing beyond the io.Reader passed to
// Discover.
func (r *Reader) Close() error {
	if r.bam != nil {
		return r.bam.Close()
	}
	return nil
}

// Writer is a format-agnostic alignment stream writer, constructed by one
// of NewSAMWriter, NewBAMWriter or NewBGZFWriter.
type Writer struct {
	format Format

	sam *sam.Writer
	bam *bam.Writer
}

// Format reports which wire format this Writer emits.
func (w *Writer) Format() Format { return w.format }

// Write writes r to the underlying stream.
func (w *Writer) Write(r *sam.Record) error {
	if w.bam != nil {
		return w.bam.Write(r)
	}
	return w.sam.Write(r)
}

// Close finishes the stream. For BAM it writes out any buffered records
// and the BGZF end-of-file marker; the sink itself is not closed. For SAM
// it does nothing, since each record is written to the sink directly.
func (w *Writer) Close() error {
	if w.bam != nil {
		return w.bam.Close()
	}
	return nil
}

// NewSAMWriter returns a Writer that renders records as plain-text SAM,
// using flags to control the rendering of the FLAG field (see
// sam.FlagDecimal, sam.FlagHex and sam.FlagString).
func NewSAMWriter(sink io.Writer, h *sam.Header, flags int) (*Writer, error) {
	sw, err := sam.NewWriter(sink, h, flags)
	if err != nil {
		return nil, errors.Wrap(err, "bamio: opening SAM writer")
	}
	return &Writer{format: SAMFormat, sam: sw}, nil
}

// NewBAMWriter returns a Writer that encodes records as BAM wrapped in
// BGZF at the default compression level, using wc concurrent deflate
// workers. See bam.NewWriter for the meaning of wc.
func NewBAMWriter(sink io.Writer, h *sam.Header, wc int) (*Writer, error) {
	bw, err := bam.NewWriter(sink, h, wc)
	if err != nil {
		return nil, errors.Wrap(err, "bamio: opening BAM writer")
	}
	return &Writer{format: BAMFormat, bam: bw}, nil
}

// NewBGZFWriter returns a Writer that encodes records as BAM wrapped in
// BGZF at the given compression level (see the compress/gzip constants),
// using wc concurrent deflate workers.
func NewBGZFWriter(sink io.Writer, h *sam.Header, level, wc int) (*Writer, error) {
	bw, err := bam.NewWriterLevel(sink, h, level, wc)
	if err != nil {
		return nil, errors.Wrap(err, "bamio: opening BGZF-level BAM writer")
	}
	return &Writer{format: BAMFormat, bam: bw}, nil
}
