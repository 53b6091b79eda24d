// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bgzf implements BGZF, the block-gzip container used to carry BAM
// and other genomics formats. A BGZF stream is a concatenation of
// independently inflatable gzip-framed blocks, each carrying its own size
// in an extra subfield, terminated by a canonical empty block.
//
// https://samtools.github.io/hts-specs/SAMv1.pdf
package bgzf

import "github.com/pkg/errors"

// Fixed byte values for the gzip member header that every BGZF block uses.
const (
	gzipID1  = 0x1f
	gzipID2  = 0x8b
	gzipCM   = 8    // CM: deflate.
	gzipFLG  = 0x04 // FLG: FEXTRA set.
	gzipXFL  = 0
	gzipOS   = 0xff

	bcSI1 = 'B'
	bcSI2 = 'C'

	// fixedHeaderLen is the length of the gzip header up to and including
	// the single BC extra subfield this package always writes:
	// ID1 ID2 CM FLG MTIME(4) XFL OS XLEN(2) SI1 SI2 SLEN(2) BSIZE(2).
	fixedHeaderLen = 18
	// trailerLen is CRC32(4) + ISIZE(4).
	trailerLen = 8
	// blockOverhead is the total framing cost around CDATA.
	blockOverhead = fixedHeaderLen + trailerLen

	// MaxBlockSize is the largest permissible total size of a BGZF block,
	// the wire BSIZE+1 field being a 16-bit quantity.
	MaxBlockSize = 0x10000

	// MaxDataSize is the largest uncompressed payload this package will
	// pack into a single block. It is chosen, per the teacher lineage's
	// own constant, so that the worst case deflate expansion of a full
	// block still leaves room for framing within MaxBlockSize.
	MaxDataSize = 0x0ff00
)

func init() {
	if compressBound(MaxDataSize)+blockOverhead > MaxBlockSize-1 {
		panic("bgzf: MaxDataSize too large for MaxBlockSize")
	}
}

// compressBound returns the zlib/deflate worst-case output size for an
// input of length srcLen, used only to size-check MaxDataSize at init.
func compressBound(srcLen int) int {
	return srcLen + srcLen>>12 + srcLen>>14 + srcLen>>25 + 13
}

// EmptyBlock is the canonical 28 byte BGZF end-of-file marker: a block
// whose uncompressed payload has zero length.
var EmptyBlock = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x1b, 0x00,
	0x03, 0x00,
	0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// Errors raised by this package. They are wrapped with
// github.com/pkg/errors as they propagate, so callers may recover the
// sentinel with errors.Cause.
var (
	ErrInvalidFormat     = errors.New("bgzf: invalid block format")
	ErrMissingBCSubfield = errors.New("bgzf: missing BC extra subfield")
	ErrBufferUnderflow   = errors.New("bgzf: buffer too short to hold block")
	ErrUnexpectedEOF     = errors.New("bgzf: unexpected end of stream")
	ErrBlockOverflow     = errors.New("bgzf: block exceeds MaxBlockSize")
	ErrChecksumMismatch  = errors.New("bgzf: CRC32 checksum mismatch")
	ErrClosed            = errors.New("bgzf: write to closed writer")
)
