// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// Meta carries the framing metadata of a single BGZF block: its total
// on-wire size (BSIZE+1) and the trailer fields copied from the gzip
// member footer.
type Meta struct {
	BlockSize int
	CRC32     uint32
	ISize     uint32
}

// subfield returns the value bytes of the extra subfield identified by
// si1, si2 within xtra, the raw XLEN-length extra field blob, or nil if no
// such subfield is present.
func subfield(xtra []byte, si1, si2 byte) []byte {
	for len(xtra) >= 4 {
		slen := int(binary.LittleEndian.Uint16(xtra[2:4]))
		if len(xtra) < 4+slen {
			return nil
		}
		if xtra[0] == si1 && xtra[1] == si2 {
			return xtra[4 : 4+slen]
		}
		xtra = xtra[4+slen:]
	}
	return nil
}

// ReadBlock reads one complete BGZF block from r, copying its framing
// metadata and compressed payload (CDATA) into owned buffers. It returns
// io.EOF only when zero bytes could be read before any part of a block
// header was seen; a partial header or payload is ErrUnexpectedEOF.
func ReadBlock(r io.Reader) (meta Meta, cdata []byte, err error) {
	var fixed [12]byte
	if _, err = io.ReadFull(r, fixed[:]); err != nil {
		if err == io.EOF {
			return meta, nil, io.EOF
		}
		return meta, nil, errors.Wrap(ErrUnexpectedEOF, err.Error())
	}
	if fixed[0] != gzipID1 || fixed[1] != gzipID2 || fixed[2] != gzipCM {
		return meta, nil, ErrInvalidFormat
	}
	xlen := int(binary.LittleEndian.Uint16(fixed[10:12]))
	xtra := make([]byte, xlen)
	if _, err = io.ReadFull(r, xtra); err != nil {
		return meta, nil, errors.Wrap(ErrUnexpectedEOF, err.Error())
	}
	bc := subfield(xtra, bcSI1, bcSI2)
	if len(bc) != 2 {
		return meta, nil, ErrMissingBCSubfield
	}
	bsize := int(binary.LittleEndian.Uint16(bc)) + 1
	meta.BlockSize = bsize

	cdataLen := bsize - fixedHeaderLenFor(xlen) - trailerLen
	if cdataLen < 0 {
		return meta, nil, ErrInvalidFormat
	}
	cdata = make([]byte, cdataLen)
	if _, err = io.ReadFull(r, cdata); err != nil {
		return meta, nil, errors.Wrap(ErrUnexpectedEOF, err.Error())
	}

	var trailer [8]byte
	if _, err = io.ReadFull(r, trailer[:]); err != nil {
		return meta, nil, errors.Wrap(ErrUnexpectedEOF, err.Error())
	}
	meta.CRC32 = binary.LittleEndian.Uint32(trailer[0:4])
	meta.ISize = binary.LittleEndian.Uint32(trailer[4:8])

	return meta, cdata, nil
}

// fixedHeaderLenFor returns the byte length of ID1..OS, XLEN and the extra
// field for an extra field of length xlen.
func fixedHeaderLenFor(xlen int) int {
	return 12 + xlen
}

// DecodeBlock validates and frames a single BGZF block stored at the
// start of buf, without inflating its payload. It returns the block's
// metadata and a subslice of buf holding the compressed CDATA, along with
// the number of bytes of buf consumed.
func DecodeBlock(buf []byte) (meta Meta, cdata []byte, consumed int, err error) {
	if len(buf) < 12 {
		return meta, nil, 0, ErrBufferUnderflow
	}
	if buf[0] != gzipID1 || buf[1] != gzipID2 || buf[2] != gzipCM {
		return meta, nil, 0, ErrInvalidFormat
	}
	xlen := int(binary.LittleEndian.Uint16(buf[10:12]))
	if len(buf) < 12+xlen {
		return meta, nil, 0, ErrBufferUnderflow
	}
	bc := subfield(buf[12:12+xlen], bcSI1, bcSI2)
	if len(bc) != 2 {
		return meta, nil, 0, ErrMissingBCSubfield
	}
	bsize := int(binary.LittleEndian.Uint16(bc)) + 1
	if len(buf) < bsize {
		return meta, nil, 0, ErrBufferUnderflow
	}
	meta.BlockSize = bsize

	hdrLen := fixedHeaderLenFor(xlen)
	cdataLen := bsize - hdrLen - trailerLen
	if cdataLen < 0 {
		return meta, nil, 0, ErrInvalidFormat
	}
	cdata = buf[hdrLen : hdrLen+cdataLen]
	trailer := buf[hdrLen+cdataLen : bsize]
	meta.CRC32 = binary.LittleEndian.Uint32(trailer[0:4])
	meta.ISize = binary.LittleEndian.Uint32(trailer[4:8])

	return meta, cdata, bsize, nil
}

// EncodeBlock compresses src with d, at d's level, into a single BGZF block
// and writes it to w. src must not exceed MaxDataSize. It returns the
// total number of bytes written.
func EncodeBlock(w io.Writer, d *deflator, src []byte) (int, error) {
	if len(src) > MaxDataSize {
		return 0, ErrBlockOverflow
	}
	cdata, err := d.compress(src)
	if err != nil {
		return 0, err
	}
	total := fixedHeaderLen + len(cdata) + trailerLen
	if total > MaxBlockSize {
		return 0, ErrBlockOverflow
	}

	var hdr [fixedHeaderLen]byte
	hdr[0], hdr[1], hdr[2], hdr[3] = gzipID1, gzipID2, gzipCM, gzipFLG
	// MTIME left zero.
	hdr[8] = gzipXFL
	hdr[9] = gzipOS
	binary.LittleEndian.PutUint16(hdr[10:12], 6) // XLEN
	hdr[12], hdr[13] = bcSI1, bcSI2
	binary.LittleEndian.PutUint16(hdr[14:16], 2) // SLEN
	binary.LittleEndian.PutUint16(hdr[16:18], uint16(total-1))

	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	if len(cdata) > 0 {
		if _, err := w.Write(cdata); err != nil {
			return 0, err
		}
	}

	var trailer [trailerLen]byte
	binary.LittleEndian.PutUint32(trailer[0:4], crc32.ChecksumIEEE(src))
	binary.LittleEndian.PutUint32(trailer[4:8], uint32(len(src)))
	if _, err := w.Write(trailer[:]); err != nil {
		return 0, err
	}

	return total, nil
}
