// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// deflator wraps a *flate.Writer with a reusable destination buffer so a
// single goroutine can encode many blocks without reallocating the
// compressor's internal tables between calls.
type deflator struct {
	level int
	w     *flate.Writer
	buf   bytes.Buffer
}

func newDeflator(level int) *deflator {
	w, _ := flate.NewWriter(nil, level)
	return &deflator{level: level, w: w}
}

// compress returns the raw DEFLATE encoding of src. The returned slice is
// only valid until the next call to compress on the same deflator.
func (d *deflator) compress(src []byte) ([]byte, error) {
	d.buf.Reset()
	d.w.Reset(&d.buf)
	if _, err := d.w.Write(src); err != nil {
		return nil, err
	}
	if err := d.w.Close(); err != nil {
		return nil, err
	}
	return d.buf.Bytes(), nil
}

var byteReaderPool = sync.Pool{
	New: func() interface{} { return new(bytes.Reader) },
}

// inflate decompresses the raw DEFLATE stream src into a buffer of exactly
// isize bytes. It fails if the decompressed length does not match isize
// exactly, since every BGZF block header commits to its uncompressed size.
func inflate(src []byte, isize uint32) ([]byte, error) {
	br := byteReaderPool.Get().(*bytes.Reader)
	br.Reset(src)
	defer byteReaderPool.Put(br)

	fr := flate.NewReader(br)
	defer fr.Close()

	dst := make([]byte, isize)
	if _, err := io.ReadFull(fr, dst); err != nil {
		return nil, err
	}
	// A conforming DEFLATE stream for a BGZF block is exhausted exactly
	// at isize bytes; confirm there is no trailing garbage.
	var extra [1]byte
	if n, _ := fr.Read(extra[:]); n != 0 {
		return nil, ErrInvalidFormat
	}
	return dst, nil
}
