// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bufio"
	"hash/crc32"
	"io"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Reader decodes a BGZF stream into the concatenation of its blocks'
// uncompressed payloads. It implements io.Reader and, where the
// underlying source does, io.Closer.
//
// When constructed with more than one worker, independent blocks are
// inflated concurrently by a bounded pool of goroutines while a single
// reading goroutine (the caller, inside Read) keeps pulling block frames
// off the wire in order; results are still delivered to callers of Read
// strictly in block order.
type Reader struct {
	src     *bufio.Reader
	closer  io.Closer
	workers int
	sem     chan struct{}

	pending []chan inflateResult
	buf     []byte
	off     int

	sawEmptyBlock   bool
	warnedTruncated bool
	done            bool
	err             error

	mu       sync.Mutex
	warnings []error
}

type inflateResult struct {
	data []byte
	err  error
}

// NewReader constructs a Reader over r. workers bounds the number of
// blocks that may be inflated concurrently; workers <= 1 runs a plain
// single-goroutine decode path with no pool at all.
func NewReader(r io.Reader, workers int) (*Reader, error) {
	if workers < 1 {
		workers = 1
	}
	br := &Reader{
		src:     bufio.NewReaderSize(r, MaxBlockSize),
		workers: workers,
	}
	if workers > 1 {
		br.sem = make(chan struct{}, workers-1)
	}
	if c, ok := r.(io.Closer); ok {
		br.closer = c
	}
	return br, nil
}

// Warnings returns the non-fatal diagnostics accumulated so far, such as
// a missing end-of-stream sentinel or data following one.
func (r *Reader) Warnings() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.warnings))
	copy(out, r.warnings)
	return out
}

func (r *Reader) warn(err error) {
	r.mu.Lock()
	r.warnings = append(r.warnings, err)
	r.mu.Unlock()
	log.Error.Print(err)
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	var n int
	for n < len(p) {
		if r.off >= len(r.buf) {
			if err := r.fillBuffer(); err != nil {
				if err == io.EOF {
					if n > 0 {
						return n, nil
					}
					return n, io.EOF
				}
				r.err = err
				return n, err
			}
		}
		c := copy(p[n:], r.buf[r.off:])
		n += c
		r.off += c
	}
	return n, nil
}

// Close releases resources held by the reader and, if the source
// supports it, closes it.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// fillBuffer advances past the fully consumed current block, dispatching
// and awaiting blocks until one with a non-empty payload is found or the
// stream ends.
func (r *Reader) fillBuffer() error {
	for {
		for !r.done && len(r.pending) < r.workers {
			if err := r.dispatch(); err != nil && err != io.EOF {
				return err
			}
		}
		if len(r.pending) == 0 {
			if !r.sawEmptyBlock && !r.warnedTruncated {
				r.warn(errors.New("bgzf: stream truncated: missing end-of-file marker"))
				r.warnedTruncated = true
			}
			return io.EOF
		}
		ch := r.pending[0]
		r.pending = r.pending[1:]
		res := <-ch
		if res.err != nil {
			return res.err
		}
		if len(res.data) == 0 {
			continue
		}
		r.buf = res.data
		r.off = 0
		return nil
	}
}

// dispatch reads the next block frame from the source and schedules its
// inflation, unless the stream has already ended or an empty block (the
// end-of-stream sentinel) has terminated it.
func (r *Reader) dispatch() error {
	meta, cdata, err := ReadBlock(r.src)
	if err == io.EOF {
		r.done = true
		return io.EOF
	}
	if err != nil {
		return err
	}

	if meta.ISize == 0 {
		if r.sawEmptyBlock {
			r.warn(errors.New("bgzf: empty block encountered after end-of-file marker"))
		}
		if _, peekErr := r.src.Peek(1); peekErr == io.EOF {
			r.sawEmptyBlock = true
			r.done = true
			return io.EOF
		}
		if !r.sawEmptyBlock {
			r.sawEmptyBlock = true
			r.warn(errors.New("bgzf: empty block encountered mid-stream, more data follows"))
		}
		return r.dispatch()
	}

	ch := make(chan inflateResult, 1)
	r.pending = append(r.pending, ch)
	crc := meta.CRC32
	isize := meta.ISize
	if r.workers > 1 {
		r.sem <- struct{}{}
		go func() {
			defer func() { <-r.sem }()
			ch <- inflateAndVerify(cdata, isize, crc)
		}()
	} else {
		ch <- inflateAndVerify(cdata, isize, crc)
	}
	return nil
}

func inflateAndVerify(cdata []byte, isize, want uint32) inflateResult {
	data, err := inflate(cdata, isize)
	if err != nil {
		return inflateResult{err: err}
	}
	if crc32.ChecksumIEEE(data) != want {
		return inflateResult{err: ErrChecksumMismatch}
	}
	return inflateResult{data: data}
}
