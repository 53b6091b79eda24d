// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bufio"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Writer encodes a stream of bytes as a sequence of BGZF blocks, flushing
// a full block whenever MaxDataSize bytes have accumulated, and writing
// the canonical EmptyBlock sentinel on Close.
//
// With more than one worker, blocks are compressed concurrently by a
// bounded pool of goroutines; a single goroutine (the caller, inside
// Flush/Close) still writes finished blocks to the underlying sink in
// the order they were queued.
type Writer struct {
	dst     *bufio.Writer
	level   int
	workers int
	sem     chan struct{}

	buf []byte // uncompressed bytes not yet flushed into a block.

	pending []chan encodeResult
	pool    sync.Pool // of *deflator, used by the single-worker path.

	closed bool
	err    error
}

type encodeResult struct {
	block []byte
	err   error
}

// NewWriterLevel constructs a Writer over w at the given compression
// level (see compress/flate for the level constants). workers bounds the
// number of blocks that may be compressed concurrently; workers <= 1
// compresses each block inline on the calling goroutine.
func NewWriterLevel(w io.Writer, level, workers int) (*Writer, error) {
	if workers < 1 {
		workers = 1
	}
	bw := &Writer{
		dst:     bufio.NewWriterSize(w, MaxBlockSize),
		level:   level,
		workers: workers,
	}
	bw.pool.New = func() interface{} { return newDeflator(level) }
	if workers > 1 {
		bw.sem = make(chan struct{}, workers)
	}
	return bw, nil
}

// NewWriter constructs a Writer at the default compression level with no
// concurrency.
func NewWriter(w io.Writer) (*Writer, error) {
	return NewWriterLevel(w, -1, 1)
}

// Write implements io.Writer, buffering p and flushing full blocks as
// MaxDataSize is reached.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.err != nil {
		return 0, w.err
	}
	total := len(p)
	for len(p) > 0 {
		room := MaxDataSize - len(w.buf)
		n := room
		if n > len(p) {
			n = len(p)
		}
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		if len(w.buf) == MaxDataSize {
			if err := w.queueBlock(); err != nil {
				w.err = err
				return total - len(p), err
			}
		}
	}
	return total, nil
}

// queueBlock schedules compression of the currently buffered data as one
// block and clears the buffer. It does not wait for the compression to
// finish; call drain to collect finished blocks.
func (w *Writer) queueBlock() error {
	if len(w.buf) == 0 {
		return nil
	}
	src := w.buf
	w.buf = make([]byte, 0, MaxDataSize)

	ch := make(chan encodeResult, 1)
	w.pending = append(w.pending, ch)

	encode := func() {
		d := w.pool.Get().(*deflator)
		defer w.pool.Put(d)
		var buf bufferWriter
		if _, err := EncodeBlock(&buf, d, src); err != nil {
			ch <- encodeResult{err: err}
			return
		}
		ch <- encodeResult{block: buf.b}
	}

	if w.workers > 1 {
		w.sem <- struct{}{}
		go func() {
			defer func() { <-w.sem }()
			encode()
		}()
	} else {
		encode()
	}
	return nil
}

// drain writes every finished block queued so far to the sink, in order.
func (w *Writer) drain() error {
	for len(w.pending) > 0 {
		ch := w.pending[0]
		w.pending = w.pending[1:]
		res := <-ch
		if res.err != nil {
			return res.err
		}
		if _, err := w.dst.Write(res.block); err != nil {
			return err
		}
	}
	return nil
}

// FinishBlock flushes any buffered bytes as a short block, regardless of
// whether MaxDataSize has been reached, and writes every finished block
// to the sink. Use this to force a BGZF block boundary, for instance
// after a BAM header, matching the virtual-offset conventions of the
// format.
func (w *Writer) FinishBlock() error {
	if w.err != nil {
		return w.err
	}
	if err := w.queueBlock(); err != nil {
		w.err = err
		return err
	}
	if err := w.drain(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Flush forces any buffered bytes out as a block and flushes the
// underlying writer, without closing the stream.
func (w *Writer) Flush() error {
	if err := w.FinishBlock(); err != nil {
		return err
	}
	return w.dst.Flush()
}

// Wait blocks until every block queued so far has been compressed and
// written. Unlike Flush, it neither emits the bytes still buffered for
// the current block nor flushes the underlying writer.
func (w *Writer) Wait() error {
	return w.drain()
}

// Close flushes any buffered data, writes the canonical end-of-stream
// sentinel, and flushes the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.FinishBlock(); err != nil {
		return err
	}
	if _, err := w.dst.Write(EmptyBlock); err != nil {
		return errors.Wrap(err, "bgzf: writing end-of-file marker")
	}
	return w.dst.Flush()
}

// bufferWriter is a minimal growable-slice io.Writer, avoiding the
// allocation overhead of bytes.Buffer's read side for a write-only use.
type bufferWriter struct{ b []byte }

func (b *bufferWriter) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}
