// {{{ Copyright (c) Paul R. Tagliamonte <paultag@gmail.com> 2020-2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package pool

import (
	"os"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// Durability selects how aggressively append() forces bytes to stable
// storage (spec §4.5).
type Durability int

const (
	// Fast orders frame, index, and header writes but issues no fsync.
	Fast Durability = iota
	// Flush fsyncs the frame+index bytes before publishing the header,
	// and fsyncs again after the header publish.
	Flush
)

// CreateOptions configures a brand-new pool file (spec §6 Configuration).
type CreateOptions struct {
	// SizeBytes is the total file size. Required; must be large enough to
	// hold the header page, the index region, and at least one maximum-
	// size frame.
	SizeBytes uint64

	// IndexCapacity is the number of inline index slots. Left at zero, a
	// capacity is computed from the ring size (see resolveIndexCapacity);
	// set IndexCapacity to 0 together with ExplicitNoIndex to really
	// request "no index" (scan-only).
	IndexCapacity uint64

	// ExplicitNoIndex, when true, honors IndexCapacity==0 as "disable the
	// index" rather than triggering the auto-sizing default.
	ExplicitNoIndex bool
}

// assumedAverageFrameSize is used to auto-size the index when the caller
// does not specify a capacity (spec §4.4: "sized proportional to
// ring_size / average_frame_size").
const assumedAverageFrameSize = 256

func (o CreateOptions) resolveIndexCapacity(ringSize uint64) uint64 {
	if o.IndexCapacity != 0 || o.ExplicitNoIndex {
		return o.IndexCapacity
	}
	cap := ringSize / assumedAverageFrameSize
	if cap == 0 {
		cap = 1
	}
	return cap
}

// Pool is an open handle on a pool file. A Pool may be used to append and
// to read; none of its methods are required to agree on lock ordering
// with a Pool handle for the same file in another process beyond what the
// writer lock and the header/CRC protocol already guarantee.
type Pool struct {
	path string
	file *os.File
	data []byte

	fileSize      uint64
	ringOffset    uint64
	ringSize      uint64
	indexOffset   uint64
	indexCapacity uint64

	lock *flock.Flock
	mu   sync.Mutex

	log *zap.SugaredLogger

	// oldestOffset caches the ring offset of the current oldest reachable
	// frame so repeated appends don't re-scan to find it. It is only ever
	// valid for the bounds.oldest it was resolved against; see
	// resolveOldestOffset in writer.go.
	oldestOffset      uint64
	oldestOffsetValid bool
	oldestOffsetSeq   uint64

	closed bool
}

// WithLogger attaches a logger used for debug/warn diagnostics. A nil
// logger (the default) makes every log call a no-op.
func (p *Pool) WithLogger(log *zap.SugaredLogger) *Pool {
	p.log = log
	return p
}

func (p *Pool) logDebug(msg string, kv ...interface{}) {
	if p.log != nil {
		p.log.Debugw(msg, kv...)
	}
}

func (p *Pool) logWarn(msg string, kv ...interface{}) {
	if p.log != nil {
		p.log.Warnw(msg, kv...)
	}
}

// Path returns the backing file path this handle was opened against.
func (p *Pool) Path() string { return p.path }

// readHeader reads and CRC-validates the header page, retrying once on a
// torn read (spec §4.1: "on mismatch, the reader retries after re-reading").
func (p *Pool) readHeader() (*header, error) {
	h, err := decodeHeader(p.data[:headerPageSize])
	if err == nil {
		return h, nil
	}
	h, err2 := decodeHeader(p.data[:headerPageSize])
	if err2 == nil {
		return h, nil
	}
	if perr, ok := err2.(*Error); ok {
		perr.Path = p.path
		return nil, perr
	}
	return nil, corruptErr(p.path, 0, err2)
}

func (p *Pool) writeHeader(h *header) {
	buf := encodeHeader(h)
	copy(p.data[:headerPageSize], buf)
}

// Close unmaps the pool file and releases the writer lock, if held.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	if err := unmapFile(p.data); err != nil {
		firstErr = err
	}
	if p.lock != nil {
		if err := p.lock.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := p.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return ioErrf(p.path, firstErr)
	}
	return nil
}

func minFrameSize(maxPayload uint64) uint64 {
	return frameHeaderSize + maxPayload
}

func validateCreateSize(sizeBytes, indexCapacity uint64) (ringSize uint64, err error) {
	indexBytes := indexCapacity * indexSlotSize
	if sizeBytes <= headerPageSize+indexBytes {
		return 0, usagef("size_bytes %d too small for header+index (%d)", sizeBytes, headerPageSize+indexBytes)
	}
	ringSize = sizeBytes - headerPageSize - indexBytes
	if ringSize < frameHeaderSize*4 {
		return 0, usagef("size_bytes %d leaves too small a ring (%d bytes)", sizeBytes, ringSize)
	}
	return ringSize, nil
}

func (p *Pool) maxPayload() uint64 {
	// spec §9 open question: a conservative ceiling of 1/4 the ring,
	// matching the teacher's own diskring.Write 1/4-of-ring check.
	limit := p.ringSize / 4
	if limit <= frameHeaderSize {
		return 0
	}
	return limit - frameHeaderSize
}

// vim: foldmethod=marker
