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
	"context"
	"time"
)

// Appended is the result of a successful append (spec §6 operation table).
type Appended struct {
	Seq         uint64
	TimestampNs uint64
}

// Append commits one message to the pool (spec §4.5). It acquires the
// cross-process writer lock for the duration of the call.
func (p *Pool) Append(ctx context.Context, payload []byte, durability Durability) (Appended, error) {
	if len(payload) == 0 {
		return Appended{}, usagef("payload must be at least 1 byte")
	}
	maxPayload := p.maxPayload()
	if uint64(len(payload)) > maxPayload {
		return Appended{}, usagef("payload of %d bytes exceeds max payload %d (ring_size/4 minus the frame header)", len(payload), maxPayload)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	locked, err := p.lock.TryLockContext(ctx, 2*time.Millisecond)
	if err != nil {
		return Appended{}, ioErrf(p.path, err)
	}
	if !locked {
		return Appended{}, busy(p.path)
	}
	defer p.lock.Unlock()

	h, err := p.readHeader()
	if err != nil {
		return Appended{}, err
	}

	sPrev := uint64(0)
	if h.hasMessages {
		sPrev = h.newestSeq
	}
	sNew := sPrev + 1

	ts := uint64(time.Now().UnixNano())
	if h.hasMessages {
		prevTs, err := p.frameTimestamp(h, sPrev)
		if err == nil && ts <= prevTs {
			ts = prevTs + 1
		}
	}

	L := frameHeaderSize + uint64(len(payload))

	dataStart, wrapAt, wrapLen := p.planWrite(h.headOffset, L)

	oldestSeq, oldestOffset, err := p.evict(h, sNew, dataStart, L, wrapAt, wrapLen)
	if err != nil {
		return Appended{}, err
	}

	if wrapAt != nil {
		marker := make([]byte, frameHeaderSize)
		encodeMarker(marker, uint32(wrapLen-frameHeaderSize))
		p.writeRing(*wrapAt, marker)
	}

	frameBuf := make([]byte, L)
	encodeFrame(frameBuf, sNew, ts, 0, payload)
	p.writeRing(dataStart, frameBuf)

	newHead := (dataStart + L) % p.ringSize

	padStart, padLen := p.computeEvictionPad(dataStart, L, oldestOffset, h.hasMessages, oldestSeq)
	if padLen > 0 {
		marker := make([]byte, frameHeaderSize)
		encodeMarker(marker, uint32(padLen-frameHeaderSize))
		p.writeRing(padStart, marker)
	}

	if indexEnabled := p.indexCapacity > 0; indexEnabled {
		slot := slotFor(sNew, p.indexCapacity)
		p.writeIndexSlot(slot, indexSlot{seq: sNew, offset: dataStart})
	}

	if durability == Flush {
		if err := syncRange(p.data); err != nil {
			return Appended{}, ioErrf(p.path, err)
		}
	}

	newHeader := &header{
		fileSize:      p.fileSize,
		ringOffset:    p.ringOffset,
		ringSize:      p.ringSize,
		indexOffset:   p.indexOffset,
		indexCapacity: p.indexCapacity,
		oldestSeq:     oldestSeq,
		newestSeq:     sNew,
		hasMessages:   true,
		headOffset:    newHead,
	}
	p.writeHeader(newHeader)

	if durability == Flush {
		if err := syncRange(p.data[:headerPageSize]); err != nil {
			return Appended{}, ioErrf(p.path, err)
		}
	}

	p.oldestOffsetValid = true
	p.oldestOffsetSeq = oldestSeq
	p.oldestOffset = oldestOffset

	p.logDebug("appended", "seq", sNew, "bytes", len(payload), "durability", durability)

	return Appended{Seq: sNew, TimestampNs: ts}, nil
}

// planWrite decides where the new L-byte frame will actually land,
// inserting a wrap marker at the ring seam if it doesn't fit in the
// remaining tail (spec §4.2, §4.5 step 4).
//
// The "fits" check additionally requires that the tail left over after
// this frame (if any) is either zero or large enough to hold a future
// frame header, so head_offset never lands on a trailing gap too small
// to parse — see DESIGN.md's discussion of padding markers.
func (p *Pool) planWrite(headOffset, L uint64) (dataStart uint64, wrapAt *uint64, wrapLen uint64) {
	remaining := p.ringSize - headOffset
	if fits(remaining, L) {
		return headOffset, nil, 0
	}
	at := headOffset
	return 0, &at, remaining
}

func fits(remaining, l uint64) bool {
	if l > remaining {
		return false
	}
	after := remaining - l
	return after == 0 || after >= frameHeaderSize
}

// evict advances bounds.oldest (and returns the new oldest offset) past
// any frame whose start lies within the new frame's byte window
// [dataStart, dataStart+L), or within the wrap marker's byte window
// [*wrapAt, *wrapAt+wrapLen) when this append wraps — spec §4.5 step 5.
// On an empty pool there is nothing to evict; the new message (sNew,
// already written at dataStart) becomes both oldest and newest.
//
// The walk always steps through wrap/padding markers it encounters
// regardless of overlap, since a marker never represents a live
// sequence; only a real data frame is tested against the overlap
// windows and counted as an eviction. Otherwise oldestOffset could be
// left pointing at a marker rather than the true frame boundary for
// h.oldestSeq, and that stale cache would carry into the next append.
func (p *Pool) evict(h *header, sNew, dataStart, l uint64, wrapAt *uint64, wrapLen uint64) (oldestSeq, oldestOffset uint64, err error) {
	if !h.hasMessages {
		return sNew, dataStart, nil
	}
	oldestSeq = h.oldestSeq
	oldestOffset, err = p.resolveOldestOffset(h)
	if err != nil {
		return 0, 0, err
	}

	writeEnd := dataStart + l // never exceeds ringSize: planWrite keeps the frame inside the ring
	hasWrap := wrapAt != nil
	var wrapStart, wrapEnd uint64
	if hasWrap {
		wrapStart = *wrapAt
		wrapEnd = wrapStart + wrapLen
	}

	for oldestSeq <= h.newestSeq {
		fr, flen, err := p.readFrameAt(oldestOffset)
		if err != nil {
			return 0, 0, err
		}

		if fr.tag != tagData {
			// Markers never carry a live sequence; always step past
			// them regardless of overlap so oldestOffset keeps
			// tracking a real frame boundary instead of getting
			// stuck mid-marker and going stale for the next append.
			oldestOffset = (oldestOffset + flen) % p.ringSize
			continue
		}

		if !offsetOverlaps(oldestOffset, dataStart, writeEnd) &&
			!(hasWrap && offsetOverlaps(oldestOffset, wrapStart, wrapEnd)) {
			break
		}

		oldestOffset = (oldestOffset + flen) % p.ringSize
		oldestSeq = fr.seq + 1
		if oldestSeq > h.newestSeq {
			// Ring fully drained by this single append; the next
			// append will start bounds fresh.
			return h.newestSeq + 1, oldestOffset, nil
		}
	}
	return oldestSeq, oldestOffset, nil
}

// offsetOverlaps reports whether a frame starting at off lies within the
// half-open byte window [start, end) being overwritten. Both windows
// evict() checks it against (the new frame's and the wrap marker's) are
// confined to a single linear span of the ring (neither crosses the
// ringSize seam), so no modulo arithmetic is needed here.
func offsetOverlaps(off, start, end uint64) bool {
	return off >= start && off < end
}

// computeEvictionPad returns a marker to write over the gap left behind
// when eviction's frame-by-frame walk advances past the end of the new
// frame (spec's oldest-wins eviction can overshoot, since old frame
// boundaries need not align with the new frame's end). Writing a marker
// there keeps the entire ring gapless and forward-scannable.
func (p *Pool) computeEvictionPad(dataStart, l, newOldestOffset uint64, hadMessages bool, newOldestSeq uint64) (padStart, padLen uint64) {
	if !hadMessages {
		return 0, 0
	}
	end := dataStart + l
	if newOldestOffset <= end {
		return 0, 0
	}
	gap := newOldestOffset - end
	if gap < frameHeaderSize {
		// Shouldn't happen: evict() only stops at real frame
		// boundaries, each of which is a full frame (>= frameHeaderSize
		// bytes) away from the last. Left as a no-op rather than a
		// panic so a future bug here degrades to a slightly larger
		// gap, not a crash.
		return 0, 0
	}
	return end, gap
}

// writeRing copies buf into the ring region starting at ring-relative
// offset off, which must not require wrapping (callers resolve wraps via
// planWrite before calling this).
func (p *Pool) writeRing(off uint64, buf []byte) {
	start := p.ringOffset + off
	copy(p.data[start:start+uint64(len(buf))], buf)
}

func (p *Pool) readRing(off, n uint64) []byte {
	start := p.ringOffset + off
	return p.data[start : start+n]
}

// readFrameAt decodes the frame (or marker) at ring-relative offset off
// and returns it along with its total on-ring length.
func (p *Pool) readFrameAt(off uint64) (*frame, uint64, error) {
	hdr := p.readRing(off, frameHeaderSize)
	fr, err := decodeFrame(hdr)
	if err != nil {
		if perr, ok := err.(*Error); ok {
			perr.Path = p.path
			perr.Offset = p.ringOffset + off
			return nil, 0, perr
		}
		return nil, 0, corruptErr(p.path, p.ringOffset+off, err)
	}
	return fr, fr.size(), nil
}

// resolveOldestOffset returns the ring offset of the frame with sequence
// h.oldestSeq, using the cached value when it's still valid for this
// header generation, the index when available, and a full forward scan
// from offset 0 otherwise (see DESIGN.md).
func (p *Pool) resolveOldestOffset(h *header) (uint64, error) {
	if p.oldestOffsetValid && p.oldestOffsetSeq == h.oldestSeq {
		return p.oldestOffset, nil
	}
	off, err := p.locateSeq(h, h.oldestSeq)
	if err != nil {
		return 0, err
	}
	return off, nil
}

// frameTimestamp returns the timestamp_ns embedded in the frame for seq.
func (p *Pool) frameTimestamp(h *header, seq uint64) (uint64, error) {
	off, err := p.locateSeq(h, seq)
	if err != nil {
		return 0, err
	}
	fr, _, err := p.readFrameAt(off)
	if err != nil {
		return 0, err
	}
	return fr.timestampNs, nil
}

// vim: foldmethod=marker
