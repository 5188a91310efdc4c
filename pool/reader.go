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

import "github.com/google/uuid"

// Message is one decoded frame handed back to callers of Get and Stream
// (spec §6 operation table).
type Message struct {
	Seq         uint64
	TimestampNs uint64
	Payload     []byte
}

// Get returns the message at seq, or NotFound (with the observed bounds)
// if seq has already been evicted or never existed (spec §4.6).
func (p *Pool) Get(seq uint64) (Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, err := p.readHeader()
	if err != nil {
		return Message{}, err
	}
	if !h.hasMessages || seq < h.oldestSeq || seq > h.newestSeq {
		oldest, newest, _ := h.bounds()
		return Message{}, notFound(p.path, seq, oldest, newest)
	}

	off, err := p.locateSeq(h, seq)
	if err != nil {
		return Message{}, err
	}
	fr, _, err := p.readFrameAt(off)
	if err != nil {
		return Message{}, err
	}
	if fr.tag != tagData || fr.seq != seq {
		return Message{}, internalf("index/scan landed on non-matching frame at offset %d (want seq %d, tag %x seq %d)", off, seq, fr.tag, fr.seq)
	}
	payload := make([]byte, fr.payloadLen)
	copy(payload, p.readRing(off+frameHeaderSize, uint64(fr.payloadLen)))

	return Message{Seq: fr.seq, TimestampNs: fr.timestampNs, Payload: payload}, nil
}

// Bounds returns the current oldest/newest sequence numbers, or
// hasMessages=false if the pool is empty (spec §4.6 stat operation).
func (p *Pool) Bounds() (oldest, newest uint64, hasMessages bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.readHeader()
	if err != nil {
		return 0, 0, false, err
	}
	o, n, ok := h.bounds()
	return o, n, ok, nil
}

// locateSeq resolves seq (already known to be within [oldest, newest]) to
// a ring offset, preferring the inline index and falling back to a linear
// scan of the frame/marker chain (see scanForSeq).
func (p *Pool) locateSeq(h *header, seq uint64) (uint64, error) {
	if p.indexCapacity > 0 {
		slot := p.readIndexSlot(slotFor(seq, p.indexCapacity))
		if slot.seq == seq {
			return slot.offset, nil
		}
	}
	return p.scanForSeq(h, seq)
}

// scanForSeq walks the ring from offset 0 up to headOffset and, once the
// ring has wrapped, on from headOffset to the end of the ring, where the
// older reachable frames still sit. Each span is walked frame by frame
// through the padding/wrap markers (see writer.go).
func (p *Pool) scanForSeq(h *header, seq uint64) (uint64, error) {
	spans := [][2]uint64{{0, h.headOffset}}
	if h.oldestSeq > 1 || h.headOffset == 0 {
		spans = append(spans, [2]uint64{h.headOffset, p.ringSize})
	}
	for _, span := range spans {
		for off := span[0]; off < span[1]; {
			fr, flen, err := p.readFrameAt(off)
			if err != nil {
				return 0, err
			}
			if fr.tag == tagData && fr.seq == seq {
				return off, nil
			}
			if flen == 0 {
				return 0, internalf("zero-length frame at offset %d during scan", off)
			}
			off += flen
		}
	}
	oldest, newest, _ := h.bounds()
	return 0, notFound(p.path, seq, oldest, newest)
}

// Stream is a stateful, ordered cursor over a pool's messages (spec §4.6
// open_stream / read_next). It is not safe for concurrent use by multiple
// goroutines.
type Stream struct {
	id      uuid.UUID
	pool    *Pool
	nextSeq uint64
}

// OpenStream returns a cursor positioned to yield the message right after
// sinceSeq. Pass 0 to start from sequence 1; if that has been evicted,
// Next reports Lag (see Skip).
// The returned Stream carries a fresh id so adapters (the HTTP long-poll
// route, `plasmite tail`) can correlate log lines back to one subscriber
// across multiple Next/Wait calls.
func (p *Pool) OpenStream(sinceSeq uint64) *Stream {
	return &Stream{id: uuid.New(), pool: p, nextSeq: sinceSeq + 1}
}

// ID returns the stream's correlation id.
func (s *Stream) ID() uuid.UUID { return s.id }

// NextSeq reports the sequence number the next call to Next will start
// from.
func (s *Stream) NextSeq() uint64 { return s.nextSeq }

// Next returns up to max messages starting at the cursor's current
// position, advancing the cursor by the number of messages returned. It
// returns an empty, nil-error slice if the cursor has caught up to the
// newest message. It returns a Lag error (without advancing the cursor)
// if eviction has carried bounds.oldest past the cursor's position; the
// caller must decide whether to skip forward (spec §4.6, §8).
func (s *Stream) Next(max int) ([]Message, error) {
	if max <= 0 {
		return nil, usagef("max must be positive")
	}
	p := s.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	h, err := p.readHeader()
	if err != nil {
		return nil, err
	}
	if !h.hasMessages || s.nextSeq > h.newestSeq {
		return nil, nil
	}
	if s.nextSeq < h.oldestSeq {
		return nil, lag(s.nextSeq, h.oldestSeq, h.newestSeq)
	}

	msgs := make([]Message, 0, max)
	seq := s.nextSeq
	for seq <= h.newestSeq && len(msgs) < max {
		off, err := p.locateSeq(h, seq)
		if err != nil {
			return nil, err
		}
		fr, _, err := p.readFrameAt(off)
		if err != nil {
			return nil, err
		}
		payload := make([]byte, fr.payloadLen)
		copy(payload, p.readRing(off+frameHeaderSize, uint64(fr.payloadLen)))
		msgs = append(msgs, Message{Seq: fr.seq, TimestampNs: fr.timestampNs, Payload: payload})
		seq++
	}
	s.nextSeq = seq
	return msgs, nil
}

// Skip advances the cursor to the pool's current oldest reachable
// sequence, recovering from a Lag error by accepting the loss.
func (s *Stream) Skip() error {
	p := s.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.readHeader()
	if err != nil {
		return err
	}
	if h.hasMessages && s.nextSeq < h.oldestSeq {
		s.nextSeq = h.oldestSeq
	}
	return nil
}

// vim: foldmethod=marker
