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

// tailPollInterval is how often Wait re-reads the header while polling
// for new messages. Plasmite pool files live on arbitrary filesystems
// (including ones mounted over NFS in some deployments), so this uses a
// bounded poll loop rather than an inotify/fsnotify watch, treating the
// mmap'd header as the single source of truth rather than trusting a
// filesystem change notification.
const tailPollInterval = 5 * time.Millisecond

// Wait blocks until either the stream has at least one new message to
// yield, the deadline carried by ctx expires, or ctx is otherwise
// cancelled (spec §4.7). It returns immediately, without blocking, if a
// message is already available or if the stream has lagged behind
// bounds.oldest.
func (s *Stream) Wait(ctx context.Context) error {
	for {
		ready, err := s.pool.hasNext(s.nextSeq)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tailPollInterval):
		}
	}
}

// hasNext reports whether seq is within [oldest, newest] (a real message
// to return) or whether seq is behind oldest (a Lag the caller must
// observe rather than wait through). It never blocks.
func (p *Pool) hasNext(seq uint64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.readHeader()
	if err != nil {
		return false, err
	}
	if !h.hasMessages {
		return false, nil
	}
	if seq < h.oldestSeq {
		return true, nil // Lag is itself something Next() must surface
	}
	return seq <= h.newestSeq, nil
}

// NextWait is Next combined with Wait: it blocks (subject to ctx) until
// at least one message is available, lag is detected, or ctx ends, then
// returns up to max messages starting at the cursor's position.
func (s *Stream) NextWait(ctx context.Context, max int) ([]Message, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	return s.Next(max)
}

// vim: foldmethod=marker
