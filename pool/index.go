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

import "encoding/binary"

// indexSlot is one 16-byte (seq, offset) cell of the inline index (spec
// §4.4). A slot is "empty" if seq == 0.
type indexSlot struct {
	seq    uint64
	offset uint64
}

// slotFor returns the index of the slot a given sequence addresses.
// Capacity 0 disables the index entirely; callers must check that first.
func slotFor(seq, capacity uint64) uint64 {
	return seq % capacity
}

func (p *Pool) readIndexSlot(i uint64) indexSlot {
	off := p.indexOffset + i*indexSlotSize
	b := p.data[off : off+indexSlotSize]
	return indexSlot{
		seq:    binary.LittleEndian.Uint64(b[0:8]),
		offset: binary.LittleEndian.Uint64(b[8:16]),
	}
}

func (p *Pool) writeIndexSlot(i uint64, s indexSlot) {
	off := p.indexOffset + i*indexSlotSize
	b := p.data[off : off+indexSlotSize]
	binary.LittleEndian.PutUint64(b[0:8], s.seq)
	binary.LittleEndian.PutUint64(b[8:16], s.offset)
}

// vim: foldmethod=marker
