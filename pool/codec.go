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
	"encoding/binary"

	crc32 "github.com/klauspost/crc32"
)

// frame is the decoded form of one on-disk entry (spec §4.3):
//
//	[ frame_tag: 1 byte ("F" = data, "W" = wrap) ]
//	[ header_crc: u32 ]
//	[ payload_len: u32 ]
//	[ seq: u64 ]
//	[ timestamp_ns: u64 ]
//	[ flags: u32 ]
//	[ reserved: u32 ]
//	[ payload: payload_len bytes ]
type frame struct {
	tag         byte
	payloadLen  uint32
	seq         uint64
	timestampNs uint64
	flags       uint32
}

// size is the number of ring bytes this frame (header + payload) occupies.
func (f *frame) size() uint64 {
	return frameHeaderSize + uint64(f.payloadLen)
}

// encodeFrame writes a data frame header followed by payload into dst,
// which must be at least frameHeaderSize+len(payload) bytes.
func encodeFrame(dst []byte, seq uint64, timestampNs uint64, flags uint32, payload []byte) {
	dst[0] = tagData
	binary.LittleEndian.PutUint32(dst[5:9], uint32(len(payload)))
	binary.LittleEndian.PutUint64(dst[9:17], seq)
	binary.LittleEndian.PutUint64(dst[17:25], timestampNs)
	binary.LittleEndian.PutUint32(dst[25:29], flags)
	binary.LittleEndian.PutUint32(dst[29:33], 0) // reserved

	crc := crc32.Checksum(dst[5:33], castagnoliTable)
	binary.LittleEndian.PutUint32(dst[1:5], crc)

	copy(dst[frameHeaderSize:], payload)
}

// encodeMarker writes a wrap/padding marker: a frame header with tag='W',
// seq=0, and payloadLen set to however many filler bytes it consumes. No
// payload bytes are written; markers only ever need to be skipped.
func encodeMarker(dst []byte, payloadLen uint32) {
	dst[0] = tagWrap
	binary.LittleEndian.PutUint32(dst[5:9], payloadLen)
	binary.LittleEndian.PutUint64(dst[9:17], 0)
	binary.LittleEndian.PutUint64(dst[17:25], 0)
	binary.LittleEndian.PutUint32(dst[25:29], 0)
	binary.LittleEndian.PutUint32(dst[29:33], 0)

	crc := crc32.Checksum(dst[5:33], castagnoliTable)
	binary.LittleEndian.PutUint32(dst[1:5], crc)
}

// decodeFrame reads and validates a frame header starting at src[0]. src
// must have at least frameHeaderSize bytes available; the caller is
// responsible for bounds-checking payloadLen against the remaining ring
// before reading the payload itself.
func decodeFrame(src []byte) (*frame, error) {
	if len(src) < frameHeaderSize {
		return nil, corrupt("", 0, "short frame header")
	}
	tag := src[0]
	if tag != tagData && tag != tagWrap {
		return nil, corrupt("", 0, "unknown frame tag")
	}

	wantCRC := binary.LittleEndian.Uint32(src[1:5])
	gotCRC := crc32.Checksum(src[5:33], castagnoliTable)
	if wantCRC != gotCRC {
		return nil, corrupt("", 0, "frame CRC mismatch")
	}

	f := &frame{
		tag:         tag,
		payloadLen:  binary.LittleEndian.Uint32(src[5:9]),
		seq:         binary.LittleEndian.Uint64(src[9:17]),
		timestampNs: binary.LittleEndian.Uint64(src[17:25]),
		flags:       binary.LittleEndian.Uint32(src[25:29]),
	}
	if f.tag == tagWrap && f.seq != 0 {
		return nil, corrupt("", 0, "wrap marker with nonzero seq")
	}
	return f, nil
}

// vim: foldmethod=marker
