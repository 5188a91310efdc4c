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

// On-disk layout constants (spec §4.1, §4.3, §4.4). These are a stable,
// bit-level surface: changing any of them bumps formatVersion.
const (
	// headerPageSize is the fixed size of the first region of the file.
	headerPageSize = 4096

	// headerEncodedSize is the number of header bytes that are actually
	// meaningful; the rest of the header page is reserved, zeroed space.
	headerEncodedSize = 92

	formatVersion uint32 = 1

	frameHeaderSize = 33
	indexSlotSize   = 16

	tagData byte = 0x46 // 'F'
	tagWrap byte = 0x57 // 'W'
)

var magic = [8]byte{'P', 'L', 'S', 'M', 'T', '0', '0', '1'}

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// header mirrors spec §4.1's on-disk header fields exactly, in order.
type header struct {
	fileSize      uint64
	ringOffset    uint64
	ringSize      uint64
	indexOffset   uint64
	indexCapacity uint64

	oldestSeq   uint64
	newestSeq   uint64
	hasMessages bool

	headOffset uint64
}

func (h *header) bounds() (oldest, newest uint64, ok bool) {
	return h.oldestSeq, h.newestSeq, h.hasMessages
}

// encodeHeader writes h into a fresh headerPageSize-byte page, including
// the trailing CRC over everything written before it.
func encodeHeader(h *header) []byte {
	buf := make([]byte, headerPageSize)

	copy(buf[0:8], magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], formatVersion)
	binary.LittleEndian.PutUint32(buf[12:16], headerPageSize)
	binary.LittleEndian.PutUint64(buf[16:24], h.fileSize)
	binary.LittleEndian.PutUint64(buf[24:32], h.ringOffset)
	binary.LittleEndian.PutUint64(buf[32:40], h.ringSize)
	binary.LittleEndian.PutUint64(buf[40:48], h.indexOffset)
	binary.LittleEndian.PutUint64(buf[48:56], h.indexCapacity)
	binary.LittleEndian.PutUint64(buf[56:64], h.oldestSeq)
	binary.LittleEndian.PutUint64(buf[64:72], h.newestSeq)
	if h.hasMessages {
		buf[72] = 1
	}
	// buf[73:80] padding, left zero.
	binary.LittleEndian.PutUint64(buf[80:88], h.headOffset)

	crc := crc32.Checksum(buf[:88], castagnoliTable)
	binary.LittleEndian.PutUint32(buf[88:92], crc)

	return buf
}

// decodeHeader parses and CRC-validates a headerPageSize-byte page.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerEncodedSize {
		return nil, internalf("short header buffer: %d bytes", len(buf))
	}
	if string(buf[0:8]) != string(magic[:]) {
		return nil, corrupt("", 0, "bad magic")
	}
	version := binary.LittleEndian.Uint32(buf[8:12])
	if version != formatVersion {
		return nil, corrupt("", 0, "unrecognized format version")
	}

	wantCRC := binary.LittleEndian.Uint32(buf[88:92])
	gotCRC := crc32.Checksum(buf[:88], castagnoliTable)
	if wantCRC != gotCRC {
		return nil, corrupt("", 0, "header CRC mismatch")
	}

	h := &header{
		fileSize:      binary.LittleEndian.Uint64(buf[16:24]),
		ringOffset:    binary.LittleEndian.Uint64(buf[24:32]),
		ringSize:      binary.LittleEndian.Uint64(buf[32:40]),
		indexOffset:   binary.LittleEndian.Uint64(buf[40:48]),
		indexCapacity: binary.LittleEndian.Uint64(buf[48:56]),
		oldestSeq:     binary.LittleEndian.Uint64(buf[56:64]),
		newestSeq:     binary.LittleEndian.Uint64(buf[64:72]),
		hasMessages:   buf[72] != 0,
		headOffset:    binary.LittleEndian.Uint64(buf[80:88]),
	}
	return h, nil
}

// vim: foldmethod=marker
