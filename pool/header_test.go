package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := &header{
		fileSize:      1 << 20,
		ringOffset:    4096 + 160,
		ringSize:      1 << 20,
		indexOffset:   4096,
		indexCapacity: 10,
		oldestSeq:     5,
		newestSeq:     42,
		hasMessages:   true,
		headOffset:    1234,
	}

	buf := encodeHeader(h)
	require.Len(t, buf, headerPageSize)

	got, err := decodeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestHeaderRoundTripEmpty(t *testing.T) {
	h := &header{
		fileSize:    1 << 20,
		ringOffset:  4096,
		ringSize:    1 << 20,
		indexOffset: 4096,
	}
	got, err := decodeHeader(encodeHeader(h))
	require.NoError(t, err)
	require.False(t, got.hasMessages)
	require.Equal(t, uint64(0), got.headOffset)
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	buf := encodeHeader(&header{fileSize: 100, ringOffset: 4096, ringSize: 100, indexOffset: 4096})
	buf[0] = 'X'

	_, err := decodeHeader(buf)
	require.Error(t, err)
	perr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, CodeCorrupt, perr.Code)
}

func TestDecodeHeaderCRCMismatch(t *testing.T) {
	buf := encodeHeader(&header{fileSize: 100, ringOffset: 4096, ringSize: 100, indexOffset: 4096, oldestSeq: 1, newestSeq: 2, hasMessages: true})
	buf[60] ^= 0xFF // corrupt a byte inside the oldestSeq field

	_, err := decodeHeader(buf)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeHeaderShortBuffer(t *testing.T) {
	_, err := decodeHeader(make([]byte, 10))
	require.Error(t, err)
}
