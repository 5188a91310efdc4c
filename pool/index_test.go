package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotFor(t *testing.T) {
	require.Equal(t, uint64(0), slotFor(10, 10))
	require.Equal(t, uint64(1), slotFor(11, 10))
	require.Equal(t, uint64(5), slotFor(5, 10))
}

func TestIndexSlotRoundTrip(t *testing.T) {
	p := &Pool{
		data:          make([]byte, 4096+10*indexSlotSize),
		indexOffset:   4096,
		indexCapacity: 10,
	}

	p.writeIndexSlot(3, indexSlot{seq: 42, offset: 999})
	got := p.readIndexSlot(3)
	require.Equal(t, indexSlot{seq: 42, offset: 999}, got)

	// Untouched slots remain empty (seq == 0).
	require.Equal(t, indexSlot{}, p.readIndexSlot(4))
}
