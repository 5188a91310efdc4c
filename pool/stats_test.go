package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatReflectsAppends(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:stats", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	s, err := p.Stat()
	require.NoError(t, err)
	require.False(t, s.HasMessages)
	require.Equal(t, uint64(0), s.MessageCount)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := p.Append(ctx, []byte("x"), Fast)
		require.NoError(t, err)
	}

	s, err = p.Stat()
	require.NoError(t, err)
	require.True(t, s.HasMessages)
	require.Equal(t, uint64(3), s.MessageCount)
	require.Greater(t, s.RingUtilizationPct, 0.0)
}

func TestWaitForSeqAlreadyPresent(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:wfs", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	_, err = p.Append(ctx, []byte("a"), Fast)
	require.NoError(t, err)

	msg, err := p.WaitForSeq(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), msg.Seq)
}

func TestWaitForSeqBlocksUntilAppended(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:wfs2", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	resCh := make(chan error, 1)
	go func() {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, err := p.WaitForSeq(waitCtx, 1)
		resCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	_, err = p.Append(ctx, []byte("a"), Fast)
	require.NoError(t, err)

	require.NoError(t, <-resCh)
}
