package pool

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(t.TempDir())
}

func TestCreateOpenAppendGet(t *testing.T) {
	reg := newTestRegistry(t)

	p, err := reg.Create("name:events", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		res, err := p.Append(ctx, []byte(fmt.Sprintf("msg-%d", i)), Fast)
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), res.Seq)
	}

	oldest, newest, has, err := p.Bounds()
	require.NoError(t, err)
	require.True(t, has)
	require.Equal(t, uint64(1), oldest)
	require.Equal(t, uint64(5), newest)

	for i := 0; i < 5; i++ {
		msg, err := p.Get(uint64(i + 1))
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("msg-%d", i), string(msg.Payload))
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:events", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Get(1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAppendRejectsEmptyAndOversizePayload(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:events", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	_, err = p.Append(ctx, nil, Fast)
	require.ErrorIs(t, err, ErrUsage)

	huge := make([]byte, p.maxPayload()+1)
	_, err = p.Append(ctx, huge, Fast)
	require.ErrorIs(t, err, ErrUsage)
}

// TestWrapAndEvict uses a deliberately small ring so several appends force
// both a wrap (tail doesn't fit, restart at offset 0) and eviction (oldest
// frames fall out of the window) within a single test.
func TestWrapAndEvict(t *testing.T) {
	reg := newTestRegistry(t)
	// header(4096) + index(auto) + small ring; use ExplicitNoIndex for a
	// deterministic, scan-only ring size.
	p, err := reg.Create("name:small", CreateOptions{SizeBytes: 4096 + 300, ExplicitNoIndex: true})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	const n = 40
	payload := []byte("0123456789") // 10 bytes, frame = 43 bytes
	var lastSeq uint64
	for i := 0; i < n; i++ {
		res, err := p.Append(ctx, payload, Fast)
		require.NoError(t, err)
		lastSeq = res.Seq
	}
	require.Equal(t, uint64(n), lastSeq)

	oldest, newest, has, err := p.Bounds()
	require.NoError(t, err)
	require.True(t, has)
	require.Equal(t, uint64(n), newest)
	require.Greater(t, oldest, uint64(1), "ring should have evicted early messages")

	// Everything at or after oldest must still be readable.
	for seq := oldest; seq <= newest; seq++ {
		msg, err := p.Get(seq)
		require.NoError(t, err, "seq %d should be reachable", seq)
		require.Equal(t, payload, msg.Payload)
	}

	// Everything before oldest must be gone.
	if oldest > 1 {
		_, err := p.Get(oldest - 1)
		require.ErrorIs(t, err, ErrNotFound)
	}
}

func TestStreamOrderingAndCatchUp(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:stream", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := p.Append(ctx, []byte{byte(i)}, Fast)
		require.NoError(t, err)
	}

	stream := p.OpenStream(0)
	first, err := stream.Next(4)
	require.NoError(t, err)
	require.Len(t, first, 4)
	require.Equal(t, uint64(1), first[0].Seq)
	require.Equal(t, uint64(4), first[3].Seq)
	require.Equal(t, uint64(5), stream.NextSeq())

	rest, err := stream.Next(100)
	require.NoError(t, err)
	require.Len(t, rest, 6)
	require.Equal(t, uint64(10), rest[5].Seq)

	// Caught up: no more messages, no error.
	empty, err := stream.Next(10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestStreamLag(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:lag", CreateOptions{SizeBytes: 4096 + 300, ExplicitNoIndex: true})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	stream := p.OpenStream(0)

	payload := []byte("0123456789")
	for i := 0; i < 40; i++ {
		_, err := p.Append(ctx, payload, Fast)
		require.NoError(t, err)
	}

	_, err = stream.Next(1)
	require.ErrorIs(t, err, ErrLag)

	require.NoError(t, stream.Skip())
	msgs, err := stream.Next(1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestTailWaitReturnsOnNewAppend(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:tail", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	stream := p.OpenStream(0)

	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		errCh <- stream.Wait(waitCtx)
	}()

	time.Sleep(10 * time.Millisecond)
	_, err = p.Append(ctx, []byte("hi"), Fast)
	require.NoError(t, err)

	require.NoError(t, <-errCh)
	msgs, err := stream.Next(10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestTailWaitTimesOutWithNoData(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:idle", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	stream := p.OpenStream(0)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err = stream.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestConcurrentAppendsAcrossHandles opens several independent Pool
// handles on the same file (simulating multiple writer processes) and
// appends through all of them concurrently, verifying the writer lock
// serializes them into one gapless sequence with no duplicates or gaps.
func TestConcurrentAppendsAcrossHandles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concurrent.plasmite")
	reg := NewRegistry(dir)

	p0, err := reg.Create("path:"+path, CreateOptions{SizeBytes: 1 << 20})
	require.NoError(t, err)
	require.NoError(t, p0.Close())

	const writers = 8
	const perWriter = 25

	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < writers; w++ {
		g.Go(func() error {
			p, err := reg.Open("path:" + path)
			if err != nil {
				return err
			}
			defer p.Close()
			for i := 0; i < perWriter; i++ {
				if _, err := p.Append(ctx, []byte("x"), Fast); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	p, err := reg.Open("path:" + path)
	require.NoError(t, err)
	defer p.Close()

	_, newest, has, err := p.Bounds()
	require.NoError(t, err)
	require.True(t, has)
	require.Equal(t, uint64(writers*perWriter), newest)

	for seq := uint64(1); seq <= newest; seq++ {
		_, err := p.Get(seq)
		require.NoError(t, err, "seq %d missing after concurrent append", seq)
	}
}

func TestRegistryCreateOpenListDelete(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Create("name:a", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	_, err = reg.Create("name:b", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)

	names, err := reg.List()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, names)

	_, err = reg.Create("name:a", CreateOptions{SizeBytes: 1 << 16})
	require.ErrorIs(t, err, ErrAlreadyExist)

	require.NoError(t, reg.Delete("name:a"))
	names, err = reg.List()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b"}, names)

	_, err = reg.Open("name:a")
	require.ErrorIs(t, err, ErrNotFound)
}
