package pool

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStreamNextMatchesAppendOrder(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:diff", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	var want []Message
	for i := 0; i < 6; i++ {
		payload := []byte{byte('a' + i)}
		res, err := p.Append(ctx, payload, Fast)
		require.NoError(t, err)
		want = append(want, Message{Seq: res.Seq, TimestampNs: res.TimestampNs, Payload: payload})
	}

	got, err := p.OpenStream(0).Next(len(want))
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("stream output mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenStreamAssignsDistinctIDs(t *testing.T) {
	reg := newTestRegistry(t)
	p, err := reg.Create("name:streamid", CreateOptions{SizeBytes: 1 << 16})
	require.NoError(t, err)
	defer p.Close()

	a := p.OpenStream(0)
	b := p.OpenStream(0)
	require.NotEqual(t, uuid.Nil, a.ID())
	require.NotEqual(t, a.ID(), b.ID())
}
