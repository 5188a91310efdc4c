package envelope_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sandover/plasmite/envelope"
	"github.com/sandover/plasmite/pool"
)

func TestFromPoolRoundTrip(t *testing.T) {
	m := pool.Message{Seq: 7, TimestampNs: 1_700_000_000_000_000_000, Payload: []byte("hi")}

	wire := envelope.FromPool(m)
	require.Equal(t, uint64(7), wire.Seq)

	got, err := wire.Decode()
	require.NoError(t, err)
	require.Equal(t, m.Payload, got)
}

func TestHTTPStatusMapping(t *testing.T) {
	require.Equal(t, 404, envelope.HTTPStatus(pool.ErrNotFound))
	require.Equal(t, 400, envelope.HTTPStatus(pool.ErrUsage))
	require.Equal(t, 410, envelope.HTTPStatus(pool.ErrLag))
	require.Equal(t, 500, envelope.HTTPStatus(pool.ErrInternal))
}

func TestFromErrorNonPoolError(t *testing.T) {
	body := envelope.FromError(errPlain("boom"))
	require.Equal(t, "Internal", body.Code)
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
