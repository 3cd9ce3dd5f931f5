package multiplex

import (
	"context"
	"testing"
	"time"

	"github.com/dispatchmesh/dispatch/pkg/transport"
	"github.com/dispatchmesh/dispatch/pkg/wire"
	"github.com/stretchr/testify/require"
)

func TestNameFrameRoundTrip(t *testing.T) {
	buf := wire.NewBuffer()
	require.NoError(t, buf.PushFrame([]byte("payload")))
	require.NoError(t, pushName(buf, "dispatch"))

	name, err := popName(buf)
	require.NoError(t, err)
	require.Equal(t, "dispatch", name)

	f, err := buf.PopFrame()
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), f.Payload)
}

func TestChannelsDemuxByName(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := transport.ReconnectionConfig{InitialInterval: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond}
	a, err := transport.Listen(ctx, transport.EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: cfg})
	require.NoError(t, err)
	defer a.Close()

	b, err := transport.Listen(ctx, transport.EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: cfg})
	require.NoError(t, err)
	defer b.Close()

	muxA := New(ctx, a)
	muxB := New(ctx, b)

	dispatchB := muxB.Channel("dispatch")
	_ = muxB.Channel("control") // a sibling channel that must not receive the message below

	payload := wire.NewBuffer()
	require.NoError(t, payload.PushFrame([]byte("hello")))

	sendCtx, sendCancel := context.WithTimeout(ctx, 5*time.Second)
	defer sendCancel()
	require.NoError(t, muxA.Channel("dispatch").Send(sendCtx, b.Address(), payload))

	recvCtx, recvCancel := context.WithTimeout(ctx, 5*time.Second)
	defer recvCancel()
	in, err := dispatchB.Receive(recvCtx)
	require.NoError(t, err)

	f, err := in.Message.PopFrame()
	require.NoError(t, err)
	require.Equal(t, "hello", string(f.Payload))
}
