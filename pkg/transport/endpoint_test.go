package transport

import (
	"context"
	"testing"
	"time"

	"github.com/dispatchmesh/dispatch/pkg/wire"
	"github.com/stretchr/testify/require"
)

func testReconnectConfig() ReconnectionConfig {
	return ReconnectionConfig{InitialInterval: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond}
}

func TestSendReceiveRoundTripAcrossTwoEndpoints(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := Listen(ctx, EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: testReconnectConfig()})
	require.NoError(t, err)
	defer a.Close()

	b, err := Listen(ctx, EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: testReconnectConfig()})
	require.NoError(t, err)
	defer b.Close()

	msg := wire.NewBuffer()
	require.NoError(t, msg.PushFrame([]byte("hello from a")))

	sendCtx, sendCancel := context.WithTimeout(ctx, 5*time.Second)
	defer sendCancel()
	require.NoError(t, a.Send(sendCtx, b.Address(), msg))

	recvCtx, recvCancel := context.WithTimeout(ctx, 5*time.Second)
	defer recvCancel()
	in, err := b.Receive(recvCtx)
	require.NoError(t, err)

	f, err := in.Message.PopFrame()
	require.NoError(t, err)
	require.Equal(t, "hello from a", string(f.Payload))
}

func TestSendTimesOutWithoutAPeer(t *testing.T) {
	ctx := context.Background()
	a, err := Listen(ctx, EndPointConfig{ListenAddr: "127.0.0.1:0", Reconnect: testReconnectConfig()})
	require.NoError(t, err)
	defer a.Close()

	unreachable, err := wire.ParseAddress("127.0.0.1:1")
	require.NoError(t, err)

	sendCtx, sendCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer sendCancel()

	msg := wire.NewBuffer()
	require.NoError(t, msg.PushFrame([]byte("x")))
	err = a.Send(sendCtx, unreachable, msg)
	require.Error(t, err)
}
