package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/dispatchmesh/dispatch/internal/logger"
	"github.com/dispatchmesh/dispatch/pkg/wire"
)

// acceptLoop accepts inbound connections on ln until ctx is cancelled or
// Accept fails, reading each connection's handshake and handing it to
// resolveRemote to be keyed by (remoteIP, remoteListenPort) rather than
// the ephemeral source port.
func acceptLoop(ctx context.Context, ln net.Listener, resolveRemote func(wire.Address) *RemoteEndPoint) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go acceptOne(ctx, conn, resolveRemote)
	}
}

func acceptOne(ctx context.Context, conn net.Conn, resolveRemote func(wire.Address) *RemoteEndPoint) {
	listenPort, err := readHandshake(conn)
	if err != nil {
		logger.Debug("dropping connection: handshake read failed", logger.RemoteAddr(conn.RemoteAddr().String()), logger.Err(err))
		conn.Close()
		return
	}

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		conn.Close()
		return
	}
	addr, err := wire.ParseAddress(fmt.Sprintf("%s:%d", host, listenPort))
	if err != nil {
		conn.Close()
		return
	}

	remote := resolveRemote(addr)
	if !remote.adopt(ctx, conn) {
		logger.Debug("peer already connected, closing duplicate socket", logger.RemoteAddr(addr.String()))
		conn.Close()
	}
}
