package transport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dispatchmesh/dispatch/internal/logger"
	"github.com/dispatchmesh/dispatch/pkg/wire"
)

// ReconnectionConfig bounds the backoff schedule a reconnectionManager
// uses between dial attempts.
type ReconnectionConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration // 0 = retry forever
}

// DefaultReconnectionConfig uses a 500ms initial interval and a 30s
// maximum interval, and leaves MaxElapsedTime unbounded: a peer
// connection is expected to eventually come back, not to give up.
func DefaultReconnectionConfig() ReconnectionConfig {
	return ReconnectionConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  0,
	}
}

func (c ReconnectionConfig) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialInterval
	b.MaxInterval = c.MaxInterval
	b.MaxElapsedTime = c.MaxElapsedTime
	return b
}

// reconnectionManager owns the dial loop for one RemoteEndPoint: on
// connection loss it reconnects with bounded exponential backoff and, on
// success, replays the peer's outstanding txQueue in ascending seqNum
// order.
type reconnectionManager struct {
	localListenPort uint32
	config          ReconnectionConfig
}

func newReconnectionManager(localListenPort uint32, config ReconnectionConfig) *reconnectionManager {
	return &reconnectionManager{localListenPort: localListenPort, config: config}
}

// dial connects to addr with bounded backoff, sends the handshake (our
// own listen port), and returns the established connection. It gives up
// only if ctx is cancelled (returning ctx.Err()) or config's
// MaxElapsedTime elapses (returning the last dial or handshake error).
func (m *reconnectionManager) dial(ctx context.Context, addr wire.Address) (net.Conn, error) {
	var conn net.Conn
	operation := func() error {
		var dialErr error
		dialer := net.Dialer{}
		conn, dialErr = dialer.DialContext(ctx, "tcp", addr.String())
		if dialErr != nil {
			return dialErr
		}
		if err := writeHandshake(conn, m.localListenPort); err != nil {
			conn.Close()
			return err
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("reconnect attempt failed, backing off",
			logger.RemoteAddr(addr.String()), logger.Backoff(wait), logger.Err(err))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(m.config.newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return conn, nil
}

// writeHandshake writes the 4-byte little-endian listen-port prefix a
// newly dialed connection must send before exchanging Buffer frames.
func writeHandshake(conn net.Conn, listenPort uint32) error {
	var hdr [4]byte
	hdr[0] = byte(listenPort)
	hdr[1] = byte(listenPort >> 8)
	hdr[2] = byte(listenPort >> 16)
	hdr[3] = byte(listenPort >> 24)
	_, err := conn.Write(hdr[:])
	return err
}

// readHandshake reads the 4-byte little-endian listen-port prefix a newly
// accepted connection sends before exchanging Buffer frames.
func readHandshake(conn net.Conn) (uint32, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return 0, err
	}
	return uint32(hdr[0]) | uint32(hdr[1])<<8 | uint32(hdr[2])<<16 | uint32(hdr[3])<<24, nil
}
