package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dispatchmesh/dispatch/internal/logger"
	"github.com/dispatchmesh/dispatch/pkg/metrics"
	"github.com/dispatchmesh/dispatch/pkg/wire"
)

// connState is the per-peer connection state machine.
type connState int32

const (
	stateUnconnected connState = iota
	stateConnected
)

// Inbound is a received (message, remoteAddress) pair handed to the
// endpoint's receive queue.
type Inbound struct {
	Message *wire.Buffer
	Remote  wire.Address
}

// RemoteEndPoint is the local endpoint's view of one peer: its active
// connection (if any), its outstanding txQueue, and the reconnection loop
// that keeps a connection alive across drops.
type RemoteEndPoint struct {
	addr wire.Address

	connMu sync.Mutex
	conn   net.Conn
	state  atomic.Int32

	nextSeqNum atomic.Uint32
	queue      *txQueue

	reconnect      *reconnectionManager
	receiveFn      func(Inbound)
	metrics        metrics.DispatchMetrics
	maxMessageSize uint64

	closed atomic.Bool
}

func newRemoteEndPoint(addr wire.Address, localListenPort uint32, cfg ReconnectionConfig, m metrics.DispatchMetrics, maxMessageSize uint64, receiveFn func(Inbound)) *RemoteEndPoint {
	if m == nil {
		m = metrics.NoOp
	}
	return &RemoteEndPoint{
		addr:           addr,
		queue:          newTxQueue(),
		reconnect:      newReconnectionManager(localListenPort, cfg),
		receiveFn:      receiveFn,
		metrics:        m,
		maxMessageSize: maxMessageSize,
	}
}

// adopt installs an accepted or dialed connection as the active
// connection and starts a receive loop for it. Returns false if the RemoteEndPoint
// is already connected, in which case the caller should close conn.
func (r *RemoteEndPoint) adopt(ctx context.Context, conn net.Conn) bool {
	r.connMu.Lock()
	if r.state.Load() == int32(stateConnected) {
		r.connMu.Unlock()
		return false
	}
	r.conn = conn
	r.state.Store(int32(stateConnected))
	r.connMu.Unlock()

	r.metrics.ConnectionEstablished(r.addr.String())
	go r.receiveLoop(ctx, conn)
	return true
}

// Address returns the peer's address.
func (r *RemoteEndPoint) Address() wire.Address { return r.addr }

// Connected reports whether a live connection to the peer currently
// exists.
func (r *RemoteEndPoint) Connected() bool { return r.state.Load() == int32(stateConnected) }

// QueueDepth returns the number of outstanding, unacknowledged sends, for
// metrics.
func (r *RemoteEndPoint) QueueDepth() int { return r.queue.len() }

// Send frames message as a Deliver envelope and transmits it, blocking
// until the peer's Ack is observed or ctx is cancelled. On cancellation,
// the send's txQueue entry is removed (so a later stale Ack is dropped)
// but the frame may already be in flight — delivery remains at-least-once
// even though this call reports the wait as cancelled.
func (r *RemoteEndPoint) Send(ctx context.Context, message *wire.Buffer) error {
	if r.closed.Load() {
		return ErrDisposed
	}

	seqNum := r.nextSeqNum.Add(1)
	p := &pendingSend{seqNum: seqNum, message: message, ackCh: make(chan struct{})}
	r.queue.insert(p)
	r.metrics.TxQueueDepth(r.addr.String(), r.queue.len())

	if err := r.transmit(p); err != nil {
		logger.Warn("send failed, will retry after reconnect", logger.RemoteAddr(r.addr.String()), logger.SeqNum(uint64(seqNum)), logger.Err(err))
	}

	select {
	case <-p.ackCh:
		return nil
	case <-ctx.Done():
		r.queue.remove(seqNum)
		return ctx.Err()
	}
}

// transmit writes p's framed envelope+payload to the active connection,
// if any. A failure here does not remove p from the txQueue: the
// reconnection loop will replay it once a connection is re-established.
func (r *RemoteEndPoint) transmit(p *pendingSend) error {
	r.connMu.Lock()
	conn := r.conn
	r.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	buf := p.message
	if err := pushEnvelope(buf, envelope{kind: kindDeliver, seqNum: p.seqNum}); err != nil {
		return err
	}
	_, err := buf.WriteTo(conn)
	// The envelope frame must not leak onto a future retransmit attempt
	// sharing the same *wire.Buffer, so pop it back off immediately.
	_, _ = buf.PopFrame()
	return err
}

// receiveLoop reads framed buffers from conn until it errors or closes,
// dispatching Deliver frames to receiveFn (after Ack-ing them back) and
// completing ack-waiters for Ack frames. On exit it drops the connection
// and starts the reconnection loop.
func (r *RemoteEndPoint) receiveLoop(ctx context.Context, conn net.Conn) {
	defer r.onConnectionLost(ctx, conn)

	for {
		buf, err := wire.ReadBufferLimit(conn, r.maxMessageSize)
		if err != nil {
			if err != io.EOF {
				logger.Debug("connection read failed", logger.RemoteAddr(r.addr.String()), logger.Err(err))
			}
			return
		}

		env, err := popEnvelope(buf)
		if err != nil {
			logger.Warn("dropping malformed envelope", logger.RemoteAddr(r.addr.String()), logger.Err(err))
			continue
		}

		switch env.kind {
		case kindDeliver:
			if r.receiveFn != nil {
				r.receiveFn(Inbound{Message: buf, Remote: r.addr})
			}
			r.sendAck(conn, env.seqNum)
		case kindAck:
			if !r.queue.ack(env.seqNum) {
				logger.Debug("dropping ack for unknown sequence number", logger.RemoteAddr(r.addr.String()), logger.SeqNum(uint64(env.seqNum)))
			}
		}
	}
}

func (r *RemoteEndPoint) sendAck(conn net.Conn, seqNum uint32) {
	var buf bytes.Buffer
	ack := wire.NewBuffer()
	if err := pushEnvelope(ack, envelope{kind: kindAck, seqNum: seqNum}); err != nil {
		return
	}
	if _, err := ack.WriteTo(&buf); err != nil {
		return
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		logger.Debug("failed to write ack", logger.RemoteAddr(r.addr.String()), logger.Err(err))
	}
}

// onConnectionLost clears the active connection and, unless the endpoint
// has been closed, starts the reconnection loop in the background.
func (r *RemoteEndPoint) onConnectionLost(ctx context.Context, lost net.Conn) {
	lost.Close()

	r.connMu.Lock()
	if r.conn == lost {
		r.conn = nil
		r.state.Store(int32(stateUnconnected))
	}
	r.connMu.Unlock()
	r.metrics.ConnectionLost(r.addr.String())

	if r.closed.Load() {
		return
	}
	go r.reconnectLoop(ctx)
}

// reconnectLoop dials the peer with backoff and, on success, installs the
// new connection and replays every outstanding send in ascending seqNum
// order.
func (r *RemoteEndPoint) reconnectLoop(ctx context.Context) {
	conn, err := r.reconnect.dial(ctx, r.addr)
	if err != nil {
		logger.Warn("giving up reconnecting to peer", logger.RemoteAddr(r.addr.String()), logger.Err(err))
		r.metrics.ReconnectAttempt(r.addr.String(), false)
		return
	}
	if !r.adopt(ctx, conn) {
		conn.Close()
		return
	}
	r.metrics.ReconnectAttempt(r.addr.String(), true)

	for _, p := range r.queue.drainAscending() {
		if err := r.transmit(p); err != nil {
			logger.Warn("replay send failed", logger.RemoteAddr(r.addr.String()), logger.SeqNum(uint64(p.seqNum)), logger.Err(err))
			return
		}
	}
}

// Close marks the RemoteEndPoint as disposed and closes its active
// connection, if any. No further reconnection is attempted.
func (r *RemoteEndPoint) Close() error {
	r.closed.Store(true)
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conn != nil {
		err := r.conn.Close()
		r.conn = nil
		r.state.Store(int32(stateUnconnected))
		return err
	}
	return nil
}
