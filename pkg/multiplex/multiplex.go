// Package multiplex splits one physical transport endpoint into named
// sub-endpoints, each identified by a UTF-8 name frame pushed atop the
// underlying message.
package multiplex

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dispatchmesh/dispatch/pkg/transport"
	"github.com/dispatchmesh/dispatch/pkg/wire"
)

// maxNameLen bounds the multiplex name frame to a sane size; the wire
// format itself has no inherent limit beyond uint32, this guards against
// a clearly malformed frame consuming unbounded memory.
const maxNameLen = 4096

// Multiplexer owns a transport.LocalEndPoint and dispatches inbound
// messages to the named sub-endpoint (Channel) their name frame
// addresses, after stripping that frame.
//
// Named queues are retained for the Multiplexer's whole lifetime rather
// than weakly referenced as the reference design suggests — a documented
// deviation (see the design notes): Go has no language-level weak
// reference, and approximating one with a finalizer would make delivery
// depend on GC timing, trading one form of silent drop for another. A
// channel is instead explicitly removed via Close.
type Multiplexer struct {
	physical *transport.LocalEndPoint

	mu       sync.Mutex
	channels map[string]*Channel
}

// New wraps physical in a Multiplexer and starts its demultiplexing loop.
func New(ctx context.Context, physical *transport.LocalEndPoint) *Multiplexer {
	m := &Multiplexer{physical: physical, channels: make(map[string]*Channel)}
	go m.demux(ctx)
	return m
}

// Channel returns the named sub-endpoint, creating it if this is the
// first request for name.
func (m *Multiplexer) Channel(name string) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[name]; ok {
		return ch
	}
	ch := &Channel{name: name, mux: m, receiveCh: make(chan transport.Inbound, 64)}
	m.channels[name] = ch
	return ch
}

// closeChannel removes name from the multiplexer; messages that arrive
// for it afterward are dropped without logging (see demux).
func (m *Multiplexer) closeChannel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, name)
}

func (m *Multiplexer) demux(ctx context.Context) {
	for {
		in, err := m.physical.Receive(ctx)
		if err != nil {
			return
		}
		name, err := popName(in.Message)
		if err != nil {
			continue
		}
		m.mu.Lock()
		ch, ok := m.channels[name]
		m.mu.Unlock()
		if !ok {
			continue
		}
		ch.deliver(transport.Inbound{Message: in.Message, Remote: in.Remote})
	}
}

// Channel is one named sub-endpoint of a Multiplexer.
type Channel struct {
	name      string
	mux       *Multiplexer
	receiveCh chan transport.Inbound
}

// Send pushes this channel's name frame atop message and transmits it to
// peer via the underlying physical endpoint.
func (c *Channel) Send(ctx context.Context, peer wire.Address, message *wire.Buffer) error {
	if err := pushName(message, c.name); err != nil {
		return err
	}
	return c.mux.physical.Send(ctx, peer, message)
}

// Receive blocks until a message addressed to this channel's name
// arrives, or ctx is cancelled.
func (c *Channel) Receive(ctx context.Context) (transport.Inbound, error) {
	select {
	case in := <-c.receiveCh:
		return in, nil
	case <-ctx.Done():
		return transport.Inbound{}, ctx.Err()
	}
}

func (c *Channel) deliver(in transport.Inbound) {
	select {
	case c.receiveCh <- in:
	default:
	}
}

// Close removes this channel from its Multiplexer; further messages
// addressed to its name are dropped.
func (c *Channel) Close() {
	c.mux.closeChannel(c.name)
}

// pushName pushes the {u32 nameLength, utf8 nameBytes} frame atop buf.
func pushName(buf *wire.Buffer, name string) error {
	payload := make([]byte, 4+len(name))
	binary.BigEndian.PutUint32(payload[:4], uint32(len(name)))
	copy(payload[4:], name)
	return buf.PushFrame(payload)
}

// popName pops and decodes the {u32 nameLength, utf8 nameBytes} frame
// from the top of buf.
func popName(buf *wire.Buffer) (string, error) {
	f, err := buf.PopFrame()
	if err != nil {
		return "", err
	}
	if len(f.Payload) < 4 {
		return "", fmt.Errorf("multiplex: name frame too short (%d bytes)", len(f.Payload))
	}
	nameLen := binary.BigEndian.Uint32(f.Payload[:4])
	if nameLen > maxNameLen || int(nameLen) != len(f.Payload)-4 {
		return "", fmt.Errorf("multiplex: declared name length %d inconsistent with frame", nameLen)
	}
	return string(f.Payload[4:]), nil
}
