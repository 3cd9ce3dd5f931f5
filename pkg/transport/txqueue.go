package transport

import (
	"sync"

	"github.com/dispatchmesh/dispatch/pkg/wire"
)

// pendingSend is one outstanding, unacknowledged message: inserted into a
// txQueue before the first send attempt, removed when its Ack arrives.
// ackCh is closed exactly once, by the receive loop that observes the
// matching Ack.
type pendingSend struct {
	seqNum  uint32
	message *wire.Buffer
	ackCh   chan struct{}
}

// txQueue is the per-peer outstanding-send table: a map from seqNum to
// pendingSend, guarded by one mutex for every operation.
type txQueue struct {
	mu      sync.Mutex
	entries map[uint32]*pendingSend
}

func newTxQueue() *txQueue {
	return &txQueue{entries: make(map[uint32]*pendingSend)}
}

// insert adds p to the queue. Insertion always happens before the first
// send attempt, so an Ack racing the send still finds its entry.
func (q *txQueue) insert(p *pendingSend) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[p.seqNum] = p
}

// ack completes and removes the entry for seqNum, if present. It reports
// whether an entry was found — an unknown seqNum (stale duplicate Ack, or
// one from a dropped connection) is logged and dropped by the caller.
func (q *txQueue) ack(seqNum uint32) bool {
	q.mu.Lock()
	p, ok := q.entries[seqNum]
	if ok {
		delete(q.entries, seqNum)
	}
	q.mu.Unlock()
	if ok {
		close(p.ackCh)
	}
	return ok
}

// remove drops the entry for seqNum without completing its ack-waiter —
// used when a caller's own context is cancelled: the transport-level
// send is still considered in flight and the message MAY still be
// delivered (at-least-once), but nothing is waiting on the result.
func (q *txQueue) remove(seqNum uint32) {
	q.mu.Lock()
	delete(q.entries, seqNum)
	q.mu.Unlock()
}

// drainAscending returns every outstanding entry ordered by ascending
// seqNum, for replay after a reconnect.
func (q *txQueue) drainAscending() []*pendingSend {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*pendingSend, 0, len(q.entries))
	for _, p := range q.entries {
		out = append(out, p)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].seqNum > out[j].seqNum; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// len reports the number of outstanding entries, for metrics.
func (q *txQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
