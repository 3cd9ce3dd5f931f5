package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTxQueueInsertAckRemovesEntryAndCompletesWaiter(t *testing.T) {
	q := newTxQueue()
	p := &pendingSend{seqNum: 5, ackCh: make(chan struct{})}
	q.insert(p)
	assert.Equal(t, 1, q.len())

	assert.True(t, q.ack(5))
	assert.Equal(t, 0, q.len())

	select {
	case <-p.ackCh:
	default:
		t.Fatal("expected ackCh to be closed")
	}
}

func TestTxQueueAckUnknownSeqNumReturnsFalse(t *testing.T) {
	q := newTxQueue()
	assert.False(t, q.ack(123))
}

func TestTxQueueRemoveDoesNotCompleteWaiter(t *testing.T) {
	q := newTxQueue()
	p := &pendingSend{seqNum: 1, ackCh: make(chan struct{})}
	q.insert(p)
	q.remove(1)
	assert.Equal(t, 0, q.len())

	select {
	case <-p.ackCh:
		t.Fatal("ackCh must not be closed by remove")
	default:
	}
}

func TestTxQueueDrainAscending(t *testing.T) {
	q := newTxQueue()
	for _, n := range []uint32{5, 1, 3} {
		q.insert(&pendingSend{seqNum: n, ackCh: make(chan struct{})})
	}
	drained := q.drainAscending()
	assert.Len(t, drained, 3)
	assert.Equal(t, []uint32{1, 3, 5}, drainSeqNums(drained))
}

func drainSeqNums(entries []*pendingSend) []uint32 {
	out := make([]uint32, len(entries))
	for i, e := range entries {
		out[i] = e.seqNum
	}
	return out
}
