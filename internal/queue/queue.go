// Package queue provides the bounded playback queue connecting a synthesis
// producer to a playback consumer. Chunks flow strictly FIFO; a distinguished
// sentinel marks the end of an utterance.
package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/interviewbotpro/speech/internal/audio"
)

var (
	// ErrTimeout is returned when a bounded Put or Pop expires.
	ErrTimeout = errors.New("queue: operation timed out")

	// ErrCanceled is returned when a Put is abandoned because the caller's
	// cancellation fired.
	ErrCanceled = errors.New("queue: operation canceled")
)

// Queue is a bounded FIFO of audio chunks with a terminal sentinel. One
// producer and one consumer share it per utterance; a new utterance gets a
// new queue. All operations are safe for concurrent use.
type Queue struct {
	ch chan *audio.Chunk

	sentinelOnce sync.Once
	sentinelSent atomic.Bool

	stats Stats
}

// Stats counts queue traffic for metrics logging.
type Stats struct {
	Enqueued atomic.Int64
	Dequeued atomic.Int64
	Dropped  atomic.Int64
}

// New creates a queue holding at most capacity chunks.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan *audio.Chunk, capacity)}
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Len returns the number of queued chunks (including a queued sentinel).
func (q *Queue) Len() int { return len(q.ch) }

// Put enqueues a chunk, waiting at most timeout for space. It returns
// ErrTimeout when the queue stays full and ErrCanceled when cancel fires
// first. Callers enforce the stall ceiling by bounding successive timeouts.
func (q *Queue) Put(c *audio.Chunk, timeout time.Duration, cancel <-chan struct{}) error {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case q.ch <- c:
		q.stats.Enqueued.Add(1)
		return nil
	case <-cancel:
		return ErrCanceled
	case <-t.C:
		return ErrTimeout
	}
}

// PutSentinel enqueues the end-of-utterance sentinel without blocking.
// At most one sentinel is ever enqueued per queue; if the queue is full the
// sentinel is dropped and the consumer must detect the end via cancellation.
// Returns true when the sentinel was actually enqueued.
func (q *Queue) PutSentinel() bool {
	sent := false
	q.sentinelOnce.Do(func() {
		select {
		case q.ch <- nil:
			sent = true
		default:
			q.stats.Dropped.Add(1)
		}
	})
	if sent {
		q.sentinelSent.Store(true)
	}
	return sent
}

// SentinelSent reports whether the sentinel made it into the queue.
func (q *Queue) SentinelSent() bool { return q.sentinelSent.Load() }

// Pop dequeues the next chunk, waiting at most timeout. A nil chunk with a
// nil error is the sentinel. ErrTimeout lets an idle consumer re-check its
// cancellation signal.
func (q *Queue) Pop(timeout time.Duration) (*audio.Chunk, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case c := <-q.ch:
		if c != nil {
			q.stats.Dequeued.Add(1)
		}
		return c, nil
	case <-t.C:
		return nil, ErrTimeout
	}
}

// Drain discards everything still queued and returns the number of real
// chunks dropped.
func (q *Queue) Drain() int {
	dropped := 0
	for {
		select {
		case c := <-q.ch:
			if c != nil {
				dropped++
				q.stats.Dropped.Add(1)
			}
		default:
			return dropped
		}
	}
}

// Enqueued returns the number of real chunks accepted so far.
func (q *Queue) Enqueued() int64 { return q.stats.Enqueued.Load() }

// Dequeued returns the number of real chunks handed to the consumer.
func (q *Queue) Dequeued() int64 { return q.stats.Dequeued.Load() }

// Dropped returns the number of chunks discarded by Drain plus dropped
// sentinels.
func (q *Queue) Dropped() int64 { return q.stats.Dropped.Load() }
