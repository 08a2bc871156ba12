package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/interviewbotpro/speech/internal/audio"
)

func testChunk(b byte) *audio.Chunk {
	return &audio.Chunk{
		Data:   []byte{b, 0},
		Format: audio.ContractFormat(),
	}
}

func TestQueueFIFO(t *testing.T) {
	q := New(5)
	for i := byte(0); i < 3; i++ {
		if err := q.Put(testChunk(i), 10*time.Millisecond, nil); err != nil {
			t.Fatalf("Expected Put to succeed, got %v", err)
		}
	}

	for i := byte(0); i < 3; i++ {
		c, err := q.Pop(10 * time.Millisecond)
		if err != nil {
			t.Fatalf("Expected Pop to succeed, got %v", err)
		}
		if c == nil {
			t.Fatal("Expected chunk, got sentinel")
		}
		if c.Data[0] != i {
			t.Errorf("Expected chunk %d, got %d", i, c.Data[0])
		}
	}
}

func TestQueuePutTimeout(t *testing.T) {
	q := New(1)
	if err := q.Put(testChunk(0), 10*time.Millisecond, nil); err != nil {
		t.Fatalf("Expected first Put to succeed, got %v", err)
	}

	err := q.Put(testChunk(1), 10*time.Millisecond, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout on full queue, got %v", err)
	}
}

func TestQueuePutCanceled(t *testing.T) {
	q := New(1)
	if err := q.Put(testChunk(0), 10*time.Millisecond, nil); err != nil {
		t.Fatalf("Expected first Put to succeed, got %v", err)
	}

	cancel := make(chan struct{})
	close(cancel)
	err := q.Put(testChunk(1), time.Second, cancel)
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got %v", err)
	}
}

func TestQueuePopTimeout(t *testing.T) {
	q := New(1)
	start := time.Now()
	_, err := q.Pop(20 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout on empty queue, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Expected Pop to return promptly, took %v", elapsed)
	}
}

func TestQueueSentinelOnce(t *testing.T) {
	q := New(5)
	if !q.PutSentinel() {
		t.Fatal("Expected first PutSentinel to enqueue")
	}
	if q.PutSentinel() {
		t.Error("Expected second PutSentinel to be a no-op")
	}
	if !q.SentinelSent() {
		t.Error("Expected SentinelSent to be true")
	}

	c, err := q.Pop(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("Expected Pop to succeed, got %v", err)
	}
	if c != nil {
		t.Errorf("Expected sentinel, got chunk %v", c)
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue after sentinel, got length %d", q.Len())
	}
}

func TestQueueSentinelDroppedWhenFull(t *testing.T) {
	q := New(1)
	if err := q.Put(testChunk(0), 10*time.Millisecond, nil); err != nil {
		t.Fatalf("Expected Put to succeed, got %v", err)
	}

	if q.PutSentinel() {
		t.Error("Expected sentinel to be dropped on a full queue")
	}
	if q.SentinelSent() {
		t.Error("Expected SentinelSent to be false after a drop")
	}
	if q.Dropped() != 1 {
		t.Errorf("Expected 1 drop counted, got %d", q.Dropped())
	}
}

func TestQueueDrain(t *testing.T) {
	q := New(5)
	for i := byte(0); i < 4; i++ {
		if err := q.Put(testChunk(i), 10*time.Millisecond, nil); err != nil {
			t.Fatalf("Expected Put to succeed, got %v", err)
		}
	}
	q.PutSentinel()

	if dropped := q.Drain(); dropped != 4 {
		t.Errorf("Expected 4 chunks drained, got %d", dropped)
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue after Drain, got length %d", q.Len())
	}
}

func TestQueueStats(t *testing.T) {
	q := New(5)
	for i := byte(0); i < 3; i++ {
		if err := q.Put(testChunk(i), 10*time.Millisecond, nil); err != nil {
			t.Fatalf("Expected Put to succeed, got %v", err)
		}
	}
	if _, err := q.Pop(10 * time.Millisecond); err != nil {
		t.Fatalf("Expected Pop to succeed, got %v", err)
	}
	q.Drain()

	if q.Enqueued() != 3 {
		t.Errorf("Expected 3 enqueued, got %d", q.Enqueued())
	}
	if q.Dequeued() != 1 {
		t.Errorf("Expected 1 dequeued, got %d", q.Dequeued())
	}
	if q.Dropped() != 2 {
		t.Errorf("Expected 2 dropped, got %d", q.Dropped())
	}
}

func TestQueueConcurrentProducerConsumer(t *testing.T) {
	// Capacity above n so the non-blocking sentinel always fits.
	q := New(32)
	const n = 20

	go func() {
		for i := byte(0); i < n; i++ {
			for {
				if err := q.Put(testChunk(i), 10*time.Millisecond, nil); err == nil {
					break
				}
			}
		}
		q.PutSentinel()
	}()

	var got []byte
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("Expected consumer to finish, timed out")
		default:
		}
		c, err := q.Pop(50 * time.Millisecond)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if c == nil {
			// sentinel
			if len(got) != n {
				t.Fatalf("Expected %d chunks before sentinel, got %d", n, len(got))
			}
			for i, b := range got {
				if b != byte(i) {
					t.Fatalf("Expected chunk %d at position %d, got %d", i, i, b)
				}
			}
			return
		}
		got = append(got, c.Data[0])
	}
}
