package speech

import "sync"

// Signal is the shared, idempotent, level-triggered stop flag observed by
// producer and consumer at their checkpoints. Once set it never resets;
// each new utterance gets a fresh Signal.
type Signal struct {
	once sync.Once
	done chan struct{}
}

// NewSignal creates an unset signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Set requests a stop. Safe to call from any goroutine, any number of times.
func (s *Signal) Set() {
	s.once.Do(func() { close(s.done) })
}

// IsSet reports whether a stop has been requested.
func (s *Signal) IsSet() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the signal is set, for use in selects.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}
