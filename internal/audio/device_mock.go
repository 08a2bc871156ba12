package audio

import (
	"sync"
	"time"
)

// MockDevice is a recording output device for tests and for platforms where
// the probe decides real audio is unusable (CI, headless hosts). It accepts
// every write, optionally simulating per-write latency and injected errors.
type MockDevice struct {
	mu sync.Mutex

	// OpenErr, when set, is returned by Open.
	OpenErr error

	// WriteDelay simulates a slow sink; applied before every write.
	WriteDelay time.Duration

	// WriteErrFunc, when set, is consulted per write with the write index
	// and may return an error to inject.
	WriteErrFunc func(n int) error

	// OnWrite, when set, observes every accepted write.
	OnWrite func(p []byte)

	streams []*MockStream
	opens   int
}

var _ Device = (*MockDevice)(nil)

func (d *MockDevice) Open(f Format) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	s := &MockStream{device: d, format: f}
	d.streams = append(d.streams, s)
	return s, nil
}

// Opens returns how many times Open was called.
func (d *MockDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Streams returns every stream the device has opened.
func (d *MockDevice) Streams() []*MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockStream, len(d.streams))
	copy(out, d.streams)
	return out
}

// AllReleased reports whether every opened stream was closed or aborted.
func (d *MockDevice) AllReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.streams {
		if !s.Released() {
			return false
		}
	}
	return true
}

// MockStream records everything written to it.
type MockStream struct {
	device *MockDevice
	format Format

	mu      sync.Mutex
	writes  int
	bytes   int
	data    []byte
	closed  bool
	aborted bool
}

var _ Stream = (*MockStream)(nil)

func (s *MockStream) Write(p []byte) error {
	s.device.mu.Lock()
	delay := s.device.WriteDelay
	errFunc := s.device.WriteErrFunc
	onWrite := s.device.OnWrite
	s.device.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	if s.closed || s.aborted {
		s.mu.Unlock()
		return ErrDeviceClosed
	}
	n := s.writes
	s.mu.Unlock()

	if errFunc != nil {
		if err := errFunc(n); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.writes++
	s.bytes += len(p)
	s.data = append(s.data, p...)
	s.mu.Unlock()

	if onWrite != nil {
		onWrite(p)
	}
	return nil
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MockStream) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
}

// Writes returns the number of accepted writes.
func (s *MockStream) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Bytes returns the total number of bytes accepted.
func (s *MockStream) Bytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// Data returns a copy of everything written.
func (s *MockStream) Data() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// Released reports whether the stream was closed or aborted.
func (s *MockStream) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.aborted
}
