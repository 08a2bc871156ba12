package audio

import "errors"

// ErrDeviceClosed is returned by writes to a closed stream.
var ErrDeviceClosed = errors.New("audio: stream closed")

// Stream is an open audio sink. It accepts s16le sample blocks in the
// stream's format and must be released with Close or Abort on every exit
// path; leaked streams block future playback.
type Stream interface {
	// Write queues a block of samples for playback. Blocking is bounded by
	// the backend's internal buffer.
	Write(p []byte) error

	// Close drains buffered audio and releases the stream.
	Close() error

	// Abort releases the stream without waiting for buffered audio.
	Abort()
}

// Device is an output device that can open playback streams.
type Device interface {
	Open(f Format) (Stream, error)
}

// DeviceFactory constructs an output device. Providers receive a factory
// rather than a device so that opening hardware stays lazy.
type DeviceFactory func() (Device, error)

// NewDevice returns the default device factory for the current build:
// the oto backend when cgo audio is available, otherwise the stub.
func NewDevice() (Device, error) {
	return newPlatformDevice()
}
