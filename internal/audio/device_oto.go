//go:build !nocgo
// +build !nocgo

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// otoDevice is the production output device backed by ebitengine/oto. The
// oto context is created once per process and reused; oto v3 contexts have
// no Close and are abandoned to the GC.
type otoDevice struct {
	mu      sync.Mutex
	context *oto.Context
	format  Format
}

func newPlatformDevice() (Device, error) {
	return &otoDevice{}, nil
}

func (d *otoDevice) Open(f Format) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.context == nil || d.format != f {
		if d.context != nil {
			// oto supports one context per process; a second format would
			// need a new one, which oto does not allow.
			return nil, fmt.Errorf("audio: device already initialized at %s", d.format)
		}
		options := &oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   time.Millisecond * time.Duration(DetectPlatform().BufferSizeMillis()),
		}
		log.Debug("initializing audio context",
			"sample_rate", options.SampleRate,
			"channels", options.ChannelCount,
			"buffer_size", options.BufferSize)

		context, readyChan, err := oto.NewContext(options)
		if err != nil {
			return nil, fmt.Errorf("create audio context: %w", err)
		}
		select {
		case <-readyChan:
		case <-time.After(5 * time.Second):
			return nil, fmt.Errorf("audio context initialization timeout")
		}
		d.context = context
		d.format = f
	}

	pr, pw := io.Pipe()
	player := d.context.NewPlayer(pr)
	player.Play()

	return &otoStream{
		format: f,
		pw:     pw,
		player: player,
	}, nil
}

// otoStream adapts oto's pull-style player to the push-style Stream
// interface through a pipe. The player goroutine reads from the pipe;
// Write feeds it.
type otoStream struct {
	format Format
	pw     *io.PipeWriter
	player *oto.Player

	mu     sync.Mutex
	closed bool
}

func (s *otoStream) Write(p []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrDeviceClosed
	}
	s.mu.Unlock()

	if _, err := s.pw.Write(p); err != nil {
		return fmt.Errorf("write to audio device: %w", err)
	}
	return nil
}

func (s *otoStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.pw.Close()

	// Let buffered audio play out, bounded so a wedged backend cannot hold
	// the consumer loop hostage.
	deadline := time.Now().Add(2 * time.Second)
	for s.player.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := s.player.Close(); err != nil {
		return fmt.Errorf("close audio player: %w", err)
	}
	return nil
}

func (s *otoStream) Abort() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.pw.CloseWithError(ErrDeviceClosed)
	s.player.Pause()
	_ = s.player.Close()
}
