package providers

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/interviewbotpro/speech/internal/audio"
	"github.com/interviewbotpro/speech/pkg/speech"
)

func testGTTS(t *testing.T) *GTTS {
	t.Helper()
	cfg := speech.DefaultConfig()
	cfg.Providers.GTTS.TempDir = t.TempDir()
	cfg.Providers.GTTS.RequestsPerMinute = 60000

	logger := log.New(io.Discard)
	deps := speech.Dependencies{
		Config:  cfg,
		Log:     logger,
		Metrics: speech.NewMetricsLogger(logger, false),
		Device:  func() (audio.Device, error) { return &audio.MockDevice{}, nil },
	}
	p := NewGTTS(deps).(*GTTS)
	p.lookPath = func(file string) (string, error) {
		if file == "mpv" {
			return "/usr/bin/mpv", nil
		}
		return "", errors.New("not found")
	}
	return p
}

func waitGTTSIdle(t *testing.T, p *GTTS) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for p.Speaking() {
		select {
		case <-deadline:
			t.Fatal("Expected playback to finish, timed out")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestGTTSProbe(t *testing.T) {
	t.Run("finds a player", func(t *testing.T) {
		p := testGTTS(t)
		if err := p.Probe(); err != nil {
			t.Fatalf("Expected probe to succeed, got %v", err)
		}
		if !p.RuntimeAvailable() {
			t.Error("Expected provider to be runtime-available after probe")
		}
	})

	t.Run("no player on PATH", func(t *testing.T) {
		p := testGTTS(t)
		p.lookPath = func(string) (string, error) {
			return "", errors.New("not found")
		}
		err := p.Probe()
		if err == nil {
			t.Fatal("Expected probe to fail without a player")
		}
		if got := speech.CategoryOf(err); got != speech.CategoryCapability {
			t.Errorf("Expected capability category, got %v", got)
		}
		if p.RuntimeAvailable() {
			t.Error("Expected provider to be runtime-unavailable")
		}
	})
}

func TestGTTSSpeakPlaysAndCleansUp(t *testing.T) {
	p := testGTTS(t)
	if err := p.Probe(); err != nil {
		t.Fatalf("Expected probe to succeed, got %v", err)
	}

	p.fetch = func(_ context.Context, text, lang, _ string, _ bool) ([]byte, error) {
		if lang != "en" {
			t.Errorf("Expected language en, got %q", lang)
		}
		return []byte("mp3:" + text), nil
	}

	var (
		mu          sync.Mutex
		playedWith  string
		playedFile  string
		fileExisted bool
	)
	p.play = func(player, path string) error {
		mu.Lock()
		playedWith = player
		playedFile = path
		_, err := os.Stat(path)
		fileExisted = err == nil
		mu.Unlock()
		return nil
	}

	if err := p.Speak("Hello out there.", speech.SpeakOptions{}); err != nil {
		t.Fatalf("Expected Speak to succeed, got %v", err)
	}
	waitGTTSIdle(t, p)

	mu.Lock()
	defer mu.Unlock()
	if playedWith != "/usr/bin/mpv" {
		t.Errorf("Expected playback with /usr/bin/mpv, got %q", playedWith)
	}
	if !fileExisted {
		t.Error("Expected temp file to exist during playback")
	}
	if _, err := os.Stat(playedFile); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected temp file removed after playback, got %v", err)
	}
}

func TestGTTSSpeakFetchFailure(t *testing.T) {
	p := testGTTS(t)
	if err := p.Probe(); err != nil {
		t.Fatalf("Expected probe to succeed, got %v", err)
	}

	p.fetch = func(context.Context, string, string, string, bool) ([]byte, error) {
		return nil, errors.New("endpoint blocked")
	}
	var played atomic.Bool
	p.play = func(string, string) error {
		played.Store(true)
		return nil
	}

	if err := p.Speak("Some text.", speech.SpeakOptions{}); err != nil {
		t.Fatalf("Expected Speak to dispatch despite the failing endpoint, got %v", err)
	}
	waitGTTSIdle(t, p)

	if played.Load() {
		t.Error("Expected no playback after synthesis failure")
	}
}

func TestGTTSSpeakDoesNotBlockOnSynthesis(t *testing.T) {
	p := testGTTS(t)
	if err := p.Probe(); err != nil {
		t.Fatalf("Expected probe to succeed, got %v", err)
	}

	fetchStarted := make(chan struct{})
	release := make(chan struct{})
	p.fetch = func(ctx context.Context, _, _, _ string, _ bool) ([]byte, error) {
		close(fetchStarted)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return []byte("mp3"), nil
	}
	p.play = func(string, string) error { return nil }

	start := time.Now()
	if err := p.Speak("Slow network.", speech.SpeakOptions{}); err != nil {
		t.Fatalf("Expected Speak to succeed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Expected Speak to return before synthesis, took %v", elapsed)
	}

	select {
	case <-fetchStarted:
	case <-time.After(time.Second):
		t.Fatal("Expected synthesis to start in the background")
	}
	if !p.Speaking() {
		t.Error("Expected provider busy while synthesis is in flight")
	}

	close(release)
	waitGTTSIdle(t, p)
}

func TestGTTSStopDoesNotKillPlayback(t *testing.T) {
	p := testGTTS(t)
	if err := p.Probe(); err != nil {
		t.Fatalf("Expected probe to succeed, got %v", err)
	}

	p.fetch = func(context.Context, string, string, string, bool) ([]byte, error) {
		return []byte("mp3"), nil
	}

	playStarted := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	p.play = func(string, string) error {
		close(playStarted)
		<-release
		close(finished)
		return nil
	}

	if err := p.Speak("Long clip.", speech.SpeakOptions{}); err != nil {
		t.Fatalf("Expected Speak to succeed, got %v", err)
	}
	select {
	case <-playStarted:
	case <-time.After(time.Second):
		t.Fatal("Expected playback to start")
	}

	start := time.Now()
	p.Stop()
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected Stop to return promptly, took %v", elapsed)
	}

	select {
	case <-finished:
		t.Fatal("Expected player to still be running after Stop")
	default:
	}
	if p.Speaking() {
		t.Error("Expected provider to report idle after Stop")
	}

	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Error("Expected player to finish after release")
	}
}

func TestGTTSStopBeforePlaybackSkipsClip(t *testing.T) {
	p := testGTTS(t)
	if err := p.Probe(); err != nil {
		t.Fatalf("Expected probe to succeed, got %v", err)
	}

	// Stop fires while synthesis is still in flight; the clip must never
	// reach the player.
	p.fetch = func(ctx context.Context, _, _, _ string, _ bool) ([]byte, error) {
		go p.Stop()
		<-ctx.Done()
		return []byte("mp3"), nil
	}
	var played atomic.Bool
	p.play = func(string, string) error {
		played.Store(true)
		return nil
	}

	if err := p.Speak("Never heard.", speech.SpeakOptions{}); err != nil {
		t.Fatalf("Expected Speak to succeed, got %v", err)
	}
	waitGTTSIdle(t, p)

	if played.Load() {
		t.Error("Expected playback to be skipped after Stop")
	}
}

func TestGTTSStopIsIdempotent(t *testing.T) {
	p := testGTTS(t)
	p.Stop()
	p.Stop()
}

func TestChunkText(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		got := chunkText("Hello there.", 100)
		if len(got) != 1 || got[0] != "Hello there." {
			t.Errorf("Expected single chunk, got %q", got)
		}
	})

	t.Run("long sentence wraps on word boundaries", func(t *testing.T) {
		long := strings.Repeat("seventeen letters ", 20)
		got := chunkText(long, 100)
		if len(got) < 2 {
			t.Fatalf("Expected multiple chunks, got %d", len(got))
		}
		for i, c := range got {
			if len(c) > 100 {
				t.Errorf("Expected chunk %d within 100 bytes, got %d", i, len(c))
			}
		}
		if strings.Join(got, " ") != strings.TrimSpace(long) {
			t.Error("Expected chunks to rejoin into the original text")
		}
	})
}
