package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/interviewbotpro/speech/internal/segment"
	"github.com/interviewbotpro/speech/pkg/speech"
)

const (
	// gttsMaxChunk is the longest text the translate endpoint accepts per
	// request; longer utterances are fetched in pieces.
	gttsMaxChunk = 100

	// gttsRequestTimeout bounds each synthesis request.
	gttsRequestTimeout = 30 * time.Second

	// gttsJoinTimeout bounds Stop's wait for the playback worker. The
	// external player is never killed, so an in-flight clip may outlive
	// this wait.
	gttsJoinTimeout = 500 * time.Millisecond
)

// externalPlayers are the audio players tried in order. The first one on
// PATH wins.
var externalPlayers = []struct {
	name string
	args func(path string) []string
}{
	{"mpv", func(p string) []string { return []string{"--really-quiet", p} }},
	{"ffplay", func(p string) []string { return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", p} }},
	{"afplay", func(p string) []string { return []string{p} }},
	{"mpg123", func(p string) []string { return []string{"-q", p} }},
}

// fetchFunc retrieves synthesized MP3 audio for text. Swappable for tests.
type fetchFunc func(ctx context.Context, text, lang, tld string, slow bool) ([]byte, error)

// playFunc plays an audio file to completion. Swappable for tests.
type playFunc func(player, path string) error

// GTTS is the batch provider: it synthesizes the whole utterance through
// the Google Translate TTS endpoint into a temporary MP3 and hands it to an
// external player. Free, no credentials, but playback starts only after the
// full synthesis finishes.
type GTTS struct {
	deps    speech.Dependencies
	cfg     speech.GTTSConfig
	logger  *log.Logger
	limiter *rate.Limiter

	fetch    fetchFunc
	play     playFunc
	lookPath func(file string) (string, error)

	mu          sync.Mutex
	initialized bool
	playerPath  string
	playerName  string
	signal      *speech.Signal
	done        chan struct{}
}

var _ speech.Provider = (*GTTS)(nil)

// NewGTTS constructs the batch provider.
func NewGTTS(deps speech.Dependencies) speech.Provider {
	cfg := deps.Config.Providers.GTTS
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 50
	}
	return &GTTS{
		deps:     deps,
		cfg:      cfg,
		logger:   deps.Log.With("provider", ProviderGTTS),
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		fetch:    fetchTranslateTTS,
		play:     playFile,
		lookPath: exec.LookPath,
	}
}

func (p *GTTS) Name() string { return ProviderGTTS }

// Probe checks that an external audio player exists on PATH. Without one
// the provider cannot play what it synthesizes.
func (p *GTTS) Probe() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pl := range externalPlayers {
		if path, err := p.lookPath(pl.name); err == nil {
			p.playerPath = path
			p.playerName = pl.name
			return nil
		}
	}
	return speech.NewError(speech.CategoryCapability, "gtts.probe",
		"no external audio player on PATH (need mpv, ffplay, afplay, or mpg123)", nil)
}

// RuntimeAvailable reports whether the provider can speak. No credentials
// are involved, so a successful probe is sufficient.
func (p *GTTS) RuntimeAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playerPath != ""
}

// Initialize prepares the temp directory. Idempotent.
func (p *GTTS) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	if p.cfg.TempDir != "" {
		if err := os.MkdirAll(p.cfg.TempDir, 0o755); err != nil {
			return fmt.Errorf("creating temp directory: %w", err)
		}
	}
	p.initialized = true
	return nil
}

// Initialized reports whether Initialize has run.
func (p *GTTS) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Speak hands text to a background worker and returns immediately; the
// worker synthesizes the whole utterance and plays the clip. Synthesis
// failures are logged there, never surfaced to the caller.
func (p *GTTS) Speak(text string, opts speech.SpeakOptions) error {
	p.Stop()

	if err := p.Initialize(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lang := p.cfg.Language
	if opts.Language != "" {
		lang = opts.Language
	}

	sig := speech.NewSignal()
	done := make(chan struct{})

	p.mu.Lock()
	playerPath := p.playerPath
	playerName := p.playerName
	p.signal = sig
	p.done = done
	p.mu.Unlock()

	go p.run(sig, done, playerPath, playerName, text, lang)
	return nil
}

// run synthesizes the utterance and plays the resulting clip. The stop
// signal cancels an in-flight network request and skips a clip that has
// not started; a clip already handed to the player finishes.
func (p *GTTS) run(sig *speech.Signal, done chan struct{}, playerPath, playerName, text, lang string) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sig.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	m := p.deps.Metrics.StartSynthesis(ProviderGTTS, 0, len(text))
	payload, err := p.fetch(ctx, text, lang, p.cfg.TLD, p.cfg.Slow)
	p.deps.Metrics.Done(m, len(payload), err)
	if err != nil {
		if !sig.IsSet() {
			p.logger.Warn("translate endpoint request failed", "error", err)
		}
		return
	}

	path, err := p.writeTemp(payload)
	if err != nil {
		p.logger.Warn("saving synthesized audio failed", "error", err)
		return
	}
	defer os.Remove(path)

	if sig.IsSet() {
		return
	}
	p.logger.Debug("playing", "player", playerName, "file", path)
	if err := p.play(playerPath, path); err != nil {
		p.logger.Warn("external player failed", "player", playerName, "error", err)
	}
}

// Speaking reports whether the playback worker is still running.
func (p *GTTS) Speaking() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Stop cancels a pending playback and waits briefly for the worker. A clip
// the external player has already started is allowed to finish; the player
// process is never killed.
func (p *GTTS) Stop() {
	p.mu.Lock()
	sig := p.signal
	done := p.done
	p.signal = nil
	p.done = nil
	p.mu.Unlock()
	if sig == nil {
		return
	}
	sig.Set()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(gttsJoinTimeout):
		p.logger.Debug("playback still running after stop, letting it finish")
	}
}

// writeTemp saves the MP3 payload next to the configured temp directory.
func (p *GTTS) writeTemp(payload []byte) (string, error) {
	dir := p.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "speech-*.mp3")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return f.Name(), nil
}

// fetchTranslateTTS retrieves MP3 audio from the Google Translate TTS
// endpoint, splitting long text into request-sized pieces. The resulting
// MP3 streams concatenate cleanly.
func fetchTranslateTTS(ctx context.Context, text, lang, tld string, slow bool) ([]byte, error) {
	if lang == "" {
		lang = "en"
	}
	if tld == "" {
		tld = "com"
	}
	chunks := chunkText(text, gttsMaxChunk)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("nothing to synthesize")
	}

	client := &http.Client{Timeout: gttsRequestTimeout}
	speed := "1"
	if slow {
		speed = "0.3"
	}

	var out []byte
	for i, chunk := range chunks {
		q := url.Values{}
		q.Set("ie", "UTF-8")
		q.Set("client", "tw-ob")
		q.Set("tl", lang)
		q.Set("ttsspeed", speed)
		q.Set("total", fmt.Sprint(len(chunks)))
		q.Set("idx", fmt.Sprint(i))
		q.Set("textlen", fmt.Sprint(len(chunk)))
		q.Set("q", chunk)

		endpoint := fmt.Sprintf("https://translate.google.%s/translate_tts?%s", tld, q.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		res, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("translate endpoint returned %s", res.Status)
		}
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, body...)
	}
	return out, nil
}

// chunkText splits text into pieces of at most max bytes, preferring
// sentence boundaries and falling back to word boundaries.
func chunkText(text string, max int) []string {
	var chunks []string
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			chunks = append(chunks, s)
		}
	}

	for _, sentence := range segment.Split(text) {
		if len(sentence) <= max {
			emit(sentence)
			continue
		}
		var b strings.Builder
		for _, word := range strings.Fields(sentence) {
			if b.Len() > 0 && b.Len()+1+len(word) > max {
				emit(b.String())
				b.Reset()
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(word)
		}
		emit(b.String())
	}
	if len(chunks) == 0 {
		emit(text)
	}
	return chunks
}

// playFile runs the external player to completion. Deliberately not a
// CommandContext so a stop request never kills audio mid-clip.
func playFile(player, path string) error {
	var args []string
	for _, pl := range externalPlayers {
		if strings.HasSuffix(player, pl.name) {
			args = pl.args(path)
			break
		}
	}
	if args == nil {
		args = []string{path}
	}
	return exec.Command(player, args...).Run()
}
