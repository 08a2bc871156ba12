package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/interviewbotpro/speech/internal/audio"
	"github.com/interviewbotpro/speech/internal/credentials"
	"github.com/interviewbotpro/speech/internal/queue"
	"github.com/interviewbotpro/speech/internal/segment"
	"github.com/interviewbotpro/speech/pkg/speech"
)

// spawnCheck is how long Speak waits before verifying both pipeline
// workers survived startup.
const spawnCheck = 50 * time.Millisecond

// synthClient is the synthesis call behind the streaming pipeline,
// narrowed to one method so tests can substitute a fake.
type synthClient interface {
	Synthesize(ctx context.Context, text, model, voice, format string) ([]byte, error)
}

// openAIClient wraps the OpenAI speech endpoint.
type openAIClient struct {
	api *openai.Client
}

var _ synthClient = (*openAIClient)(nil)

func (c *openAIClient) Synthesize(ctx context.Context, text, model, voice, format string) ([]byte, error) {
	res, err := c.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(format),
	})
	if err != nil {
		return nil, speech.NewError(categorizeAPIError(err), "openai.synthesize",
			"speech API request failed", err)
	}
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

// categorizeAPIError maps an API error onto a pipeline reaction.
// Credential rejections and rate limits end the utterance; anything else
// costs only the current batch.
func categorizeAPIError(err error) speech.Category {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return speech.CategoryAuth
		case http.StatusTooManyRequests:
			return speech.CategoryRateLimit
		}
	}
	return speech.CategoryTransient
}

// utterance is the mutable state of one in-flight streaming utterance.
// A fresh one is created per Speak; Stop tears it down.
type utterance struct {
	signal *speech.Signal
	q      *queue.Queue

	// consumerReady closes once the consumer has an open device stream.
	consumerReady chan struct{}
	producerDone  chan struct{}
	consumerDone  chan struct{}
	started       time.Time
}

// OpenAI is the streaming provider. It synthesizes sentence batches over
// the OpenAI speech API on a producer goroutine while a consumer goroutine
// plays queued chunks, so playback starts after the first batch instead of
// after the whole text.
type OpenAI struct {
	deps   speech.Dependencies
	cfg    speech.OpenAIConfig
	tuning speech.StreamingConfig
	logger *log.Logger

	mu      sync.Mutex
	client  synthClient
	current *utterance
}

var _ speech.Provider = (*OpenAI)(nil)

// NewOpenAI constructs the streaming provider. The API client is built
// lazily on first use so that a missing credential costs nothing until
// the provider is actually asked to speak.
func NewOpenAI(deps speech.Dependencies) speech.Provider {
	return &OpenAI{
		deps:   deps,
		cfg:    deps.Config.Providers.OpenAI,
		tuning: deps.Config.Streaming,
		logger: deps.Log.With("provider", ProviderOpenAI),
	}
}

func (p *OpenAI) Name() string { return ProviderOpenAI }

// Probe checks static dependencies. The client library and decoder are
// compiled in, so the streaming provider's static dependencies always hold.
func (p *OpenAI) Probe() error { return nil }

// RuntimeAvailable reports whether the provider can speak right now,
// attempting lazy initialization when no client exists yet.
func (p *OpenAI) RuntimeAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return true
	}
	return p.initializeLocked() == nil
}

// Initialize resolves the API key and constructs the client. Idempotent.
func (p *OpenAI) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initializeLocked()
}

func (p *OpenAI) initializeLocked() error {
	if p.client != nil {
		return nil
	}
	key, err := p.deps.Credentials.GetSecret(p.cfg.KeyringService, p.cfg.KeyringUser)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return speech.NewError(speech.CategoryCredential, "openai.init",
				"no API key in credential store", err)
		}
		return speech.NewError(speech.CategoryCredential, "openai.init",
			"credential store lookup failed", err)
	}
	api := openai.NewClient(option.WithAPIKey(key))
	p.client = &openAIClient{api: &api}
	p.logger.Debug("client initialized")
	return nil
}

// Initialized reports whether a client has been constructed.
func (p *OpenAI) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil
}

// Speak starts the sentence-batched pipeline for text and returns once both
// workers are confirmed running. A non-nil error means nothing is playing.
func (p *OpenAI) Speak(text string, opts speech.SpeakOptions) error {
	p.Stop()

	p.mu.Lock()
	if err := p.initializeLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	client := p.client
	p.mu.Unlock()

	batches := segment.BatchText(text, p.tuning.MinBatchChars)
	if len(batches) == 0 {
		return nil
	}

	u := &utterance{
		signal:        speech.NewSignal(),
		q:             queue.New(p.tuning.QueueCapacity),
		consumerReady: make(chan struct{}),
		producerDone:  make(chan struct{}),
		consumerDone:  make(chan struct{}),
		started:       time.Now(),
	}

	model := p.cfg.Model
	if opts.Model != "" {
		model = opts.Model
	}
	voice := p.cfg.Voice
	if opts.Voice != "" {
		voice = opts.Voice
	}

	// The utterance is registered before the workers spawn so a Stop
	// arriving in the liveness window can always reach it.
	p.mu.Lock()
	p.current = u
	p.mu.Unlock()

	go p.consume(u)
	go p.produce(u, client, batches, model, voice)

	// Both workers must survive startup: the consumer must open its device
	// stream, and a producer that dies immediately sets the signal before
	// enqueueing anything. Anything else is a failed spawn; roll back.
	time.Sleep(spawnCheck)
	if !p.spawned(u) {
		p.mu.Lock()
		if p.current == u {
			p.current = nil
		}
		p.mu.Unlock()
		u.signal.Set()
		u.q.PutSentinel()
		p.join(u)
		return speech.ErrSpawnFailed
	}

	p.logger.Debug("pipeline started", "batches", len(batches), "chars", len(text))
	return nil
}

// spawned reports whether both workers came up: the consumer has an open
// stream and the producer did not cancel before queueing any audio.
func (p *OpenAI) spawned(u *utterance) bool {
	select {
	case <-u.consumerReady:
	default:
		return false
	}
	return !(u.signal.IsSet() && u.q.Enqueued() == 0 && u.q.Dequeued() == 0)
}

// Speaking reports whether the pipeline still has a live worker.
func (p *OpenAI) Speaking() bool {
	p.mu.Lock()
	u := p.current
	p.mu.Unlock()
	if u == nil {
		return false
	}
	select {
	case <-u.consumerDone:
	default:
		return true
	}
	select {
	case <-u.producerDone:
		return false
	default:
		return true
	}
}

// Stop cancels the in-flight utterance, wakes both workers, joins them
// within the configured timeout, and discards queued audio. Idempotent.
func (p *OpenAI) Stop() {
	p.mu.Lock()
	u := p.current
	p.current = nil
	p.mu.Unlock()
	if u == nil {
		return
	}
	u.signal.Set()
	u.q.PutSentinel()
	p.join(u)
	if dropped := u.q.Drain(); dropped > 0 {
		p.logger.Debug("discarded queued audio", "chunks", dropped)
	}
}

// join waits for both workers, bounded per worker so a wedged backend can
// never hang the caller.
func (p *OpenAI) join(u *utterance) {
	for _, done := range []chan struct{}{u.producerDone, u.consumerDone} {
		select {
		case <-done:
		case <-time.After(p.tuning.JoinTimeout):
			p.logger.Warn("pipeline worker did not stop in time")
		}
	}
}

// produce synthesizes batches in order and enqueues the resulting chunks.
// It checks the stop signal before each batch, converts API failures into
// skip-or-cancel per their category, and always terminates the queue with
// the sentinel.
func (p *OpenAI) produce(u *utterance, client synthClient, batches []string, model, voice string) {
	defer close(u.producerDone)
	defer func() {
		// A sentinel that finds the queue full is dropped for good; the
		// consumer then has no end marker and must stop via the signal.
		if !u.q.PutSentinel() {
			u.signal.Set()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-u.signal.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	first := true
	for i, batch := range batches {
		if u.signal.IsSet() {
			return
		}

		m := p.deps.Metrics.StartSynthesis(ProviderOpenAI, i, len(batch))
		payload, err := client.Synthesize(ctx, batch, model, voice, p.cfg.ResponseFormat)
		p.deps.Metrics.Done(m, len(payload), err)
		if err != nil {
			if u.signal.IsSet() {
				return
			}
			cat := speech.CategoryOf(err)
			p.logger.Warn("synthesis failed", "batch", i, "category", cat, "error", err)
			if cat.CancelsUtterance() {
				if cat == speech.CategoryAuth {
					p.invalidateClient()
				}
				u.signal.Set()
				return
			}
			continue
		}

		chunk, err := p.decode(payload)
		if err != nil {
			p.logger.Warn("decode failed", "batch", i, "error", err)
			continue
		}

		if !p.enqueue(u, chunk) {
			return
		}
		if first {
			first = false
			p.deps.Metrics.FirstAudio(ProviderOpenAI, time.Since(u.started))
		}
	}
}

// enqueue puts chunk on the queue in bounded steps, re-checking the stop
// signal between steps. A queue that stays full past the stall ceiling
// means the consumer is gone or wedged; the producer then cancels the
// utterance itself rather than block forever.
func (p *OpenAI) enqueue(u *utterance, chunk *audio.Chunk) bool {
	deadline := time.Now().Add(p.tuning.StallCeiling)
	for {
		err := u.q.Put(chunk, p.tuning.PutStep, u.signal.Done())
		if err == nil {
			return true
		}
		if errors.Is(err, queue.ErrCanceled) || u.signal.IsSet() {
			return false
		}
		if time.Now().After(deadline) {
			p.logger.Error("pipeline stalled, cancelling utterance",
				"error", speech.ErrPipelineStall, "ceiling", p.tuning.StallCeiling)
			u.signal.Set()
			return false
		}
	}
}

// decode converts an API payload into a contract-format chunk.
func (p *OpenAI) decode(payload []byte) (*audio.Chunk, error) {
	var (
		chunk *audio.Chunk
		err   error
	)
	switch p.cfg.ResponseFormat {
	case "pcm":
		// PCM responses arrive already in contract format.
		chunk, err = audio.DecodePCM(payload, audio.ContractFormat())
	default:
		chunk, err = audio.DecodeMP3(payload)
	}
	if err != nil {
		return nil, err
	}
	return audio.Coerce(chunk)
}

// consume opens the output stream, then plays chunks strictly in queue
// order until the sentinel arrives or the stop signal fires. The stream is
// released on every exit path; Abort on cancellation so buffered audio is
// dropped rather than drained.
func (p *OpenAI) consume(u *utterance) {
	defer close(u.consumerDone)

	dev, err := p.deps.Device()
	if err != nil {
		p.logger.Error("audio device unavailable", "error", err)
		u.signal.Set()
		return
	}
	stream, err := dev.Open(audio.ContractFormat())
	if err != nil {
		p.logger.Error("opening audio stream failed", "error", err)
		u.signal.Set()
		return
	}
	close(u.consumerReady)

	clean := false
	defer func() {
		if clean {
			if err := stream.Close(); err != nil {
				p.logger.Warn("closing audio stream failed", "error", err)
			}
			return
		}
		stream.Abort()
	}()
	defer func() {
		p.deps.Metrics.UtteranceDone(ProviderOpenAI,
			u.q.Enqueued(), u.q.Dequeued(), u.q.Dropped(), u.signal.IsSet())
	}()

	for {
		if u.signal.IsSet() {
			return
		}
		chunk, err := u.q.Pop(p.tuning.PopTimeout)
		if errors.Is(err, queue.ErrTimeout) {
			continue
		}
		if chunk == nil {
			clean = true
			return
		}
		if err := stream.Write(chunk.Data); err != nil {
			if fatalWriteError(err) {
				p.logger.Error("playback write failed", "error", err)
				u.signal.Set()
				return
			}
			p.logger.Warn("playback write failed, dropping chunk", "error", err)
		}
	}
}

// fatalWriteError reports whether a stream write error means the device is
// gone. Anything else costs only the chunk being written.
func fatalWriteError(err error) bool {
	return errors.Is(err, audio.ErrDeviceClosed) ||
		speech.CategoryOf(err) == speech.CategoryDevice
}

// invalidateClient drops the client after an auth rejection so the next
// availability check re-resolves the credential.
func (p *OpenAI) invalidateClient() {
	p.mu.Lock()
	p.client = nil
	p.mu.Unlock()
}
