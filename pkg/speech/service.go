package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
)

// Service is the single entry point for speech output. It owns provider
// selection, deterministic fallback, and the at-most-one-utterance
// guarantee. Speak never returns an error; every failure below this line
// degrades to the system voice or to silence.
type Service struct {
	mu sync.Mutex

	deps     Dependencies
	logger   *log.Logger
	sysVoice *SystemVoice

	// order is the registration order, the deterministic fallback order.
	order     []string
	providers map[string]Provider
	probed    map[string]bool

	// active is the explicitly selected or last successfully used provider.
	// Empty until a selection sticks.
	active string
}

// NewService constructs the facade, instantiates every registered provider,
// and probes their static dependencies once. Probe failures exclude a
// provider permanently but never fail construction.
func NewService(deps Dependencies, regs ...Registration) *Service {
	deps.fill()
	s := &Service{
		deps:      deps,
		logger:    deps.Log,
		sysVoice:  NewSystemVoice(deps.Log),
		providers: make(map[string]Provider, len(regs)),
		probed:    make(map[string]bool, len(regs)),
	}
	for _, reg := range regs {
		if _, dup := s.providers[reg.Name]; dup {
			s.logger.Warn("duplicate provider registration ignored", "provider", reg.Name)
			continue
		}
		p := reg.New(deps)
		s.order = append(s.order, reg.Name)
		s.providers[reg.Name] = p
		if err := p.Probe(); err != nil {
			s.logger.Warn("provider dependencies unsatisfied", "provider", reg.Name, "error", err)
			s.probed[reg.Name] = false
			continue
		}
		s.probed[reg.Name] = true
	}
	return s
}

// Providers returns the registered provider names in fallback order.
func (s *Service) Providers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// RuntimeAvailableProviders returns, in fallback order, the providers whose
// dependencies are satisfied and that are currently runtime-available.
// This re-checks dynamic prerequisites and may lazily initialize.
func (s *Service) RuntimeAvailableProviders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, name := range s.order {
		if s.probed[name] && s.providers[name].RuntimeAvailable() {
			out = append(out, name)
		}
	}
	return out
}

// Descriptors reports the availability lifecycle of every registered
// provider, in fallback order.
func (s *Service) Descriptors() []ProviderDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProviderDescriptor, 0, len(s.order))
	for _, name := range s.order {
		p := s.providers[name]
		d := ProviderDescriptor{
			Name:                  name,
			DependenciesSatisfied: s.probed[name],
			Initialized:           p.Initialized(),
		}
		if d.DependenciesSatisfied {
			d.RuntimeAvailable = p.RuntimeAvailable()
		}
		out = append(out, d)
	}
	return out
}

// SetProvider selects name as the active provider, initializing it eagerly.
// Selecting the already-active provider is a no-op. An initialization
// failure clears the selection; the next Speak resolves from the default.
func (s *Service) SetProvider(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.providers[name]
	if !ok {
		if suggestion := s.closestName(name); suggestion != "" {
			return fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownProvider, name, suggestion)
		}
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if !s.probed[name] {
		return fmt.Errorf("%w: %q", ErrProviderUnavailable, name)
	}
	if s.active == name && p.Initialized() {
		return nil
	}
	if err := p.Initialize(); err != nil {
		s.active = ""
		return fmt.Errorf("initialize %q: %w", name, err)
	}
	s.active = name
	s.logger.Debug("provider selected", "provider", name)
	return nil
}

// ActiveProvider returns the active provider name, or "" when none stuck.
func (s *Service) ActiveProvider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// NextProvider cycles the selection to the next runtime-available provider
// after the active one, wrapping around. Returns the new active name.
func (s *Service) NextProvider() (string, error) {
	avail := s.RuntimeAvailableProviders()
	if len(avail) == 0 {
		return "", ErrNoProvider
	}
	s.mu.Lock()
	current := s.active
	s.mu.Unlock()

	next := avail[0]
	for i, name := range avail {
		if name == current {
			next = avail[(i+1)%len(avail)]
			break
		}
	}
	if err := s.SetProvider(next); err != nil {
		return "", err
	}
	return next, nil
}

// Speak speaks text, never returning an error. Any in-flight utterance is
// stopped first, even when text is empty. Provider resolution order is the
// active selection, then the configured default, then registration order;
// when nothing works the system voice speaks the text as a last resort.
func (s *Service) Speak(text string, opts SpeakOptions) {
	s.Stop()

	utt := NewUtterance(text, opts)
	if utt == nil {
		return
	}

	for _, name := range s.candidates() {
		s.mu.Lock()
		p := s.providers[name]
		s.mu.Unlock()

		if !p.RuntimeAvailable() {
			s.logger.Debug("provider not runtime-available", "provider", name)
			continue
		}
		if err := p.Speak(utt.Text, utt.Options); err != nil {
			s.logger.Warn("provider failed to start speaking",
				"provider", name, "utterance", utt.ID, "error", err)
			continue
		}
		s.mu.Lock()
		s.active = name
		s.mu.Unlock()
		s.logger.Debug("speaking", "provider", name, "utterance", utt.ID, "chars", len(utt.Text))
		return
	}

	s.sysVoice.Say(utt.Text, "no speech provider available")
}

// Speaking reports whether any provider has an utterance in flight.
func (s *Service) Speaking() bool {
	s.mu.Lock()
	ps := make([]Provider, 0, len(s.order))
	for _, name := range s.order {
		ps = append(ps, s.providers[name])
	}
	s.mu.Unlock()
	for _, p := range ps {
		if p.Speaking() {
			return true
		}
	}
	return false
}

// Wait blocks until playback finishes or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		if !s.Speaking() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Stop cancels any in-flight utterance across all providers. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	ps := make([]Provider, 0, len(s.order))
	for _, name := range s.order {
		ps = append(ps, s.providers[name])
	}
	s.mu.Unlock()
	for _, p := range ps {
		p.Stop()
	}
}

// candidates returns the provider resolution order for one utterance:
// active selection first, then the configured default, then registration
// order, deduplicated, excluding probe-failed providers.
func (s *Service) candidates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.order))
	var out []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		if _, ok := s.providers[name]; !ok || !s.probed[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	add(s.active)
	add(s.deps.Config.DefaultProvider)
	for _, name := range s.order {
		add(name)
	}
	return out
}

// closestName fuzzy-matches an unknown name against the registry.
func (s *Service) closestName(name string) string {
	matches := fuzzy.Find(name, s.order)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
