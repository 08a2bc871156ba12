package speech

// Provider is the capability interface every synthesis backend satisfies.
// Providers are resolved from a static registration table at Service
// construction; there is no dynamic loading.
type Provider interface {
	// Name returns the provider's registry name.
	Name() string

	// Probe checks static dependencies. Called once per process; a failure
	// excludes the provider from the candidate list permanently.
	Probe() error

	// RuntimeAvailable re-checks dynamic prerequisites (credentials, live
	// client). May attempt lazy initialization.
	RuntimeAvailable() bool

	// Initialize constructs the provider's client or session. Idempotent.
	Initialize() error

	// Initialized reports whether a client/session has been constructed.
	Initialized() bool

	// Speak starts speaking text in the background and returns once the
	// pipeline is running. Any previous utterance must already be stopped
	// by the caller. A non-nil error means nothing is playing and the
	// facade should fall back.
	Speak(text string, opts SpeakOptions) error

	// Speaking reports whether an utterance is currently in flight.
	Speaking() bool

	// Stop cancels the in-flight utterance, joins its workers within a
	// bounded time, and discards queued audio. Idempotent; a no-op when
	// nothing is playing.
	Stop()
}

// Constructor builds a provider from its injected dependencies.
type Constructor func(deps Dependencies) Provider

// Registration pairs a provider name with its constructor. Registration
// order is the deterministic fallback order.
type Registration struct {
	Name string
	New  Constructor
}
