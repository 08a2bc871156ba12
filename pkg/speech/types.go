// Package speech converts text into audible speech over interchangeable
// synthesis providers. The Service facade selects a usable provider at
// runtime, falls back deterministically, and guarantees at most one
// utterance is ever in flight.
package speech

import (
	"strings"

	"github.com/google/uuid"
)

// SpeakOptions carries per-utterance voice parameters. Zero values mean
// provider defaults.
type SpeakOptions struct {
	Voice    string
	Model    string
	Language string
}

// Utterance is one complete request to speak a given text. Immutable;
// at most one is active system-wide.
type Utterance struct {
	ID      string
	Text    string
	Options SpeakOptions
}

// NewUtterance creates an utterance with a fresh ID. Returns nil for
// empty or whitespace-only text.
func NewUtterance(text string, opts SpeakOptions) *Utterance {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &Utterance{ID: uuid.NewString(), Text: text, Options: opts}
}

// ProviderDescriptor reports a provider's availability lifecycle.
// DependenciesSatisfied is computed once at probe time; RuntimeAvailable is
// re-evaluated on demand; Initialized latches after a client is constructed.
type ProviderDescriptor struct {
	Name                  string
	DependenciesSatisfied bool
	RuntimeAvailable      bool
	Initialized           bool
}
