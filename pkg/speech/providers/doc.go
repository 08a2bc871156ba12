// Package providers holds the concrete speech synthesis backends. Each
// provider satisfies speech.Provider and is wired into the facade through
// a Registration; registration order is the fallback order.
package providers

import "github.com/interviewbotpro/speech/pkg/speech"

// Registry names.
const (
	ProviderGTTS   = "gtts"
	ProviderOpenAI = "openai"
)

// Default returns the standard provider registrations in fallback order.
func Default() []speech.Registration {
	return []speech.Registration{
		{Name: ProviderGTTS, New: NewGTTS},
		{Name: ProviderOpenAI, New: NewOpenAI},
	}
}
