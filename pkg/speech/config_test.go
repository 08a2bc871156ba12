package speech

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DefaultProvider != "gtts" {
		t.Errorf("Expected default provider gtts, got %q", cfg.DefaultProvider)
	}
	if cfg.Providers.OpenAI.Model != "tts-1" {
		t.Errorf("Expected model tts-1, got %q", cfg.Providers.OpenAI.Model)
	}
	if cfg.Providers.OpenAI.Voice != "alloy" {
		t.Errorf("Expected voice alloy, got %q", cfg.Providers.OpenAI.Voice)
	}
	if cfg.Streaming.MinBatchChars != 60 {
		t.Errorf("Expected min batch 60, got %d", cfg.Streaming.MinBatchChars)
	}
	if cfg.Streaming.QueueCapacity != 50 {
		t.Errorf("Expected queue capacity 50, got %d", cfg.Streaming.QueueCapacity)
	}
	if cfg.Streaming.StallCeiling != 5*time.Second {
		t.Errorf("Expected stall ceiling 5s, got %v", cfg.Streaming.StallCeiling)
	}
	if cfg.Streaming.PopTimeout != 100*time.Millisecond {
		t.Errorf("Expected pop timeout 100ms, got %v", cfg.Streaming.PopTimeout)
	}
}

func TestGenerateExampleConfig(t *testing.T) {
	out := GenerateExampleConfig()

	for _, want := range []string{
		"default_provider",
		"openai",
		"gtts",
		"min_batch_chars",
		"speech.yml",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected example config to mention %q", want)
		}
	}
}

func TestNewUtterance(t *testing.T) {
	t.Run("whitespace-only text yields nil", func(t *testing.T) {
		if u := NewUtterance("  \n\t ", SpeakOptions{}); u != nil {
			t.Errorf("Expected nil utterance, got %v", u)
		}
	})

	t.Run("fresh IDs per utterance", func(t *testing.T) {
		a := NewUtterance("hello", SpeakOptions{})
		b := NewUtterance("hello", SpeakOptions{})
		if a == nil || b == nil {
			t.Fatal("Expected non-nil utterances")
		}
		if a.ID == b.ID {
			t.Errorf("Expected distinct IDs, both were %q", a.ID)
		}
	})
}
