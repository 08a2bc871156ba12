package speech

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// MetricsLogger records pipeline timings. Disabled it costs a nil-check;
// enabled it logs at debug level in the provider's key-value style.
type MetricsLogger struct {
	enabled bool
	logger  *log.Logger
}

// NewMetricsLogger creates a metrics logger.
func NewMetricsLogger(logger *log.Logger, enabled bool) *MetricsLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &MetricsLogger{enabled: enabled, logger: logger}
}

// SynthesisMetrics tracks one synthesis call.
type SynthesisMetrics struct {
	Provider   string
	Batch      int
	TextLength int
	Start      time.Time
}

// StartSynthesis begins tracking a synthesis call.
func (m *MetricsLogger) StartSynthesis(provider string, batch, textLength int) *SynthesisMetrics {
	return &SynthesisMetrics{
		Provider:   provider,
		Batch:      batch,
		TextLength: textLength,
		Start:      time.Now(),
	}
}

// Done logs the outcome of a synthesis call.
func (m *MetricsLogger) Done(s *SynthesisMetrics, audioBytes int, err error) {
	if m == nil || !m.enabled || s == nil {
		return
	}
	elapsed := time.Since(s.Start)
	if err != nil {
		m.logger.Debug("synthesis failed",
			"provider", s.Provider,
			"batch", s.Batch,
			"text_length", s.TextLength,
			"elapsed", elapsed,
			"error", err)
		return
	}
	m.logger.Debug("synthesis complete",
		"provider", s.Provider,
		"batch", s.Batch,
		"text_length", s.TextLength,
		"elapsed", elapsed,
		"audio", humanize.Bytes(uint64(audioBytes)))
}

// FirstAudio logs time-to-first-audio for an utterance, the latency the
// sentence batching exists to minimize.
func (m *MetricsLogger) FirstAudio(provider string, sinceSpeak time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.logger.Debug("first batch queued", "provider", provider, "latency", sinceSpeak)
}

// UtteranceDone logs queue traffic totals at the end of an utterance.
func (m *MetricsLogger) UtteranceDone(provider string, enqueued, dequeued, dropped int64, cancelled bool) {
	if m == nil || !m.enabled {
		return
	}
	m.logger.Debug("utterance finished",
		"provider", provider,
		"chunks_enqueued", enqueued,
		"chunks_played", dequeued,
		"chunks_dropped", dropped,
		"cancelled", cancelled)
}
