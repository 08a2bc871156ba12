package speech

import (
	"github.com/charmbracelet/log"

	"github.com/interviewbotpro/speech/internal/audio"
	"github.com/interviewbotpro/speech/internal/credentials"
)

// Dependencies carries everything a provider needs, injected at Service
// construction instead of reached for as ambient globals.
type Dependencies struct {
	// Credentials resolves provider secrets.
	Credentials credentials.Store

	// Device constructs the audio output device, lazily.
	Device audio.DeviceFactory

	// Config is the loaded engine configuration.
	Config *Config

	// Log is the logger providers should use.
	Log *log.Logger

	// Metrics records synthesis/playback timings.
	Metrics *MetricsLogger
}

// fill populates zero-valued fields with production defaults.
func (d *Dependencies) fill() {
	if d.Credentials == nil {
		d.Credentials = credentials.Default()
	}
	if d.Device == nil {
		if audio.DetectPlatform().Usable() {
			d.Device = audio.NewDevice
		} else {
			mock := &audio.MockDevice{}
			d.Device = func() (audio.Device, error) { return mock, nil }
		}
	}
	if d.Config == nil {
		d.Config = DefaultConfig()
	}
	if d.Log == nil {
		d.Log = log.Default()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetricsLogger(d.Log, d.Config.Debug)
	}
}
