package speech

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
)

// sysVoiceTimeout bounds the OS speech command.
const sysVoiceTimeout = 30 * time.Second

// SystemVoice is the last-resort fallback: an OS-level "speak this string"
// command, used only when no provider is usable. Its failure is logged,
// never surfaced.
type SystemVoice struct {
	logger *log.Logger

	// lookPath is swappable for tests.
	lookPath func(file string) (string, error)

	// run executes the chosen command; swappable for tests.
	run func(ctx context.Context, name string, args ...string) error
}

// NewSystemVoice creates the system-voice fallback.
func NewSystemVoice(logger *log.Logger) *SystemVoice {
	if logger == nil {
		logger = log.Default()
	}
	return &SystemVoice{
		logger:   logger,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Say speaks text through the OS voice, blocking until done or timed out.
func (sv *SystemVoice) Say(text, reason string) {
	sv.logger.Warn("falling back to system voice", "reason", reason)

	name, args := sv.command(text)
	if name == "" {
		sv.logger.Warn("no system voice command found", "os", runtime.GOOS)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sysVoiceTimeout)
	defer cancel()

	if err := sv.run(ctx, name, args...); err != nil {
		sv.logger.Warn("system voice command failed", "command", name, "error", err)
		return
	}
	sv.logger.Debug("system voice command executed", "command", name)
}

// command picks the platform's speech command: say on macOS, spd-say or
// espeak on Linux. Windows has no direct equivalent.
func (sv *SystemVoice) command(text string) (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		if _, err := sv.lookPath("say"); err == nil {
			return "say", []string{text}
		}
	case "linux":
		if _, err := sv.lookPath("spd-say"); err == nil {
			return "spd-say", []string{"--wait", text}
		}
		if _, err := sv.lookPath("espeak"); err == nil {
			return "espeak", []string{text}
		}
	}
	return "", nil
}
