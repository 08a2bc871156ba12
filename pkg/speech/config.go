package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the speech engine configuration.
type Config struct {
	// DefaultProvider is tried first by the fallback chain.
	DefaultProvider string `yaml:"default_provider" mapstructure:"default_provider" env:"SPEECH_DEFAULT_PROVIDER"`

	// Providers holds per-provider settings.
	Providers ProviderConfigs `yaml:"providers" mapstructure:"providers"`

	// Streaming holds the sentence-batched pipeline tuning knobs.
	Streaming StreamingConfig `yaml:"streaming" mapstructure:"streaming"`

	// Debug enables debug logging and the debug log file.
	Debug bool `yaml:"debug" mapstructure:"debug" env:"SPEECH_DEBUG"`
}

// ProviderConfigs holds configuration for each provider.
type ProviderConfigs struct {
	OpenAI OpenAIConfig `yaml:"openai" mapstructure:"openai"`
	GTTS   GTTSConfig   `yaml:"gtts" mapstructure:"gtts"`
}

// OpenAIConfig holds settings for the streaming provider.
type OpenAIConfig struct {
	// Model is the synthesis model (default "tts-1").
	Model string `yaml:"model" mapstructure:"model" env:"SPEECH_OPENAI_MODEL"`

	// Voice is the synthesis voice (default "alloy").
	Voice string `yaml:"voice" mapstructure:"voice" env:"SPEECH_OPENAI_VOICE"`

	// ResponseFormat is "mp3" or "pcm". PCM arrives already in contract
	// and skips decoding.
	ResponseFormat string `yaml:"response_format" mapstructure:"response_format"`

	// KeyringService and KeyringUser locate the API key in the
	// credential store.
	KeyringService string `yaml:"keyring_service" mapstructure:"keyring_service"`
	KeyringUser    string `yaml:"keyring_user" mapstructure:"keyring_user"`
}

// GTTSConfig holds settings for the batch provider.
type GTTSConfig struct {
	// Language code (e.g., "en", "es", "fr").
	Language string `yaml:"language" mapstructure:"language" env:"SPEECH_GTTS_LANGUAGE"`

	// TLD for regional accents (e.g., "com", "co.uk").
	TLD string `yaml:"tld" mapstructure:"tld"`

	// Slow enables slow speech.
	Slow bool `yaml:"slow" mapstructure:"slow"`

	// RequestsPerMinute rate-limits synthesis calls to avoid being blocked.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`

	// TempDir for intermediate audio files; system temp when empty.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// StreamingConfig holds pipeline tuning. These were fixed constants in the
// first implementation, tuned empirically; the defaults preserve them.
type StreamingConfig struct {
	// MinBatchChars is the minimum characters per synthesis batch.
	MinBatchChars int `yaml:"min_batch_chars" mapstructure:"min_batch_chars"`

	// QueueCapacity bounds the playback queue.
	QueueCapacity int `yaml:"queue_capacity" mapstructure:"queue_capacity"`

	// StallCeiling aborts the producer when the queue stays full this long.
	StallCeiling time.Duration `yaml:"stall_ceiling" mapstructure:"stall_ceiling"`

	// PopTimeout is the consumer's cancellation checkpoint interval.
	PopTimeout time.Duration `yaml:"pop_timeout" mapstructure:"pop_timeout"`

	// PutStep is the producer's bounded enqueue step.
	PutStep time.Duration `yaml:"put_step" mapstructure:"put_step"`

	// JoinTimeout bounds Stop's wait for each worker.
	JoinTimeout time.Duration `yaml:"join_timeout" mapstructure:"join_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultProvider: "gtts",
		Providers: ProviderConfigs{
			OpenAI: OpenAIConfig{
				Model:          "tts-1",
				Voice:          "alloy",
				ResponseFormat: "mp3",
				KeyringService: "InterviewBotPro_OpenAI",
				KeyringUser:    "openai_api_key",
			},
			GTTS: GTTSConfig{
				Language:          "en",
				TLD:               "com",
				Slow:              false,
				RequestsPerMinute: 50,
			},
		},
		Streaming: StreamingConfig{
			MinBatchChars: 60,
			QueueCapacity: 50,
			StallCeiling:  5 * time.Second,
			PopTimeout:    100 * time.Millisecond,
			PutStep:       200 * time.Millisecond,
			JoinTimeout:   time.Second,
		},
		Debug: false,
	}
}

// configPaths returns the paths checked for a config file, most specific
// first.
func configPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".speech", "speech.yml"))
	}
	scope := gap.NewScope(gap.User, "speech")
	if dirs, err := scope.ConfigDirs(); err == nil {
		for _, d := range dirs {
			paths = append(paths, filepath.Join(d, "speech.yml"))
		}
	}
	if home, err := homedir.Dir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "speech", "speech.yml"))
	}
	return paths
}

// LoadConfig loads configuration from the first config file found, falling
// back to defaults. A broken config file is logged and skipped rather than
// failing startup.
func LoadConfig() *Config {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.Warn("failed to read speech config", "path", path, "error", err)
			continue
		}
		if err := v.Unmarshal(config); err != nil {
			log.Warn("failed to parse speech config", "path", path, "error", err)
			continue
		}
		log.Debug("loaded speech configuration", "path", path)
		break
	}

	config.Providers.GTTS.TempDir = expandPath(config.Providers.GTTS.TempDir)
	return config
}

// SaveConfig writes the configuration as YAML.
func SaveConfig(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// GenerateExampleConfig renders a commented example configuration file.
func GenerateExampleConfig() string {
	config := DefaultConfig()
	data, _ := yaml.Marshal(config)

	header := `# Speech engine configuration.
#
# Place this file at:
#   - ./.speech/speech.yml (project-specific)
#   - ~/.config/speech/speech.yml (user-wide)
#
# The project-specific config takes precedence.

`
	return header + string(data)
}

// expandPath resolves a leading ~ in path.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
