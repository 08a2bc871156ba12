// Package main provides the entry point for the speech CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/interviewbotpro/speech/pkg/speech"
	"github.com/interviewbotpro/speech/pkg/speech/providers"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	providerName string
	voice        string
	model        string
	language     string
	watchFile    bool
	debug        bool

	rootCmd = &cobra.Command{
		Use:   "speech [TEXT|FILE]",
		Short: "Speak text aloud from the command line",
		Long: paragraph(
			fmt.Sprintf("\nSpeak text aloud from the command line, %s.", keyword("with interchangeable voices")),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// loadConfig builds the effective configuration: file values, then
// environment overrides, then command line flags.
func loadConfig() (*speech.Config, error) {
	cfg := speech.LoadConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	if providerName != "" {
		cfg.DefaultProvider = providerName
	}
	return cfg, nil
}

// newService constructs the speech facade with the standard providers.
func newService(cfg *speech.Config) *speech.Service {
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return speech.NewService(speech.Dependencies{
		Config: cfg,
		Log:    log.Default(),
	}, providers.Default()...)
}

func validateOptions(cmd *cobra.Command) error {
	if !cmd.Flags().Changed("debug") {
		debug = viper.GetBool("debug")
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// gatherText resolves the utterance text from args, a file path, or stdin.
// The second return value is the file path when the text came from a file.
func gatherText(args []string) (string, string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("unable to read stdin: %w", err)
		}
		return string(b), "", nil
	}

	if yes, err := stdinIsPipe(); err != nil {
		return "", "", err
	} else if yes && len(args) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("unable to read stdin: %w", err)
		}
		return string(b), "", nil
	}

	if len(args) == 1 {
		if st, err := os.Stat(args[0]); err == nil && !st.IsDir() {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return "", "", fmt.Errorf("unable to read file: %w", err)
			}
			p, _ := filepath.Abs(args[0])
			return string(b), p, nil
		}
	}

	return strings.Join(args, " "), "", nil
}

func execute(cmd *cobra.Command, args []string) error {
	text, path, err := gatherText(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return cmd.Help()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc := newService(cfg)

	if providerName != "" {
		if err := svc.SetProvider(providerName); err != nil {
			return err
		}
	}

	opts := speech.SpeakOptions{Voice: voice, Model: model, Language: language}

	if watchFile {
		if path == "" {
			return errors.New("watch mode requires a file argument")
		}
		return watchAndSpeak(svc, path, opts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc.Speak(text, opts)
	if err := svc.Wait(ctx); err != nil {
		svc.Stop()
		fmt.Println()
		return nil
	}
	return nil
}

// watchAndSpeak re-speaks a file every time it changes, until interrupted.
func watchAndSpeak(svc *speech.Service, path string, opts speech.SpeakOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file itself; editors that
	// rename-and-replace would otherwise drop the watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	speakCurrent := func() {
		b, err := os.ReadFile(path)
		if err != nil {
			log.Warn("unable to read watched file", "path", path, "error", err)
			return
		}
		svc.Speak(string(b), opts)
	}

	if isTerminal() {
		fmt.Printf("Watching %s. Press ctrl+c to stop.\n", path)
	}
	speakCurrent()

	for {
		select {
		case <-ctx.Done():
			svc.Stop()
			fmt.Println()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug("watched file changed", "path", path, "op", event.Op)
			speakCurrent()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	_ = godotenv.Load()
	tryLoadConfigFromDefaultPlaces()

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVarP(&providerName, "provider", "P", "", "speech provider (gtts, openai)")
	rootCmd.Flags().StringVar(&voice, "voice", "", "voice name (provider-specific)")
	rootCmd.Flags().StringVar(&model, "model", "", "synthesis model (provider-specific)")
	rootCmd.Flags().StringVarP(&language, "lang", "l", "", "language code (e.g. en, es, fr)")
	rootCmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "re-speak a file whenever it changes")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("default_provider", rootCmd.Flags().Lookup("provider"))

	viper.SetDefault("debug", false)

	rootCmd.AddCommand(configCmd, providersCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	for _, p := range []string{".speech", os.ExpandEnv("$HOME/.config/speech")} {
		viper.AddConfigPath(p)
	}

	viper.SetConfigName("speech")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("speech")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
	}
}
