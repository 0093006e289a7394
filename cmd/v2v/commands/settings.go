package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/haivivi/v2v/pkg/chatapi"
	"github.com/haivivi/v2v/pkg/kv"
	"github.com/haivivi/v2v/pkg/speech"
)

// EnvOpenAIAPIKey supplies the OpenAI API key when no context sets one.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// Defaults for a setup with no configuration.
const (
	defaultRecognizer = "line"
	defaultSpeaker    = "console"
)

var (
	defaultSpeakerCommand = []string{"espeak-ng", "-v", "{lang}"}
	defaultPlayerCommand  = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-"}
)

// settings is the effective configuration of one command invocation.
type settings struct {
	Context        string
	BaseURL        string
	Timeout        time.Duration
	Locale         string
	Recognizer     string
	Speaker        string
	SpeakerCommand []string
	PlayerCommand  []string
	CacheDir       string
	OpenAI         speech.OpenAIConfig
}

// resolveSettings merges defaults, the selected context, the environment
// and flags, later sources winning.
func resolveSettings() (*settings, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		return nil, err
	}

	s := &settings{
		Context:        ctx.Name,
		BaseURL:        chatapi.DefaultBaseURL,
		Locale:         speech.DefaultLocale,
		Recognizer:     defaultRecognizer,
		Speaker:        defaultSpeaker,
		SpeakerCommand: defaultSpeakerCommand,
		PlayerCommand:  defaultPlayerCommand,
		CacheDir:       filepath.Join(cfg.Dir(), "cache", "tts"),
	}

	// context
	setIf(&s.BaseURL, ctx.BaseURL)
	setIf(&s.Locale, ctx.Locale)
	setIf(&s.Recognizer, ctx.Recognizer)
	setIf(&s.Speaker, ctx.Speaker)
	setIf(&s.CacheDir, ctx.CacheDir)
	s.Timeout = time.Duration(ctx.Timeout) * time.Second
	if len(ctx.SpeakerCommand) > 0 {
		s.SpeakerCommand = ctx.SpeakerCommand
	}
	if len(ctx.PlayerCommand) > 0 {
		s.PlayerCommand = ctx.PlayerCommand
	}
	if oa := ctx.OpenAI; oa != nil {
		s.OpenAI = speech.OpenAIConfig{
			APIKey:             oa.APIKey,
			BaseURL:            oa.BaseURL,
			Voice:              oa.Voice,
			SpeechModel:        oa.SpeechModel,
			TranscriptionModel: oa.TranscriptionModel,
		}
	}

	// environment
	setIf(&s.BaseURL, os.Getenv(chatapi.EnvBaseURL))
	setIf(&s.OpenAI.APIKey, os.Getenv(EnvOpenAIAPIKey))

	// flags
	setIf(&s.BaseURL, baseURLFlag)
	setIf(&s.Locale, localeFlag)
	setIf(&s.Recognizer, recognizerFlag)
	setIf(&s.Speaker, speakerFlag)

	return s, nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func newClient(s *settings) *chatapi.Client {
	return chatapi.NewClient(
		chatapi.WithBaseURL(s.BaseURL),
		chatapi.WithTimeout(s.Timeout),
		chatapi.WithLogger(slog.Default()),
	)
}

// capabilities holds the speech backends of one command and the resources
// they hold open.
type capabilities struct {
	Recognizer speech.Recognizer
	Speaker    speech.Speaker
	cache      kv.Store
}

// Close waits for background playback and releases the audio cache.
func (c *capabilities) Close() error {
	if c.Speaker != nil {
		speech.Wait(c.Speaker)
	}
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

// openCapabilities builds the configured recognizer and speaker through
// speech.DefaultMux. lines feeds line-driven recognizers, script the script
// recognizer, and out the console speaker.
func openCapabilities(s *settings, lines <-chan string, script *speech.Script, out io.Writer) (*capabilities, error) {
	caps, env, err := openSpeaker(s, out)
	if err != nil {
		return nil, err
	}
	env.Lines = lines
	env.Script = script
	rec, err := speech.DefaultMux.Recognizer(s.Recognizer, env)
	if err != nil {
		caps.Close()
		return nil, fmt.Errorf("recognizer %q: %w", s.Recognizer, err)
	}
	caps.Recognizer = rec
	return caps, nil
}

// openSpeaker builds only the configured speaker; the recognizer is left
// unavailable.
func openSpeaker(s *settings, out io.Writer) (*capabilities, speech.Env, error) {
	env := speech.Env{
		Out:    out,
		OpenAI: s.OpenAI,
		Logger: slog.Default(),
	}
	switch s.Speaker {
	case "command":
		env.Command = s.SpeakerCommand
	case "openai":
		env.Command = s.PlayerCommand
	}

	caps := &capabilities{Recognizer: speech.Unavailable{}}
	if s.Speaker == "openai" {
		store, err := openCache(s)
		if err != nil {
			// Synthesis still works uncached.
			slog.Warn("speech cache unavailable", "dir", s.CacheDir, "err", err)
		} else {
			caps.cache = store
			env.Cache = store
		}
	}

	spk, err := speech.DefaultMux.Speaker(s.Speaker, env)
	if err != nil {
		caps.Close()
		return nil, env, fmt.Errorf("speaker %q: %w", s.Speaker, err)
	}
	caps.Speaker = spk
	return caps, env, nil
}

// openCache opens the on-disk synthesized speech store.
func openCache(s *settings) (kv.Store, error) {
	if err := os.MkdirAll(s.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return kv.NewBadger(kv.BadgerOptions{Dir: s.CacheDir, Logger: slog.Default()})
}

// cacheExists reports whether a speech cache has been created, so read-only
// commands don't create one.
func cacheExists(s *settings) bool {
	entries, err := os.ReadDir(s.CacheDir)
	return err == nil && len(entries) > 0
}

// displayContext names the context for human output.
func displayContext(s *settings) string {
	if s.Context == "" {
		return "(defaults)"
	}
	return s.Context
}
