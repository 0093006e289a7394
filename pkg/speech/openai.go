package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/haivivi/v2v/pkg/kv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI speech models and voices used when none is configured.
const (
	DefaultOpenAITranscriptionModel = "whisper-1"
	DefaultOpenAISpeechModel        = "tts-1"
	DefaultOpenAIVoice              = "alloy"
)

// OpenAIConfig configures the OpenAI-backed capabilities. It also works with
// OpenAI-compatible providers through BaseURL.
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	SpeechModel        string
	Voice              string
	HTTPClient         *http.Client
}

func (c OpenAIConfig) client() openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	if c.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	}
	return openai.NewClient(opts...)
}

// OpenAIRecognizer transcribes recorded utterances with the OpenAI audio
// transcription API. Each line from the source is the path of an audio file
// holding one utterance.
type OpenAIRecognizer struct {
	client  openai.Client
	model   string
	enabled bool
	paths   <-chan string
	capture capture
}

var _ Recognizer = (*OpenAIRecognizer)(nil)

// NewOpenAIRecognizer returns a recognizer reading audio file paths from
// paths.
func NewOpenAIRecognizer(cfg OpenAIConfig, paths <-chan string) *OpenAIRecognizer {
	model := cfg.TranscriptionModel
	if model == "" {
		model = DefaultOpenAITranscriptionModel
	}
	return &OpenAIRecognizer{
		client:  cfg.client(),
		model:   model,
		enabled: cfg.APIKey != "",
		paths:   paths,
	}
}

// NewOpenAIRecognizerFromEnv builds an OpenAIRecognizer from env.
func NewOpenAIRecognizerFromEnv(env Env) (Recognizer, error) {
	if env.Lines == nil {
		return nil, errors.New("speech: openai recognizer requires a line source")
	}
	return NewOpenAIRecognizer(env.OpenAI, env.Lines), nil
}

// Available reports whether an API key and a path source are configured.
func (r *OpenAIRecognizer) Available() bool {
	return r.enabled && r.paths != nil
}

// Listen waits for the next audio file path and transcribes it.
func (r *OpenAIRecognizer) Listen(ctx context.Context, opts ListenOptions) Result {
	ctx, done := r.capture.begin(ctx)
	defer done()

	var path string
	select {
	case <-ctx.Done():
		return EndedResult()
	case p, ok := <-r.paths:
		if !ok {
			return EndedResult()
		}
		path = strings.TrimSpace(p)
	}
	if path == "" {
		return EndedResult()
	}

	f, err := os.Open(path)
	if err != nil {
		return FailedResult(fmt.Errorf("speech: open audio: %w", err))
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(r.model),
	}
	if lang := Language(opts.Locale); lang != "" {
		params.Language = openai.String(lang)
	}
	tr, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return EndedResult()
		}
		return FailedResult(fmt.Errorf("speech: transcribe: %w", err))
	}
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		return EndedResult()
	}
	return TranscriptResult(text)
}

// Stop aborts an in-progress Listen, including a pending API call.
func (r *OpenAIRecognizer) Stop() {
	r.capture.stop()
}

// OpenAISpeaker synthesizes MP3 audio with the OpenAI speech API and pipes
// it to an audio player reading from stdin (e.g. ["ffplay", "-nodisp",
// "-autoexit", "-loglevel", "quiet", "-"]).
type OpenAISpeaker struct {
	client  openai.Client
	model   string
	voice   string
	enabled bool
	player  []string
	cache   *AudioCache
	log     *slog.Logger
	wg      sync.WaitGroup
}

var (
	_ Speaker = (*OpenAISpeaker)(nil)
	_ Waiter  = (*OpenAISpeaker)(nil)
)

// NewOpenAISpeaker returns a speaker. cache may be nil.
func NewOpenAISpeaker(cfg OpenAIConfig, player []string, cache kv.Store, logger *slog.Logger) *OpenAISpeaker {
	if logger == nil {
		logger = slog.Default()
	}
	s := &OpenAISpeaker{
		client:  cfg.client(),
		model:   cfg.SpeechModel,
		voice:   cfg.Voice,
		enabled: cfg.APIKey != "",
		player:  player,
		log:     logger,
	}
	if s.model == "" {
		s.model = DefaultOpenAISpeechModel
	}
	if s.voice == "" {
		s.voice = DefaultOpenAIVoice
	}
	if cache != nil {
		s.cache = NewAudioCache(cache)
	}
	return s
}

// NewOpenAISpeakerFromEnv builds an OpenAISpeaker from env.
func NewOpenAISpeakerFromEnv(env Env) (Speaker, error) {
	if len(env.Command) == 0 {
		return nil, errors.New("speech: openai speaker requires a player command")
	}
	return NewOpenAISpeaker(env.OpenAI, env.Command, env.Cache, env.logger()), nil
}

// Available reports whether an API key is set and the player can be found.
func (s *OpenAISpeaker) Available() bool {
	if !s.enabled || len(s.player) == 0 {
		return false
	}
	_, err := exec.LookPath(s.player[0])
	return err == nil
}

// Speak hands text off to a background synthesis and playback.
func (s *OpenAISpeaker) Speak(ctx context.Context, text, locale string) error {
	if !s.Available() {
		return ErrUnavailable
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.WithoutCancel(ctx)
		audio, err := s.Synthesize(ctx, text, locale)
		if err != nil {
			s.log.Warn("speech: openai synthesis failed", "err", err)
			return
		}
		cmd := exec.Command(s.player[0], s.player[1:]...)
		cmd.Stdin = bytes.NewReader(audio)
		if err := cmd.Run(); err != nil {
			s.log.Warn("speech: audio player failed", "cmd", s.player[0], "err", err)
		}
	}()
	return nil
}

// Synthesize returns MP3 audio for text, from the cache when possible.
func (s *OpenAISpeaker) Synthesize(ctx context.Context, text, locale string) ([]byte, error) {
	key := AudioKey(s.model, s.voice, locale, text)
	if s.cache != nil {
		e, err := s.cache.Get(ctx, key)
		if err == nil {
			s.log.Debug("speech: audio cache hit", "key", key.String())
			return e.Audio, nil
		}
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("speech: audio cache read failed", "err", err)
		}
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech: synthesize: %w", err)
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: read synthesized audio: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, &AudioEntry{Text: text, Format: "mp3", Audio: audio}); err != nil {
			s.log.Warn("speech: audio cache write failed", "err", err)
		}
	}
	return audio, nil
}

// Wait blocks until all handed-off utterances have been played.
func (s *OpenAISpeaker) Wait() {
	s.wg.Wait()
}
