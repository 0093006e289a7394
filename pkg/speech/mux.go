package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/haivivi/v2v/pkg/kv"
)

// Env carries what a backend factory may need to build a capability.
type Env struct {
	// Lines is the line source for recognizers fed by a terminal, one
	// utterance (or audio file path) per line.
	Lines <-chan string

	// Script holds the utterances for the script recognizer.
	Script *Script

	// Out receives console speech output.
	Out io.Writer

	// Command is the external program (with arguments) used by the command
	// speaker, or the audio player used by the openai speaker.
	Command []string

	// OpenAI configures the OpenAI-backed capabilities.
	OpenAI OpenAIConfig

	// Cache stores synthesized audio. Optional.
	Cache kv.Store

	// Logger is used by backends that log. Defaults to slog.Default().
	Logger *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// RecognizerFactory builds a Recognizer from an Env.
type RecognizerFactory func(env Env) (Recognizer, error)

// SpeakerFactory builds a Speaker from an Env.
type SpeakerFactory func(env Env) (Speaker, error)

// DefaultMux is the default multiplexer, with the built-in backends
// registered.
var DefaultMux = NewMux()

func init() {
	DefaultMux.HandleRecognizer("line", NewLineRecognizerFromEnv)
	DefaultMux.HandleRecognizer("script", NewScriptRecognizerFromEnv)
	DefaultMux.HandleRecognizer("openai", NewOpenAIRecognizerFromEnv)
	DefaultMux.HandleRecognizer("none", func(Env) (Recognizer, error) { return Unavailable{}, nil })

	DefaultMux.HandleSpeaker("console", NewConsoleSpeakerFromEnv)
	DefaultMux.HandleSpeaker("command", NewCommandSpeakerFromEnv)
	DefaultMux.HandleSpeaker("openai", NewOpenAISpeakerFromEnv)
	DefaultMux.HandleSpeaker("none", func(Env) (Speaker, error) { return Unavailable{}, nil })
}

// Mux routes capability construction to the backend registered under a
// name.
type Mux struct {
	mu          sync.RWMutex
	recognizers map[string]RecognizerFactory
	speakers    map[string]SpeakerFactory
}

// NewMux creates an empty multiplexer.
func NewMux() *Mux {
	return &Mux{
		recognizers: make(map[string]RecognizerFactory),
		speakers:    make(map[string]SpeakerFactory),
	}
}

// HandleRecognizer registers a recognizer backend for name.
func (m *Mux) HandleRecognizer(name string, f RecognizerFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recognizers[name]; ok {
		slog.Warn("speech: recognizer already registered", "name", name)
	}
	m.recognizers[name] = f
}

// HandleSpeaker registers a speaker backend for name.
func (m *Mux) HandleSpeaker(name string, f SpeakerFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.speakers[name]; ok {
		slog.Warn("speech: speaker already registered", "name", name)
	}
	m.speakers[name] = f
}

// Recognizer builds the recognizer registered for name.
func (m *Mux) Recognizer(name string, env Env) (Recognizer, error) {
	m.mu.RLock()
	f, ok := m.recognizers[name]
	m.mu.RUnlock()
	if !ok || f == nil {
		return nil, fmt.Errorf("speech: recognizer not found for %s", name)
	}
	return f(env)
}

// Speaker builds the speaker registered for name.
func (m *Mux) Speaker(name string, env Env) (Speaker, error) {
	m.mu.RLock()
	f, ok := m.speakers[name]
	m.mu.RUnlock()
	if !ok || f == nil {
		return nil, fmt.Errorf("speech: speaker not found for %s", name)
	}
	return f(env)
}

// RecognizerNames returns the registered recognizer names, sorted.
func (m *Mux) RecognizerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.recognizers))
	for name := range m.recognizers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SpeakerNames returns the registered speaker names, sorted.
func (m *Mux) SpeakerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.speakers))
	for name := range m.speakers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Unavailable is a capability the host does not support. It serves as both
// a Recognizer and a Speaker.
type Unavailable struct{}

var (
	_ Recognizer = Unavailable{}
	_ Speaker    = Unavailable{}
)

func (Unavailable) Available() bool { return false }

func (Unavailable) Listen(ctx context.Context, _ ListenOptions) Result {
	return FailedResult(ErrUnavailable)
}

func (Unavailable) Stop() {}

func (Unavailable) Speak(context.Context, string, string) error { return ErrUnavailable }
