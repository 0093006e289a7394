package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// Waiter is implemented by speakers that play audio in the background.
// Wait blocks until every utterance handed off so far has finished.
type Waiter interface {
	Wait()
}

// Wait waits for background playback of s if it supports it.
func Wait(s Speaker) {
	if w, ok := s.(Waiter); ok {
		w.Wait()
	}
}

// ConsoleSpeaker "speaks" by writing the utterance to a writer.
type ConsoleSpeaker struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Speaker = (*ConsoleSpeaker)(nil)

// NewConsoleSpeaker returns a speaker writing to w.
func NewConsoleSpeaker(w io.Writer) *ConsoleSpeaker {
	return &ConsoleSpeaker{w: w}
}

// NewConsoleSpeakerFromEnv builds a ConsoleSpeaker writing to env.Out.
func NewConsoleSpeakerFromEnv(env Env) (Speaker, error) {
	return NewConsoleSpeaker(env.Out), nil
}

func (s *ConsoleSpeaker) Available() bool {
	return s.w != nil
}

func (s *ConsoleSpeaker) Speak(_ context.Context, text, locale string) error {
	if s.w == nil {
		return ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "🔊 [%s] %s\n", locale, text)
	return nil
}

// CommandSpeaker runs an external TTS program per utterance, for example
// ["espeak-ng", "-v", "{lang}"] or ["say"]. The placeholders {text},
// {locale} and {lang} are substituted in arguments; if no argument contains
// {text}, the text is appended as the last argument.
type CommandSpeaker struct {
	argv []string
	log  *slog.Logger
	wg   sync.WaitGroup
}

var (
	_ Speaker = (*CommandSpeaker)(nil)
	_ Waiter  = (*CommandSpeaker)(nil)
)

// NewCommandSpeaker returns a speaker running argv.
func NewCommandSpeaker(argv []string, logger *slog.Logger) *CommandSpeaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSpeaker{argv: argv, log: logger}
}

// NewCommandSpeakerFromEnv builds a CommandSpeaker from env.Command.
func NewCommandSpeakerFromEnv(env Env) (Speaker, error) {
	if len(env.Command) == 0 {
		return nil, errors.New("speech: command speaker requires a command")
	}
	return NewCommandSpeaker(env.Command, env.logger()), nil
}

// Available reports whether the program can be found on PATH.
func (s *CommandSpeaker) Available() bool {
	if len(s.argv) == 0 {
		return false
	}
	_, err := exec.LookPath(s.argv[0])
	return err == nil
}

// Speak starts the program and returns without waiting for it.
func (s *CommandSpeaker) Speak(_ context.Context, text, locale string) error {
	if !s.Available() {
		return ErrUnavailable
	}
	args := expandArgs(s.argv[1:], text, locale)
	cmd := exec.Command(s.argv[0], args...)
	if err := cmd.Start(); err != nil {
		s.log.Warn("speech: start tts command", "cmd", s.argv[0], "err", err)
		return nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := cmd.Wait(); err != nil {
			s.log.Warn("speech: tts command failed", "cmd", s.argv[0], "err", err)
		}
	}()
	return nil
}

// Wait blocks until all started programs have exited.
func (s *CommandSpeaker) Wait() {
	s.wg.Wait()
}

func expandArgs(args []string, text, locale string) []string {
	r := strings.NewReplacer("{text}", text, "{locale}", locale, "{lang}", Language(locale))
	out := make([]string, 0, len(args)+1)
	hasText := false
	for _, a := range args {
		if strings.Contains(a, "{text}") {
			hasText = true
		}
		out = append(out, r.Replace(a))
	}
	if !hasText {
		out = append(out, text)
	}
	return out
}
