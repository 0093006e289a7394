// Package speech provides the speech capabilities consumed by the voice
// chat client: a Recognizer turns one spoken utterance into a transcript and
// a Speaker reads a reply aloud.
//
// Capabilities are host-provided and may be missing. Availability is a
// precondition checked before use (ErrUnavailable), never a runtime error
// after a capture has started.
//
// Implementations are registered by name in a Mux, mirroring how ASR and TTS
// backends are selected by configuration.
package speech

import (
	"context"
	"errors"
	"fmt"
)

// DefaultLocale is the locale used when none is configured.
const DefaultLocale = "ru-RU"

// ErrUnavailable is returned when a capability is not supported by the host.
var ErrUnavailable = errors.New("speech: capability unavailable")

// ResultKind tags the outcome of a single Listen call.
type ResultKind int

const (
	// Ended means the capture stopped without producing a transcript, e.g.
	// after Stop or silence.
	Ended ResultKind = iota

	// Transcript means a final transcript was recognized.
	Transcript

	// Failed means recognition failed mid-capture.
	Failed
)

// String returns the string representation of the kind.
func (k ResultKind) String() string {
	switch k {
	case Transcript:
		return "transcript"
	case Failed:
		return "error"
	default:
		return "ended"
	}
}

// Result is the outcome of a Listen call. Exactly one of Text (Transcript)
// or Err (Failed) is meaningful.
type Result struct {
	Kind ResultKind
	Text string
	Err  error
}

// TranscriptResult returns a Transcript result.
func TranscriptResult(text string) Result {
	return Result{Kind: Transcript, Text: text}
}

// FailedResult returns a Failed result.
func FailedResult(err error) Result {
	return Result{Kind: Failed, Err: err}
}

// EndedResult returns an Ended result.
func EndedResult() Result {
	return Result{Kind: Ended}
}

func (r Result) String() string {
	switch r.Kind {
	case Transcript:
		return fmt.Sprintf("transcript(%q)", r.Text)
	case Failed:
		return fmt.Sprintf("error(%v)", r.Err)
	default:
		return "ended"
	}
}

// ListenOptions configures a single capture.
type ListenOptions struct {
	// Locale is the BCP 47 language tag to recognize, e.g. "ru-RU".
	Locale string
}

// Recognizer is a speech-to-text capability.
//
// Listen captures until the first final utterance (no interim results, one
// alternative) and returns exactly one Result. It must not be called when
// Available reports false. Stop aborts an in-progress Listen, which then
// returns an Ended result with any partial audio discarded; Stop is
// idempotent and safe to call when not listening.
type Recognizer interface {
	Available() bool
	Listen(ctx context.Context, opts ListenOptions) Result
	Stop()
}

// Speaker is a text-to-speech capability. Speak is fire-and-forget: it
// returns once playback has been handed off, and its only error is
// ErrUnavailable.
type Speaker interface {
	Available() bool
	Speak(ctx context.Context, text, locale string) error
}

// Language returns the primary language subtag of a locale ("ru-RU" → "ru").
func Language(locale string) string {
	for i := 0; i < len(locale); i++ {
		if locale[i] == '-' || locale[i] == '_' {
			return locale[:i]
		}
	}
	return locale
}
