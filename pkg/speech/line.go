package speech

import (
	"context"
	"errors"
	"strings"
)

// LineRecognizer treats each line from a source as one recognized
// utterance. It stands in for a microphone when the client runs in a
// terminal.
type LineRecognizer struct {
	lines   <-chan string
	capture capture
}

var _ Recognizer = (*LineRecognizer)(nil)

// NewLineRecognizer returns a recognizer reading utterances from lines.
func NewLineRecognizer(lines <-chan string) *LineRecognizer {
	return &LineRecognizer{lines: lines}
}

// NewLineRecognizerFromEnv builds a LineRecognizer from env.Lines.
func NewLineRecognizerFromEnv(env Env) (Recognizer, error) {
	if env.Lines == nil {
		return nil, errors.New("speech: line recognizer requires a line source")
	}
	return NewLineRecognizer(env.Lines), nil
}

// Available reports whether a line source is attached.
func (r *LineRecognizer) Available() bool {
	return r.lines != nil
}

// Listen waits for the next line. A blank line, a closed source, Stop, or
// context cancellation end the capture without a transcript.
func (r *LineRecognizer) Listen(ctx context.Context, _ ListenOptions) Result {
	ctx, done := r.capture.begin(ctx)
	defer done()

	select {
	case <-ctx.Done():
		return EndedResult()
	case line, ok := <-r.lines:
		if !ok {
			return EndedResult()
		}
		text := strings.TrimSpace(line)
		if text == "" {
			return EndedResult()
		}
		return TranscriptResult(text)
	}
}

// Stop aborts an in-progress Listen.
func (r *LineRecognizer) Stop() {
	r.capture.stop()
}

// Listening reports whether a capture is in progress.
func (r *LineRecognizer) Listening() bool {
	return r.capture.listening()
}
