package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Utterance is one scripted recognition outcome. A non-empty Error scripts a
// recognition failure; an empty Text scripts silence.
type Utterance struct {
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Script is a recorded sequence of utterances, loaded from a YAML or JSON
// file by the replay command.
type Script struct {
	// Locale overrides the configured locale when set.
	Locale string `json:"locale,omitempty" yaml:"locale,omitempty"`

	// Session continues an existing backend session when set.
	Session string `json:"session,omitempty" yaml:"session,omitempty"`

	Utterances []Utterance `json:"utterances" yaml:"utterances"`
}

// ScriptRecognizer plays back a Script, one utterance per Listen.
type ScriptRecognizer struct {
	mu         sync.Mutex
	utterances []Utterance
	pos        int
}

var _ Recognizer = (*ScriptRecognizer)(nil)

// NewScriptRecognizer returns a recognizer replaying s.
func NewScriptRecognizer(s *Script) *ScriptRecognizer {
	r := &ScriptRecognizer{}
	if s != nil {
		r.utterances = s.Utterances
	}
	return r
}

// NewScriptRecognizerFromEnv builds a ScriptRecognizer from env.Script.
func NewScriptRecognizerFromEnv(env Env) (Recognizer, error) {
	if env.Script == nil {
		return nil, errors.New("speech: script recognizer requires a script")
	}
	return NewScriptRecognizer(env.Script), nil
}

// Available always reports true; an exhausted script yields Ended results.
func (r *ScriptRecognizer) Available() bool {
	return true
}

// Listen returns the next scripted outcome.
func (r *ScriptRecognizer) Listen(ctx context.Context, _ ListenOptions) Result {
	if ctx.Err() != nil {
		return EndedResult()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= len(r.utterances) {
		return EndedResult()
	}
	u := r.utterances[r.pos]
	r.pos++
	switch {
	case u.Error != "":
		return FailedResult(errors.New(u.Error))
	case strings.TrimSpace(u.Text) == "":
		return EndedResult()
	default:
		return TranscriptResult(strings.TrimSpace(u.Text))
	}
}

// Stop is a no-op; scripted captures complete immediately.
func (r *ScriptRecognizer) Stop() {}

// Remaining returns the number of utterances not yet played.
func (r *ScriptRecognizer) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.utterances) - r.pos
}
