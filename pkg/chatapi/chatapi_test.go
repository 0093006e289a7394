package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haivivi/v2v/pkg/conversation"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL + "/api/"))
}

func TestSendMessageAllocatesSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Error("missing request id header")
		}
		body, _ := io.ReadAll(r.Body)
		if got := string(body); got != `{"message":"Привет","session_id":null}` {
			t.Errorf("body = %s", got)
		}
		io.WriteString(w, `{"response":"Здравствуйте","session_id":42}`)
	})

	reply, err := c.SendMessage(context.Background(), "Привет", "")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.Text != "Здравствуйте" || reply.SessionID != "42" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestSendMessageSendsSessionIDAsNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["session_id"] != float64(7) {
			t.Errorf("session_id = %#v", req["session_id"])
		}
		io.WriteString(w, `{"response":"ok"}`)
	})

	reply, err := c.SendMessage(context.Background(), "hi", "7")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.SessionID != "7" {
		t.Fatalf("missing session_id should echo the caller's id, got %q", reply.SessionID)
	}
}

func TestSendMessageFallbackReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"session_id":"abc"}`)
	})

	reply, err := c.SendMessage(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.Text != FallbackReply || reply.SessionID != "abc" {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestSendMessageEmptyResponseIsKept(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"response":"","session_id":1}`)
	})
	reply, err := c.SendMessage(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply.Text != "" {
		t.Fatalf("Text = %q, want empty", reply.Text)
	}
}

func TestSendMessageErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, e *Error)
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"detail":"db down"}`,
			check: func(t *testing.T, e *Error) {
				if !e.IsServerError() || e.Message != "db down" {
					t.Errorf("error = %+v", e)
				}
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `<html>proxy</html>`,
			check: func(t *testing.T, e *Error) {
				if e.StatusCode != http.StatusOK || e.Err == nil {
					t.Errorf("error = %+v", e)
				}
			},
		},
		{
			name:   "no session allocated",
			status: http.StatusOK,
			body:   `{"response":"hi"}`,
			check: func(t *testing.T, e *Error) {
				if !errors.Is(e, errNoSessionID) {
					t.Errorf("error = %+v", e)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.SendMessage(context.Background(), "hi", "")
			e, ok := AsError(err)
			if !ok {
				t.Fatalf("err = %v, want *Error", err)
			}
			if e.Op != "chat" {
				t.Errorf("Op = %q", e.Op)
			}
			tt.check(t, e)
		})
	}
}

func TestSendMessageEmptyText(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	if _, err := c.SendMessage(context.Background(), "", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("empty message reached the backend")
	}
}

func TestSendMessageNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(WithBaseURL(url))
	_, err := c.SendMessage(context.Background(), "hi", "1")
	e, ok := AsError(err)
	if !ok || e.StatusCode != 0 || e.RequestID == "" {
		t.Fatalf("err = %#v", err)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c.timeout = 20 * time.Millisecond
	_, err := c.SendMessage(context.Background(), "hi", "1")
	e, ok := AsError(err)
	if !ok || !e.IsCanceled() {
		t.Fatalf("err = %v, want canceled transport error", err)
	}
}

func TestListSessions(t *testing.T) {
	for name, body := range map[string]string{
		"array":   `[{"id":3,"created_at":"2024-01-15T10:30:00"},{"id":"7","created_at":1705314600}]`,
		"wrapped": `{"sessions":[{"id":3,"created_at":"2024-01-15T10:30:00"},{"id":"7","created_at":1705314600}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/api/session" {
					http.NotFound(w, r)
					return
				}
				io.WriteString(w, body)
			})
			sessions, err := c.ListSessions(context.Background())
			if err != nil {
				t.Fatalf("ListSessions: %v", err)
			}
			if len(sessions) != 2 || sessions[0].ID != "3" || sessions[1].ID != "7" {
				t.Fatalf("sessions = %+v", sessions)
			}
			want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
			for _, s := range sessions {
				if !s.CreatedAt.Time().Equal(want) {
					t.Errorf("created_at = %v", s.CreatedAt)
				}
			}
		})
	}
}

func TestCreateSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/session" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"id":9,"created_at":"2024-05-01T12:00:00Z"}`)
	})
	s, err := c.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ID != "9" || s.CreatedAt.IsZero() {
		t.Fatalf("session = %+v", s)
	}
}

func TestGetSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session/7":
			io.WriteString(w, `{"messages":[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]}`)
		case "/api/session/8":
			io.WriteString(w, `{"messages":[{"role":"system","content":"x"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"detail":"Session not found"}`)
		}
	})
	ctx := context.Background()

	msgs, err := c.GetSession(ctx, "7")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	want := []conversation.Message{conversation.UserMessage("a"), conversation.AssistantMessage("b")}
	if len(msgs) != 2 || msgs[0] != want[0] || msgs[1] != want[1] {
		t.Fatalf("messages = %+v", msgs)
	}

	if _, err := c.GetSession(ctx, "8"); err == nil {
		t.Fatal("unknown role should be rejected")
	}

	_, err = c.GetSession(ctx, "404")
	if e, ok := AsError(err); !ok || !e.IsNotFound() || !strings.Contains(e.Error(), "Session not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestHealth(t *testing.T) {
	var degraded atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api" {
			http.NotFound(w, r)
			return
		}
		if degraded.Load() {
			io.WriteString(w, `{"status":"degraded"}`)
			return
		}
		io.WriteString(w, `{"status":"ok"}`)
	})
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	degraded.Store(true)
	if err := c.Health(context.Background()); err == nil {
		t.Fatal("expected error for non-ok status")
	}
}

func TestBaseURLFromEnv(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://example.test/api/")
	if got := NewClient().BaseURL(); got != "http://example.test/api" {
		t.Fatalf("BaseURL = %q", got)
	}
	if got := NewClient(WithBaseURL("http://other/api")).BaseURL(); got != "http://other/api" {
		t.Fatalf("BaseURL = %q", got)
	}
	t.Setenv(EnvBaseURL, "")
	if got := NewClient().BaseURL(); got != DefaultBaseURL {
		t.Fatalf("BaseURL = %q", got)
	}
}
