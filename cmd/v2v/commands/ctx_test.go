package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/v2v/pkg/chatapi"
)

// setupTestEnv points the CLI at a fresh config file and clears
// environment overrides. It returns the config path.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "v2v", "config.yaml")
	t.Setenv("V2V_CONFIG", path)
	t.Setenv(chatapi.EnvBaseURL, "")
	t.Setenv(EnvOpenAIAPIKey, "")
	return path
}

// syncBuffer is a bytes.Buffer safe for writers on several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	return runCmdWithInput(t, "", args...)
}

func runCmdWithInput(t *testing.T, stdin string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	var outBuf, errBuf syncBuffer
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetIn(strings.NewReader(stdin))

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeTestFile writes a file to a temp dir and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------------------------------------------------------------------------
// fake chat backend
// ---------------------------------------------------------------------------

type backendMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type backendSession struct {
	ID        int    `json:"id"`
	CreatedAt string `json:"created_at"`
}

type fakeBackend struct {
	mu       sync.Mutex
	sessions []backendSession // newest first
	history  map[int][]backendMessage
	nextID   int
	failChat bool
	down     bool
}

// newFakeBackend serves the chat API under /api and returns its base URL.
func newFakeBackend(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	b := &fakeBackend{history: make(map[int][]backendMessage), nextID: 42}

	mux := http.NewServeMux()
	health := func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		down := b.down
		b.mu.Unlock()
		if down {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "maintenance"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
	mux.HandleFunc("GET /api", health)
	mux.HandleFunc("GET /api/{$}", health)
	mux.HandleFunc("GET /api/session", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, append([]backendSession{}, b.sessions...))
	})
	mux.HandleFunc("POST /api/session", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.allocate())
	})
	mux.HandleFunc("GET /api/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id, _ := strconv.Atoi(r.PathValue("id"))
		msgs, ok := b.history[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message   string `json:"message"`
			SessionID *int   `json:"session_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failChat {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "model overloaded"})
			return
		}
		var id int
		if req.SessionID == nil {
			id = b.allocate().ID
		} else {
			id = *req.SessionID
		}
		reply := "Ответ: " + req.Message
		b.history[id] = append(b.history[id],
			backendMessage{Role: "user", Content: req.Message},
			backendMessage{Role: "assistant", Content: reply},
		)
		writeJSON(w, http.StatusOK, map[string]any{"response": reply, "session_id": id})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv.URL + "/api"
}

// allocate creates a session; b.mu must be held.
func (b *fakeBackend) allocate() backendSession {
	s := backendSession{ID: b.nextID, CreatedAt: "2024-05-01T12:00:00"}
	b.nextID++
	b.sessions = append([]backendSession{s}, b.sessions...)
	if _, ok := b.history[s.ID]; !ok {
		b.history[s.ID] = []backendMessage{}
	}
	return s
}

func (b *fakeBackend) seed(id int, msgs ...backendMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = append([]backendSession{{ID: id, CreatedAt: "2024-04-30T09:15:00"}}, b.sessions...)
	b.history[id] = msgs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
