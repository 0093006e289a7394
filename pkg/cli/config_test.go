package cli

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"1234", "****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"abcdefghij", "abcd**ghij"},
		{"sk-1234567890abcdef", "sk-1***********cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := MaskAPIKey(tt.key)
			if got != tt.want {
				t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLoadConfigWithPath_Missing(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "v2v", "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	if cfg.Contexts == nil {
		t.Error("Contexts should be initialized")
	}
	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		t.Error("loading a missing config must not create it")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(EnvConfig, configPath)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
}

func TestConfig_SaveAndReload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatal(err)
	}

	err = cfg.AddContext("local", &Context{
		BaseURL:        "http://localhost:8000/api",
		Locale:         "ru-RU",
		Recognizer:     "line",
		Speaker:        "command",
		SpeakerCommand: []string{"espeak-ng", "-v", "{lang}"},
		OpenAI:         &OpenAISettings{APIKey: "sk-1234567890abcdef"},
	})
	if err != nil {
		t.Fatalf("AddContext error: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config mode = %o, want 600", perm)
	}

	reloaded, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if reloaded.CurrentContext != "local" {
		t.Errorf("CurrentContext = %q, first context should become current", reloaded.CurrentContext)
	}
	ctx, err := reloaded.GetContext("local")
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Name != "local" || ctx.Speaker != "command" || !slices.Equal(ctx.SpeakerCommand, []string{"espeak-ng", "-v", "{lang}"}) {
		t.Errorf("context = %+v", ctx)
	}
	if ctx.OpenAI == nil || ctx.OpenAI.APIKey != "sk-1234567890abcdef" {
		t.Errorf("openai = %+v", ctx.OpenAI)
	}
}

func TestConfig_DeleteContext(t *testing.T) {
	cfg, err := LoadConfigWithPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	cfg.AddContext("ctx1", &Context{BaseURL: "http://one/api"})
	cfg.AddContext("ctx2", &Context{BaseURL: "http://two/api"})
	cfg.UseContext("ctx1")

	if err := cfg.DeleteContext("ctx2"); err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}
	if _, ok := cfg.Contexts["ctx2"]; ok {
		t.Error("Context should be deleted")
	}

	if err := cfg.DeleteContext("ctx1"); err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext should be cleared, got %q", cfg.CurrentContext)
	}

	if err := cfg.DeleteContext("nonexistent"); err == nil {
		t.Error("DeleteContext should fail for non-existent context")
	}
}

func TestConfig_UseContext(t *testing.T) {
	cfg, err := LoadConfigWithPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.AddContext("local", &Context{})
	cfg.AddContext("staging", &Context{})

	if err := cfg.UseContext("staging"); err != nil {
		t.Fatalf("UseContext error: %v", err)
	}
	if cfg.CurrentContext != "staging" {
		t.Errorf("CurrentContext = %q, want %q", cfg.CurrentContext, "staging")
	}
	if err := cfg.UseContext("nonexistent"); err == nil {
		t.Error("UseContext should fail for non-existent context")
	}
}

func TestConfig_ResolveContext(t *testing.T) {
	cfg, err := LoadConfigWithPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	// No contexts: an empty context so defaults apply.
	ctx, err := cfg.ResolveContext("")
	if err != nil || ctx == nil || ctx.BaseURL != "" {
		t.Fatalf("ResolveContext('') = %+v, %v", ctx, err)
	}

	cfg.AddContext("ctx1", &Context{BaseURL: "http://one/api"})
	cfg.AddContext("ctx2", &Context{BaseURL: "http://two/api"})

	ctx, err = cfg.ResolveContext("ctx2")
	if err != nil || ctx.BaseURL != "http://two/api" {
		t.Fatalf("ResolveContext(ctx2) = %+v, %v", ctx, err)
	}
	ctx, err = cfg.ResolveContext("")
	if err != nil || ctx.BaseURL != "http://one/api" {
		t.Fatalf("ResolveContext('') = %+v, %v", ctx, err)
	}
	if _, err := cfg.ResolveContext("missing"); err == nil {
		t.Error("ResolveContext should fail for unknown name")
	}
}

func TestConfig_ListContexts(t *testing.T) {
	cfg, err := LoadConfigWithPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.AddContext("production", &Context{})
	cfg.AddContext("staging", &Context{})
	cfg.AddContext("development", &Context{})

	want := []string{"development", "production", "staging"}
	if got := cfg.ListContexts(); !slices.Equal(got, want) {
		t.Errorf("ListContexts() = %v, want %v", got, want)
	}
}

func TestConfig_Dir(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := LoadConfigWithPath(filepath.Join(tmpDir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestContext_SetGet(t *testing.T) {
	ctx := &Context{}
	for _, kv := range [][2]string{
		{"base_url", "http://example.test/api"},
		{"timeout", "30"},
		{"locale", "en-US"},
		{"recognizer", "openai"},
		{"speaker", "openai"},
		{"speaker_command", "espeak-ng  -v {lang}"},
		{"player_command", "ffplay -nodisp -autoexit -"},
		{"cache_dir", "/tmp/v2v"},
		{"openai.api_key", "sk-1234567890abcdef"},
		{"openai.voice", "nova"},
	} {
		if err := ctx.Set(kv[0], kv[1]); err != nil {
			t.Fatalf("Set(%s): %v", kv[0], err)
		}
	}

	if ctx.Timeout != 30 || ctx.OpenAI.Voice != "nova" {
		t.Errorf("context = %+v", ctx)
	}
	if !slices.Equal(ctx.SpeakerCommand, []string{"espeak-ng", "-v", "{lang}"}) {
		t.Errorf("SpeakerCommand = %q", ctx.SpeakerCommand)
	}

	tests := map[string]string{
		"base_url":        "http://example.test/api",
		"timeout":         "30",
		"speaker_command": "espeak-ng -v {lang}",
		"openai.api_key":  "sk-1***********cdef",
		"openai.base_url": "",
	}
	for key, want := range tests {
		got, err := ctx.Get(key)
		if err != nil || got != want {
			t.Errorf("Get(%s) = %q, %v; want %q", key, got, err, want)
		}
	}

	if err := ctx.Set("timeout", "soon"); err == nil {
		t.Error("Set(timeout) should reject non-numbers")
	}
	if err := ctx.Set("colour", "red"); err == nil || !strings.Contains(err.Error(), "valid keys") {
		t.Errorf("Set(unknown) = %v", err)
	}
	if _, err := ctx.Get("colour"); err == nil {
		t.Error("Get(unknown) should fail")
	}
}

func TestContext_Masked(t *testing.T) {
	ctx := &Context{Name: "x", OpenAI: &OpenAISettings{APIKey: "sk-1234567890abcdef"}}
	m := ctx.Masked()
	if m.OpenAI.APIKey != "sk-1***********cdef" {
		t.Errorf("masked key = %q", m.OpenAI.APIKey)
	}
	if ctx.OpenAI.APIKey != "sk-1234567890abcdef" {
		t.Error("Masked modified the original")
	}
}
