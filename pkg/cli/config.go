package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the configuration directory under the home
	// directory.
	DefaultBaseDir = ".v2v"
	// DefaultConfigFile is the configuration filename.
	DefaultConfigFile = "config.yaml"
	// EnvConfig overrides the configuration file path.
	EnvConfig = "V2V_CONFIG"
)

// Config is the v2v configuration file: a set of named contexts, one of
// which is current, in the manner of kubectl.
type Config struct {
	// CurrentContext is the name of the currently active context
	CurrentContext string `json:"current_context,omitempty" yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `json:"contexts,omitempty" yaml:"contexts,omitempty"`

	configPath string
}

// Context is one backend and device setup.
type Context struct {
	Name string `json:"name" yaml:"name"`

	// BaseURL is the chat backend API base URL.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Timeout bounds each backend request, in seconds. Zero means no
	// timeout.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Locale for recognition and synthesis, e.g. "ru-RU".
	Locale string `json:"locale,omitempty" yaml:"locale,omitempty"`

	// Recognizer and Speaker name the speech backends (see speech.Mux).
	Recognizer string `json:"recognizer,omitempty" yaml:"recognizer,omitempty"`
	Speaker    string `json:"speaker,omitempty" yaml:"speaker,omitempty"`

	// SpeakerCommand is the TTS program for the command speaker.
	SpeakerCommand []string `json:"speaker_command,omitempty" yaml:"speaker_command,omitempty"`

	// PlayerCommand plays MP3 from stdin for the openai speaker.
	PlayerCommand []string `json:"player_command,omitempty" yaml:"player_command,omitempty"`

	// CacheDir holds the synthesized speech cache.
	CacheDir string `json:"cache_dir,omitempty" yaml:"cache_dir,omitempty"`

	OpenAI *OpenAISettings `json:"openai,omitempty" yaml:"openai,omitempty"`
}

// OpenAISettings configures the OpenAI speech backends.
type OpenAISettings struct {
	APIKey             string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL            string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Voice              string `json:"voice,omitempty" yaml:"voice,omitempty"`
	SpeechModel        string `json:"speech_model,omitempty" yaml:"speech_model,omitempty"`
	TranscriptionModel string `json:"transcription_model,omitempty" yaml:"transcription_model,omitempty"`
}

// ContextKeys lists the keys accepted by Context.Set and Context.Get.
var ContextKeys = []string{
	"base_url",
	"timeout",
	"locale",
	"recognizer",
	"speaker",
	"speaker_command",
	"player_command",
	"cache_dir",
	"openai.api_key",
	"openai.base_url",
	"openai.voice",
	"openai.speech_model",
	"openai.transcription_model",
}

// DefaultConfigPath returns $V2V_CONFIG, or ~/.v2v/config.yaml.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	paths, err := NewPaths()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return paths.ConfigFile(), nil
}

// LoadConfig loads the configuration from the default path.
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath("")
}

// LoadConfigWithPath loads the configuration from path, or the default
// path if empty. A missing file yields an empty configuration; nothing is
// written until Save.
func LoadConfigWithPath(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			ctx = &Context{}
			cfg.Contexts[name] = ctx
		}
		ctx.Name = name
	}
	cfg.configPath = path
	return cfg, nil
}

// Save writes the configuration to disk, creating its directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds or replaces a context. The first context added becomes
// current.
func (c *Config) AddContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// GetCurrentContext returns the current context
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}
	return c.GetContext(c.CurrentContext)
}

// ResolveContext returns the named context, else the current one, else an
// empty context so that defaults apply.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name != "" {
		return c.GetContext(name)
	}
	if c.CurrentContext == "" {
		return &Context{}, nil
	}
	return c.GetCurrentContext()
}

// ListContexts returns all context names, sorted.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (ctx *Context) openai() *OpenAISettings {
	if ctx.OpenAI == nil {
		ctx.OpenAI = &OpenAISettings{}
	}
	return ctx.OpenAI
}

// Set assigns a setting by key (one of ContextKeys). Command settings are
// split on whitespace.
func (ctx *Context) Set(key, value string) error {
	switch key {
	case "base_url":
		ctx.BaseURL = value
	case "timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("timeout must be a non-negative number of seconds, got %q", value)
		}
		ctx.Timeout = n
	case "locale":
		ctx.Locale = value
	case "recognizer":
		ctx.Recognizer = value
	case "speaker":
		ctx.Speaker = value
	case "speaker_command":
		ctx.SpeakerCommand = strings.Fields(value)
	case "player_command":
		ctx.PlayerCommand = strings.Fields(value)
	case "cache_dir":
		ctx.CacheDir = value
	case "openai.api_key":
		ctx.openai().APIKey = value
	case "openai.base_url":
		ctx.openai().BaseURL = value
	case "openai.voice":
		ctx.openai().Voice = value
	case "openai.speech_model":
		ctx.openai().SpeechModel = value
	case "openai.transcription_model":
		ctx.openai().TranscriptionModel = value
	default:
		return fmt.Errorf("unknown key %q (valid keys: %s)", key, strings.Join(ContextKeys, ", "))
	}
	return nil
}

// Get returns a setting by key (one of ContextKeys). API keys are masked.
func (ctx *Context) Get(key string) (string, error) {
	oa := ctx.OpenAI
	if oa == nil {
		oa = &OpenAISettings{}
	}
	switch key {
	case "base_url":
		return ctx.BaseURL, nil
	case "timeout":
		if ctx.Timeout == 0 {
			return "", nil
		}
		return strconv.Itoa(ctx.Timeout), nil
	case "locale":
		return ctx.Locale, nil
	case "recognizer":
		return ctx.Recognizer, nil
	case "speaker":
		return ctx.Speaker, nil
	case "speaker_command":
		return strings.Join(ctx.SpeakerCommand, " "), nil
	case "player_command":
		return strings.Join(ctx.PlayerCommand, " "), nil
	case "cache_dir":
		return ctx.CacheDir, nil
	case "openai.api_key":
		return MaskAPIKey(oa.APIKey), nil
	case "openai.base_url":
		return oa.BaseURL, nil
	case "openai.voice":
		return oa.Voice, nil
	case "openai.speech_model":
		return oa.SpeechModel, nil
	case "openai.transcription_model":
		return oa.TranscriptionModel, nil
	default:
		return "", fmt.Errorf("unknown key %q (valid keys: %s)", key, strings.Join(ContextKeys, ", "))
	}
}

// Masked returns a copy of the context safe for display.
func (ctx *Context) Masked() *Context {
	c := *ctx
	if ctx.OpenAI != nil {
		oa := *ctx.OpenAI
		oa.APIKey = MaskAPIKey(oa.APIKey)
		c.OpenAI = &oa
	}
	return &c
}

// MaskAPIKey masks the API key for display
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
