package cli

import (
	"os"
	"path/filepath"
)

// Paths provides access to the v2v directory layout under the home
// directory.
type Paths struct {
	HomeDir string
}

// NewPaths returns the layout for the current user.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the base directory (~/.v2v)
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the config file path (~/.v2v/config.yaml)
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// CacheDir returns the cache directory (~/.v2v/cache)
func (p *Paths) CacheDir() string {
	return filepath.Join(p.BaseDir(), "cache")
}

// SpeechCacheDir returns the synthesized speech store (~/.v2v/cache/tts)
func (p *Paths) SpeechCacheDir() string {
	return filepath.Join(p.CacheDir(), "tts")
}

// EnsureCacheDir creates the cache directory if it doesn't exist
func (p *Paths) EnsureCacheDir() error {
	return os.MkdirAll(p.CacheDir(), 0755)
}
