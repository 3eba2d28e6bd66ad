package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Canvas contains the API endpoint and credentials.
type Canvas struct {
	BaseURL   string `toml:"base_url"`
	Token     string `toml:"token"`
	TokenFile string `toml:"token_file"`
}

// Mirror controls what gets mirrored and where.
type Mirror struct {
	Destination   string  `toml:"destination"`
	DownloadNewer bool    `toml:"download_newer"`
	TermIDs       []int64 `toml:"term_ids"`
	CourseIDs     []int64 `toml:"course_ids"`
}

// HTTP bounds outbound calls: slot count, per-call timeout, retry budget.
type HTTP struct {
	Concurrency    int `toml:"concurrency"`
	RequestTimeout int `toml:"request_timeout"`
	Retries        int `toml:"retries"`
}

// Videos configures the Panopto mirroring pipeline.
type Videos struct {
	Enabled        bool `toml:"enabled"`
	ExternalToolID int  `toml:"external_tool_id"`
}

// Ledger configures the SQLite run history.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the downloader.
//
// Configuration sections by subsystem:
//   - Canvas: API endpoint and bearer token resolution
//   - Mirror: destination tree, update policy, term/course filters
//   - HTTP: admission slots, per-call timeout, retry budget
//   - Videos: Panopto external tool settings
//   - Ledger: run history database
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Canvas        Canvas        `toml:"canvas"`
	Mirror        Mirror        `toml:"mirror"`
	HTTP          HTTP          `toml:"http"`
	Videos        Videos        `toml:"videos"`
	Ledger        Ledger        `toml:"ledger"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/canvas-downloader/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and the bearer token resolved.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("canvas-downloader.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the destination tree and the ledger directory.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Mirror.Destination) != "" {
		if err := os.MkdirAll(c.Mirror.Destination, 0o755); err != nil {
			return fmt.Errorf("create destination %q: %w", c.Mirror.Destination, err)
		}
	}
	if c.Ledger.Enabled && strings.TrimSpace(c.Ledger.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.Ledger.Path), 0o755); err != nil {
			return fmt.Errorf("create ledger directory %q: %w", filepath.Dir(c.Ledger.Path), err)
		}
	}
	return nil
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
