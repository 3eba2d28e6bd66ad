package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/Flynatol/canvas-downloader/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Canvas.BaseURL = "https://canvas.test"
	cfg.Canvas.Token = "test-token"
	cfg.Mirror.Destination = filepath.Join(base, "mirror")
	cfg.Ledger.Path = filepath.Join(base, "history.db")
	return &cfg
}
