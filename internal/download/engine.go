package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/gate"
	"github.com/Flynatol/canvas-downloader/internal/logging"
)

// Engine downloads filtered candidates. Downloads stream through the
// admission gate like every other request but are never retried; a failed
// file surfaces in the run summary and is picked up again next run.
type Engine struct {
	gate     *gate.Gate
	token    string
	progress *Progress
	logger   *slog.Logger
}

// NewEngine builds an engine. The bearer token rides along on every file
// request; Canvas file URLs require it even when they point at the CDN.
func NewEngine(g *gate.Gate, token string, progress *Progress, logger *slog.Logger) *Engine {
	if progress == nil {
		progress = &Progress{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		gate:     g,
		token:    token,
		progress: progress,
		logger:   logging.NewComponentLogger(logger, logging.ComponentDownload),
	}
}

// Progress returns the engine's progress renderer so the run coordinator can
// open and close the bar around the download phase.
func (e *Engine) Progress() *Progress {
	return e.progress
}

// Fetch downloads file.URL to file.Path and returns the number of bytes
// written. The write is atomic: stream to a temp file beside the target,
// stamp the remote mtime, rename into place. A failed stream removes the
// temp file and leaves any existing target untouched.
func (e *Engine) Fetch(ctx context.Context, file canvas.File) (int64, error) {
	dir := filepath.Dir(file.Path)
	if err := fileutil.EnsureDir(dir); err != nil {
		return 0, err
	}
	tmp := fileutil.TempPath(dir, file.DisplayName)

	written, err := e.stream(ctx, file, tmp)
	if err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			e.logger.Warn("could not remove temp file",
				logging.String(logging.FieldPath, tmp),
				logging.Error(rmErr))
		}
		return 0, err
	}

	// Stamping the mtime before the rename keeps the committed file's time
	// consistent with what the change filter will compare next run. Failure
	// costs one redundant re-check, not the file.
	if file.UpdatedAt != "" {
		if ts, parseErr := time.Parse(time.RFC3339, file.UpdatedAt); parseErr == nil {
			if err := fileutil.SetModTime(tmp, ts); err != nil {
				e.logger.Warn("could not set file time",
					logging.String(logging.FieldPath, tmp),
					logging.Error(err))
			}
		}
	}

	if err := os.Rename(tmp, file.Path); err != nil {
		return 0, fmt.Errorf("download: commit %s: %w", file.Path, err)
	}

	e.logger.Debug("downloaded",
		logging.String(logging.FieldPath, file.Path),
		logging.Int64(logging.FieldBytes, written))
	return written, nil
}

func (e *Engine) stream(ctx context.Context, file canvas.File, tmp string) (int64, error) {
	req, err := http.NewRequest(http.MethodGet, file.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("download: build request for %s: %w", file.DisplayName, err)
	}
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.gate.Stream(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("download: %s: unexpected status %d", file.DisplayName, resp.StatusCode)
	}

	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("download: create temp file for %s: %w", file.DisplayName, err)
	}

	written, copyErr := io.Copy(io.MultiWriter(out, e.progress.Track(file, resp.ContentLength)), resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return written, fmt.Errorf("download: stream %s: %w", file.DisplayName, copyErr)
	}
	if closeErr != nil {
		return written, fmt.Errorf("download: flush %s: %w", tmp, closeErr)
	}
	return written, nil
}
