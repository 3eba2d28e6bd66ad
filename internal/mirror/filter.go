package mirror

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/textutil"
)

// Filter decides which discovered files need downloading.
type Filter struct {
	// DownloadNewer re-downloads files whose remote copy is newer than the
	// local one. When false the filter only reports the available update.
	DownloadNewer bool

	logger *slog.Logger
}

// NewFilter builds a filter with the given update policy.
func NewFilter(downloadNewer bool, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Filter{
		DownloadNewer: downloadNewer,
		logger:        logging.NewComponentLogger(logger, logging.ComponentMirror),
	}
}

// Select assigns every candidate its local target under dir and keeps the
// ones worth downloading:
//
//   - files locked for the user are dropped;
//   - files with an unparsable remote timestamp are dropped and logged;
//   - files without a remote timestamp are kept;
//   - missing local targets are kept;
//   - existing targets are kept only when the remote copy is newer and the
//     update policy allows it. An available update is logged either way.
//
// When one batch maps two names onto the same target, the first one wins.
func (f *Filter) Select(dir string, files []canvas.File) []canvas.File {
	kept := files[:0:0]
	taken := make(map[string]struct{}, len(files))

	for _, file := range files {
		file.Path = filepath.Join(dir, textutil.SanitizeFileName(file.DisplayName))

		if file.LockedForUser {
			continue
		}

		var remote time.Time
		if file.UpdatedAt != "" {
			parsed, err := time.Parse(time.RFC3339, file.UpdatedAt)
			if err != nil {
				f.logger.Warn("skipping file with unparsable timestamp",
					logging.String(logging.FieldPath, file.Path),
					logging.String("updated_at", file.UpdatedAt))
				continue
			}
			remote = parsed
		}

		if fileutil.Exists(file.Path) {
			if remote.IsZero() {
				continue
			}
			local, err := fileutil.ModTime(file.Path)
			if err != nil || !local.Before(remote) {
				continue
			}
			f.logger.Info("update available",
				logging.String(logging.FieldPath, file.Path),
				logging.Bool("download_newer", f.DownloadNewer))
			if !f.DownloadNewer {
				continue
			}
		}

		if _, dup := taken[file.Path]; dup {
			continue
		}
		taken[file.Path] = struct{}{}
		kept = append(kept, file)
	}
	return kept
}
