package panopto

import (
	"context"
	"log/slog"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/crawl"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/mirror"
)

// Env carries what every video task needs. One Env serves a whole run; the
// per-course cookie state lives in the walker the launch hands back.
type Env struct {
	Client *canvas.Client
	Sched  *crawl.Scheduler
	Filter *mirror.Filter
	Acc    *mirror.Accumulator

	// ToolID is the Canvas external tool number the LTI launch returns to.
	ToolID int

	logger *slog.Logger
}

// NewEnv wires a video discovery environment.
func NewEnv(client *canvas.Client, sched *crawl.Scheduler, filter *mirror.Filter, acc *mirror.Accumulator, toolID int, logger *slog.Logger) *Env {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Env{
		Client: client,
		Sched:  sched,
		Filter: filter,
		Acc:    acc,
		ToolID: toolID,
		logger: logging.NewComponentLogger(logger, logging.ComponentPanopto),
	}
}

// Course spawns the video mirror root for one course. The task performs the
// LTI launch and walks the root folder; courses without a Panopto tool fail
// the launch and contribute nothing.
func (e *Env) Course(course canvas.Course, dir string) {
	e.Sched.Go("videos "+course.CourseCode, func(ctx context.Context) error {
		if err := fileutil.EnsureDir(dir); err != nil {
			return err
		}
		w, rootID, err := e.launch(ctx, course.ID)
		if err != nil {
			return err
		}
		return w.folder(ctx, rootID, dir)
	})
}

// collect runs candidates through the change filter and stores the keepers.
func (e *Env) collect(dir string, files []canvas.File) {
	kept := e.Filter.Select(dir, files)
	if len(kept) > 0 {
		e.Acc.Add(kept...)
	}
}
