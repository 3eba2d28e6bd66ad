package discover

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/crawl"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/gate"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/mirror"
)

// Env carries everything a discovery task needs. One Env serves a whole run.
type Env struct {
	Client *canvas.Client
	Sched  *crawl.Scheduler
	Filter *mirror.Filter
	Acc    *mirror.Accumulator
	User   canvas.User

	logger *slog.Logger
}

// NewEnv wires a discovery environment.
func NewEnv(client *canvas.Client, sched *crawl.Scheduler, filter *mirror.Filter, acc *mirror.Accumulator, user canvas.User, logger *slog.Logger) *Env {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Env{
		Client: client,
		Sched:  sched,
		Filter: filter,
		Acc:    acc,
		User:   user,
		logger: logging.NewComponentLogger(logger, logging.ComponentDiscover),
	}
}

// Course spawns the discovery roots for one course: the file tree under
// files/ and the content surfaces (assignments, discussions, announcements,
// modules, pages, roster) under the course directory itself.
func (e *Env) Course(course canvas.Course, dir string) {
	filesDir := filepath.Join(dir, "files")
	e.Sched.Go("folders "+course.CourseCode, func(ctx context.Context) error {
		if err := fileutil.EnsureDir(filesDir); err != nil {
			return err
		}
		return e.folders(ctx, e.Client.URL("/courses/%d/folders/by_path/", course.ID), filesDir)
	})
	e.Sched.Go("data "+course.CourseCode, func(ctx context.Context) error {
		return e.data(ctx, course, dir)
	})
}

// collect runs candidates through the change filter and stores the keepers.
func (e *Env) collect(dir string, files []canvas.File) {
	kept := e.Filter.Select(dir, files)
	if len(kept) > 0 {
		e.Acc.Add(kept...)
	}
}

// dumpPages concatenates raw page bodies into one file, mirroring exactly
// what Canvas sent. The file is created even when the listing is empty.
func dumpPages(path string, pages []*gate.Response) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("discover: create %s: %w", path, err)
	}
	for _, pg := range pages {
		if _, err := f.Write(pg.Body); err != nil {
			f.Close()
			return fmt.Errorf("discover: write %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("discover: close %s: %w", path, err)
	}
	return nil
}

func dumpBody(path string, body []byte) error {
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("discover: write %s: %w", path, err)
	}
	return nil
}
