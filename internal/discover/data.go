package discover

import (
	"context"
	"path/filepath"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
)

// data spawns one task per content surface of a course. Each surface gets
// its own directory so a permission failure on one leaves the others intact.
func (e *Env) data(ctx context.Context, course canvas.Course, dir string) error {
	surfaces := []struct {
		subdir string
		spawn  func(dir string)
	}{
		{"assignments", func(d string) {
			e.Sched.Go("assignments", func(ctx context.Context) error {
				return e.assignments(ctx, course.ID, d)
			})
		}},
		{"discussions", func(d string) {
			e.Sched.Go("discussions", func(ctx context.Context) error {
				return e.discussions(ctx, course.ID, false, d)
			})
		}},
		{"announcements", func(d string) {
			e.Sched.Go("announcements", func(ctx context.Context) error {
				return e.discussions(ctx, course.ID, true, d)
			})
		}},
		{"modules", func(d string) {
			e.Sched.Go("modules", func(ctx context.Context) error {
				return e.modules(ctx, course.ID, d)
			})
		}},
		{"pages", func(d string) {
			e.Sched.Go("pages", func(ctx context.Context) error {
				return e.pages(ctx, course.ID, d)
			})
		}},
	}

	for _, surface := range surfaces {
		sub := filepath.Join(dir, surface.subdir)
		if err := fileutil.EnsureDir(sub); err != nil {
			return err
		}
		surface.spawn(sub)
	}

	usersPath := filepath.Join(dir, "users.json")
	e.Sched.Go("users", func(ctx context.Context) error {
		return e.users(ctx, course.ID, usersPath)
	})
	return nil
}
