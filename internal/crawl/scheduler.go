package crawl

import (
	"context"
	"log/slog"

	"github.com/Flynatol/canvas-downloader/internal/logging"
)

// Scheduler launches tracked tasks. A task may spawn further tasks through
// the same scheduler, but only before it returns; the synchronous Begin in Go
// is what keeps the tracker's count honest across the fan-out.
type Scheduler struct {
	ctx     context.Context
	tracker *Tracker
	logger  *slog.Logger
}

// NewScheduler binds a scheduler to the run context. Tasks receive ctx and
// should stop early when it is cancelled.
func NewScheduler(ctx context.Context, tracker *Tracker, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		ctx:     ctx,
		tracker: tracker,
		logger:  logging.NewComponentLogger(logger, logging.ComponentCrawl),
	}
}

// Go runs fn as a tracked task on its own goroutine. Task errors are logged
// and swallowed: one inaccessible course tab must not stop the rest of the
// mirror.
func (s *Scheduler) Go(name string, fn func(ctx context.Context) error) {
	s.tracker.Begin()
	go func() {
		if err := fn(s.ctx); err != nil {
			s.logger.Error("task failed",
				logging.String(logging.FieldTask, name),
				logging.Error(err))
		}
		s.tracker.Finish()
	}()
}

// Tracker returns the scheduler's tracker for phase coordination.
func (s *Scheduler) Tracker() *Tracker {
	return s.tracker
}
