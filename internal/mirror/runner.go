package mirror

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/crawl"
	"github.com/Flynatol/canvas-downloader/internal/gate"
	"github.com/Flynatol/canvas-downloader/internal/logging"
)

// Stats summarizes one mirror run.
type Stats struct {
	// Files holds every candidate that entered the download phase, in
	// discovery order.
	Files      []canvas.File
	Downloaded int
	Failed     int
}

// Runner coordinates the two phases of a run on a single tracker: discovery
// until quiescence, then downloads until quiescence. After the second
// barrier the gate is closed, so any straggler task that survived the
// accounting panics instead of racing the shutdown.
type Runner struct {
	Sched *crawl.Scheduler
	Gate  *gate.Gate
	Acc   *Accumulator

	// Download fetches one candidate to its target path. It runs as a
	// tracked task; failures are counted and logged, never fatal.
	Download func(ctx context.Context, file canvas.File) error

	// BeginDownloads, when set, observes the sealed candidate list before
	// the download tasks spawn. The CLI points it at the progress bar.
	BeginDownloads func(files []canvas.File)

	Logger *slog.Logger
}

// Run spawns the discovery roots, waits for the crawl to drain, then
// downloads every collected candidate and waits again.
func (r *Runner) Run(ctx context.Context, spawnRoots func()) (Stats, error) {
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, logging.ComponentMirror)
	tracker := r.Sched.Tracker()

	release := tracker.Hold()
	spawnRoots()
	release()
	if err := tracker.Wait(ctx); err != nil {
		return Stats{}, err
	}

	files := r.Acc.Seal()
	logger.Info("discovery finished", logging.Int(logging.FieldCount, len(files)))
	if r.BeginDownloads != nil {
		r.BeginDownloads(files)
	}

	var downloaded, failed atomic.Int64
	release = tracker.Hold()
	for _, file := range files {
		r.Sched.Go("download "+file.DisplayName, func(ctx context.Context) error {
			if err := r.Download(ctx, file); err != nil {
				failed.Add(1)
				return err
			}
			downloaded.Add(1)
			return nil
		})
	}
	release()
	if err := tracker.Wait(ctx); err != nil {
		return Stats{}, err
	}

	r.Gate.Close()
	if n := tracker.Count(); n != 0 {
		panic("mirror: tracker reports active tasks after final barrier")
	}

	return Stats{
		Files:      files,
		Downloaded: int(downloaded.Load()),
		Failed:     int(failed.Load()),
	}, nil
}
