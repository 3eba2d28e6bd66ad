package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/config"
	"github.com/Flynatol/canvas-downloader/internal/crawl"
	"github.com/Flynatol/canvas-downloader/internal/discover"
	"github.com/Flynatol/canvas-downloader/internal/download"
	"github.com/Flynatol/canvas-downloader/internal/fileutil"
	"github.com/Flynatol/canvas-downloader/internal/gate"
	"github.com/Flynatol/canvas-downloader/internal/ledger"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/mirror"
	"github.com/Flynatol/canvas-downloader/internal/notifications"
	"github.com/Flynatol/canvas-downloader/internal/panopto"
)

const lockFileName = ".canvas-downloader.lock"

func newFetchCommand(cctx *commandContext) *cobra.Command {
	var destination string
	var downloadNewer bool
	var termIDs []int64
	var courseIDs []int64

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Mirror the configured courses into the destination directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			if destination != "" {
				expanded, err := config.ExpandPath(destination)
				if err != nil {
					return fmt.Errorf("resolve destination: %w", err)
				}
				cfg.Mirror.Destination = expanded
			}
			if downloadNewer {
				cfg.Mirror.DownloadNewer = true
			}
			if len(termIDs) > 0 {
				cfg.Mirror.TermIDs = termIDs
			}
			if len(courseIDs) > 0 {
				cfg.Mirror.CourseIDs = courseIDs
			}
			return runFetch(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Directory to mirror into (overrides the config)")
	cmd.Flags().BoolVarP(&downloadNewer, "newer", "n", false, "Re-download files whose remote copy is newer")
	cmd.Flags().Int64SliceVarP(&termIDs, "term", "t", nil, "Enrollment term IDs to mirror (repeatable)")
	cmd.Flags().Int64SliceVar(&courseIDs, "courses", nil, "Explicit course IDs to mirror")

	return cmd
}

func runFetch(cmd *cobra.Command, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	// One mirror per destination; a second fetch would race the first over
	// temp files and mtime stamps.
	lock := flock.New(filepath.Join(cfg.Mirror.Destination, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire mirror lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another fetch is already mirroring %s", cfg.Mirror.Destination)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("could not release mirror lock", logging.Error(err))
		}
	}()

	client, g := newCanvasClient(cfg, logger)

	user, err := fetchUser(ctx, client)
	if err != nil {
		return err
	}
	logger.Info("authenticated", logging.String("user", user.Name))

	courses, err := fetchCourses(ctx, client)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(cfg.Mirror.TermIDs) == 0 && len(cfg.Mirror.CourseIDs) == 0 {
		fmt.Fprintln(out, "No term IDs selected; pass them with -t or set mirror.term_ids.")
		fmt.Fprintln(out, renderTermTable(courses))
		return nil
	}

	selected := selectCourses(courses, cfg.Mirror.TermIDs, cfg.Mirror.CourseIDs)
	if len(selected) == 0 {
		fmt.Fprintf(out, "No favorite course matches term IDs %v; try one of these instead:\n", cfg.Mirror.TermIDs)
		fmt.Fprintln(out, renderTermTable(courses))
		return nil
	}

	fmt.Fprintln(out, "Courses found:")
	for _, course := range selected {
		fmt.Fprintf(out, "  * %s - %s\n", course.CourseCode, course.Name)
	}

	return mirrorCourses(ctx, cmd, cfg, logger, g, client, user, selected)
}

// mirrorCourses drives one full run: spawn the discovery roots for every
// selected course, let the runner drain both phases, then settle the ledger
// row, notifications, and the terminal summary.
func mirrorCourses(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, g *gate.Gate, client *canvas.Client, user canvas.User, courses []canvas.Course) error {
	out := cmd.OutOrStdout()

	var store *ledger.Store
	var run *ledger.Run
	if cfg.Ledger.Enabled {
		s, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
		defer s.Close()
		r, err := s.BeginRun(ctx, cfg.Mirror.Destination)
		if err != nil {
			return fmt.Errorf("record run start: %w", err)
		}
		store, run = s, r
		logger = logger.With(logging.String(logging.FieldRunID, run.ID))
	}

	notifier := notifications.NewService(cfg)
	if err := notifier.NotifyRunStarted(ctx, len(courses)); err != nil {
		logger.Warn("run-start notification failed", logging.Error(err))
	}

	tracker := crawl.NewTracker()
	sched := crawl.NewScheduler(ctx, tracker, logger)
	acc := mirror.NewAccumulator()
	filter := mirror.NewFilter(cfg.Mirror.DownloadNewer, logger)

	disc := discover.NewEnv(client, sched, filter, acc, user, logger)
	var videos *panopto.Env
	if cfg.Videos.Enabled {
		videos = panopto.NewEnv(client, sched, filter, acc, cfg.Videos.ExternalToolID, logger)
	}

	progress := download.NewProgress(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()))
	engine := download.NewEngine(g, cfg.Canvas.Token, progress, logger)

	var bytesDownloaded atomic.Int64
	runner := &mirror.Runner{
		Sched: sched,
		Gate:  g,
		Acc:   acc,
		Download: func(ctx context.Context, file canvas.File) error {
			written, err := engine.Fetch(ctx, file)
			bytesDownloaded.Add(written)
			if store != nil {
				if recErr := store.RecordDownload(ctx, run.ID, file.Path, file.URL, written, err); recErr != nil {
					logger.Warn("could not record download",
						logging.String(logging.FieldPath, file.Path),
						logging.Error(recErr))
				}
			}
			return err
		},
		BeginDownloads: progress.Begin,
		Logger:         logger,
	}

	started := time.Now()
	stats, runErr := runner.Run(ctx, func() {
		for _, course := range courses {
			courseDir := filepath.Join(cfg.Mirror.Destination, courseDirName(course.CourseCode))
			if err := fileutil.EnsureDir(courseDir); err != nil {
				logger.Error("could not create course directory",
					logging.String(logging.FieldCourse, course.CourseCode),
					logging.Error(err))
				continue
			}
			disc.Course(course, courseDir)
			if videos != nil {
				videos.Course(course, filepath.Join(courseDir, "videos"))
			}
		}
	})
	progress.Finish()

	if store != nil {
		run.Courses = int64(len(courses))
		run.Candidates = int64(len(stats.Files))
		run.Downloaded = int64(stats.Downloaded)
		run.Failed = int64(stats.Failed)
		run.Bytes = bytesDownloaded.Load()
		run.Status = ledger.RunCompleted
		if runErr != nil {
			run.Status = ledger.RunFailed
		}
		// The run row is closed even when the crawl was cancelled, so the
		// settle uses a fresh context.
		if err := store.FinishRun(context.Background(), run); err != nil {
			logger.Warn("could not record run end", logging.Error(err))
		}
	}

	if runErr != nil {
		if err := notifier.NotifyError(context.Background(), runErr, "fetch"); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
		return runErr
	}

	elapsed := time.Since(started)
	if err := notifier.NotifyRunCompleted(ctx, stats.Downloaded, stats.Failed, bytesDownloaded.Load(), elapsed); err != nil {
		logger.Warn("run-end notification failed", logging.Error(err))
	}

	logger.Info("mirror run finished",
		logging.Int(logging.FieldCount, stats.Downloaded),
		logging.Int64(logging.FieldBytes, bytesDownloaded.Load()))
	fmt.Fprintf(out, "Downloaded %d files (%s) to %s\n",
		stats.Downloaded, humanize.Bytes(uint64(bytesDownloaded.Load())), cfg.Mirror.Destination)
	if stats.Failed > 0 {
		fmt.Fprintf(out, "%d downloads failed and will be retried on the next run\n", stats.Failed)
	}
	return nil
}
