package crawl_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Flynatol/canvas-downloader/internal/crawl"
	"github.com/Flynatol/canvas-downloader/internal/logging"
)

func TestWaitReturnsAfterFanOutDrains(t *testing.T) {
	tracker := crawl.NewTracker()
	sched := crawl.NewScheduler(context.Background(), tracker, logging.NewNop())

	var ran atomic.Int64
	release := tracker.Hold()
	for i := 0; i < 3; i++ {
		sched.Go("root", func(ctx context.Context) error {
			for j := 0; j < 2; j++ {
				sched.Go("child", func(ctx context.Context) error {
					ran.Add(1)
					return nil
				})
			}
			ran.Add(1)
			return nil
		})
	}
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracker.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := ran.Load(); got != 9 {
		t.Fatalf("tasks ran = %d, want 9", got)
	}
	if tracker.Count() != 0 {
		t.Fatalf("count = %d after Wait", tracker.Count())
	}
}

func TestHoldPreventsEarlyWake(t *testing.T) {
	tracker := crawl.NewTracker()
	release := tracker.Hold()

	// A full task lifecycle while the hold is in place must not produce a
	// wake token.
	tracker.Begin()
	tracker.Finish()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := tracker.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait with hold in place: err = %v, want deadline exceeded", err)
	}

	release()
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := tracker.Wait(ctx2); err != nil {
		t.Fatalf("Wait after release: %v", err)
	}
}

func TestHoldReleaseIsIdempotent(t *testing.T) {
	tracker := crawl.NewTracker()
	release := tracker.Hold()
	release()
	release()
	if tracker.Count() != 0 {
		t.Fatalf("count = %d, want 0", tracker.Count())
	}
}

func TestTwoPhasesWaitOnSameTracker(t *testing.T) {
	tracker := crawl.NewTracker()
	sched := crawl.NewScheduler(context.Background(), tracker, logging.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for phase := 0; phase < 2; phase++ {
		release := tracker.Hold()
		for i := 0; i < 4; i++ {
			sched.Go("task", func(ctx context.Context) error { return nil })
		}
		release()
		if err := tracker.Wait(ctx); err != nil {
			t.Fatalf("phase %d Wait: %v", phase, err)
		}
		if tracker.Count() != 0 {
			t.Fatalf("phase %d count = %d", phase, tracker.Count())
		}
	}
}

func TestFinishBelowZeroPanics(t *testing.T) {
	tracker := crawl.NewTracker()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when retiring more tasks than registered")
		}
	}()
	tracker.Finish()
}

func TestSchedulerLogsTaskFailure(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "error", Format: "console", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	tracker := crawl.NewTracker()
	sched := crawl.NewScheduler(context.Background(), tracker, logger)

	release := tracker.Hold()
	sched.Go("folders", func(ctx context.Context) error {
		return errors.New("listing failed")
	})
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracker.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "task failed") || !strings.Contains(out, "folders") {
		t.Fatalf("log output = %q", out)
	}
}
