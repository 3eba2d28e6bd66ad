package mirror_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/logging"
	"github.com/Flynatol/canvas-downloader/internal/mirror"
)

func writeWithMtime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestSelectKeepsMissingTargets(t *testing.T) {
	dir := t.TempDir()
	f := mirror.NewFilter(false, nil)

	kept := f.Select(dir, []canvas.File{{
		DisplayName: "week 1/notes.pdf",
		UpdatedAt:   "2026-01-10T08:00:00Z",
	}})
	if len(kept) != 1 {
		t.Fatalf("kept = %d, want 1", len(kept))
	}
	want := filepath.Join(dir, "week 1-notes.pdf")
	if kept[0].Path != want {
		t.Fatalf("path = %q, want %q", kept[0].Path, want)
	}
}

func TestSelectDropsLockedFiles(t *testing.T) {
	f := mirror.NewFilter(true, nil)
	kept := f.Select(t.TempDir(), []canvas.File{{
		DisplayName:   "hidden.pdf",
		UpdatedAt:     "2026-01-10T08:00:00Z",
		LockedForUser: true,
	}})
	if len(kept) != 0 {
		t.Fatalf("kept = %d, want 0", len(kept))
	}
}

func TestSelectDropsUnparsableTimestamps(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	f := mirror.NewFilter(true, logger)

	kept := f.Select(t.TempDir(), []canvas.File{{
		DisplayName: "odd.pdf",
		UpdatedAt:   "last tuesday",
	}})
	if len(kept) != 0 {
		t.Fatalf("kept = %d, want 0", len(kept))
	}
	if !strings.Contains(buf.String(), "unparsable timestamp") {
		t.Fatalf("expected a log line, got %q", buf.String())
	}
}

func TestSelectKeepsMissingTimestampWhenTargetAbsent(t *testing.T) {
	f := mirror.NewFilter(false, nil)
	kept := f.Select(t.TempDir(), []canvas.File{{DisplayName: "undated.pdf"}})
	if len(kept) != 1 {
		t.Fatalf("kept = %d, want 1", len(kept))
	}
}

func TestSelectSkipsCurrentLocalCopy(t *testing.T) {
	dir := t.TempDir()
	writeWithMtime(t, filepath.Join(dir, "notes.pdf"), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	f := mirror.NewFilter(true, nil)
	kept := f.Select(dir, []canvas.File{{
		DisplayName: "notes.pdf",
		UpdatedAt:   "2026-01-10T08:00:00Z",
	}})
	if len(kept) != 0 {
		t.Fatalf("kept = %d, want 0 (local copy is newer)", len(kept))
	}
}

func TestSelectUpdatePolicy(t *testing.T) {
	dir := t.TempDir()
	writeWithMtime(t, filepath.Join(dir, "notes.pdf"), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	remote := canvas.File{
		DisplayName: "notes.pdf",
		UpdatedAt:   "2026-03-01T08:00:00Z",
	}

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	conservative := mirror.NewFilter(false, logger)
	if kept := conservative.Select(dir, []canvas.File{remote}); len(kept) != 0 {
		t.Fatalf("policy off: kept = %d, want 0", len(kept))
	}
	if !strings.Contains(buf.String(), "update available") {
		t.Fatalf("expected update hint even with policy off, got %q", buf.String())
	}

	eager := mirror.NewFilter(true, nil)
	if kept := eager.Select(dir, []canvas.File{remote}); len(kept) != 1 {
		t.Fatalf("policy on: kept = %d, want 1", len(kept))
	}
}

func TestSelectMixedBatch(t *testing.T) {
	dir := t.TempDir()
	writeWithMtime(t, filepath.Join(dir, "stale.pdf"), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	writeWithMtime(t, filepath.Join(dir, "outdated.pdf"), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	f := mirror.NewFilter(true, nil)
	kept := f.Select(dir, []canvas.File{
		{ID: 1, DisplayName: "new.pdf", UpdatedAt: "2026-01-10T08:00:00Z"},
		{ID: 2, DisplayName: "stale.pdf", UpdatedAt: "2026-01-10T08:00:00Z"},
		{ID: 3, DisplayName: "outdated.pdf", UpdatedAt: "2026-03-01T08:00:00Z"},
	})
	if len(kept) != 2 {
		t.Fatalf("kept = %+v, want the missing and the outdated file", kept)
	}
	if kept[0].ID != 1 || kept[1].ID != 3 {
		t.Fatalf("kept ids = %d, %d, want 1 and 3", kept[0].ID, kept[1].ID)
	}
}

func TestSelectFirstWinsWithinBatch(t *testing.T) {
	f := mirror.NewFilter(false, nil)
	kept := f.Select(t.TempDir(), []canvas.File{
		{ID: 1, DisplayName: "dup.pdf", UpdatedAt: "2026-01-10T08:00:00Z"},
		{ID: 2, DisplayName: "dup.pdf", UpdatedAt: "2026-01-12T08:00:00Z"},
	})
	if len(kept) != 1 {
		t.Fatalf("kept = %d, want 1", len(kept))
	}
	if kept[0].ID != 1 {
		t.Fatalf("first entry must win, got id %d", kept[0].ID)
	}
}
