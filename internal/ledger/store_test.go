package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Flynatol/canvas-downloader/internal/ledger"
	"github.com/Flynatol/canvas-downloader/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, cfg.Mirror.Destination)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected a run ID")
	}
	if run.Status != ledger.RunRunning {
		t.Fatalf("status = %q, want running", run.Status)
	}

	run.Courses = 3
	run.Candidates = 10
	run.Downloaded = 9
	run.Failed = 1
	run.Bytes = 52_428_800
	run.Status = ledger.RunCompleted
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	fetched, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if fetched.Status != ledger.RunCompleted {
		t.Errorf("status = %q", fetched.Status)
	}
	if fetched.FinishedAt == nil {
		t.Error("finished_at not recorded")
	}
	if fetched.Downloaded != 9 || fetched.Failed != 1 || fetched.Courses != 3 || fetched.Candidates != 10 {
		t.Errorf("counters = %+v", fetched)
	}
	if fetched.Bytes != 52_428_800 {
		t.Errorf("bytes = %d, want 52428800", fetched.Bytes)
	}
	if fetched.Destination != cfg.Mirror.Destination {
		t.Errorf("destination = %q", fetched.Destination)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	first, err := store.BeginRun(ctx, cfg.Mirror.Destination)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	second, err := store.BeginRun(ctx, cfg.Mirror.Destination)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Fatalf("order = [%s, %s], want newest first", runs[0].ID, runs[1].ID)
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("limited = %+v", limited)
	}
}

func TestGetRunMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	_, err := store.GetRun(context.Background(), "no-such-run")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordDownloadOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, cfg.Mirror.Destination)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	if err := store.RecordDownload(ctx, run.ID, "/m/a.pdf", "https://cdn/a", 1234, nil); err != nil {
		t.Fatalf("RecordDownload ok: %v", err)
	}
	if err := store.RecordDownload(ctx, run.ID, "/m/b.pdf", "https://cdn/b", 0, errors.New("status 404")); err != nil {
		t.Fatalf("RecordDownload failed: %v", err)
	}

	downloads, err := store.RunDownloads(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunDownloads: %v", err)
	}
	if len(downloads) != 2 {
		t.Fatalf("downloads = %d, want 2", len(downloads))
	}
	if downloads[0].Status != ledger.DownloadOK || downloads[0].Bytes != 1234 {
		t.Errorf("first = %+v", downloads[0])
	}
	if downloads[1].Status != ledger.DownloadFailed || downloads[1].Error != "status 404" {
		t.Errorf("second = %+v", downloads[1])
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	run, err := store.BeginRun(context.Background(), cfg.Mirror.Destination)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	fetched, err := reopened.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetRun after reopen: %v", err)
	}
	if fetched.ID != run.ID {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestOpenRejectsUnknownSchemaVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("raw open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("raw close: %v", err)
	}

	if _, err := ledger.Open(cfg.Ledger.Path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "history.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if store.Path() != path {
		t.Fatalf("path = %q", store.Path())
	}
}
