package download_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Flynatol/canvas-downloader/internal/canvas"
	"github.com/Flynatol/canvas-downloader/internal/download"
	"github.com/Flynatol/canvas-downloader/internal/gate"
)

func tempFilesIn(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var tmps []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			tmps = append(tmps, e.Name())
		}
	}
	return tmps
}

func newEngine(t *testing.T) *download.Engine {
	t.Helper()
	g := gate.New(gate.Options{Limit: 2})
	return download.NewEngine(g, "tok", nil, nil)
}

func TestFetchCommitsAtomically(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte("lecture notes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "notes.pdf")
	file := canvas.File{
		DisplayName: "notes.pdf",
		URL:         srv.URL + "/files/1",
		UpdatedAt:   "2026-01-10T08:00:00Z",
		Path:        target,
	}

	n, err := newEngine(t).Fetch(context.Background(), file)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n != int64(len("lecture notes")) {
		t.Fatalf("bytes = %d", n)
	}

	body, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("target missing: %v", err)
	}
	if string(body) != "lecture notes" {
		t.Fatalf("content = %q", body)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	if !info.ModTime().Equal(want) {
		t.Fatalf("mtime = %v, want %v", info.ModTime().UTC(), want)
	}

	if tmps := tempFilesIn(t, dir); len(tmps) != 0 {
		t.Fatalf("leftover temp files: %v", tmps)
	}
}

func TestFetchLeavesNoTraceOnInterruptedStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "big.zip")
	file := canvas.File{
		DisplayName: "big.zip",
		URL:         srv.URL + "/files/2",
		UpdatedAt:   "2026-01-10T08:00:00Z",
		Path:        target,
	}

	if _, err := newEngine(t).Fetch(context.Background(), file); err == nil {
		t.Fatal("expected stream error")
	}

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("target must not exist after failed stream: %v", err)
	}
	if tmps := tempFilesIn(t, dir); len(tmps) != 0 {
		t.Fatalf("leftover temp files: %v", tmps)
	}
}

func TestFetchDoesNotClobberExistingTargetOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "keep.pdf")
	if err := os.WriteFile(target, []byte("previous good copy"), 0o644); err != nil {
		t.Fatal(err)
	}

	file := canvas.File{DisplayName: "keep.pdf", URL: srv.URL, Path: target}
	if _, err := newEngine(t).Fetch(context.Background(), file); err == nil {
		t.Fatal("expected status error")
	}

	body, err := os.ReadFile(target)
	if err != nil || string(body) != "previous good copy" {
		t.Fatalf("existing target was disturbed: %q, %v", body, err)
	}
}

func TestFetchSkipsTimestampWhenAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	file := canvas.File{
		DisplayName: "undated.bin",
		URL:         srv.URL,
		Path:        filepath.Join(dir, "undated.bin"),
	}
	if _, err := newEngine(t).Fetch(context.Background(), file); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := os.Stat(file.Path); err != nil {
		t.Fatalf("target missing: %v", err)
	}
}
